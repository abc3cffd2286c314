package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/syed-c/foster-care-sub001/internal/api/handlers"
	"github.com/syed-c/foster-care-sub001/internal/api/middleware"
	"github.com/syed-c/foster-care-sub001/internal/captcha"
	"github.com/syed-c/foster-care-sub001/internal/config"
	"github.com/syed-c/foster-care-sub001/internal/email"
	"github.com/syed-c/foster-care-sub001/internal/models"
	"github.com/syed-c/foster-care-sub001/internal/services"
	"github.com/syed-c/foster-care-sub001/internal/storage"
	"github.com/syed-c/foster-care-sub001/internal/tasks"
)

// Services is everything the public API calls into.
type Services struct {
	Agencies  services.IAgencyService
	Approvals services.IApprovalService
	Stats     services.IStatsService
	Leads     services.ILeadService
	CMS       services.ICMSService
	Locations services.ILocationService
	Users     services.IUserService
	Billing   services.IBillingService
	Storage   storage.IS3Storage
	Tasks     tasks.IAsynqClient
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, svc Services, verifier captcha.ITurnstileVerifier, rateLimiter *middleware.RateLimiterMiddleware) *gin.Engine {
	responder := handlers.ErrorResponder{ShowDetails: !cfg.IsProduction()}

	agencyHandler := handlers.NewAgencyHandler(svc.Agencies, responder)
	adminHandler := handlers.NewAdminHandler(svc.Agencies, svc.Approvals, svc.Stats, responder)
	leadHandler := handlers.NewLeadHandler(svc.Leads, svc.Agencies, responder)
	cmsHandler := handlers.NewCMSHandler(svc.CMS, responder)
	locationHandler := handlers.NewLocationHandler(svc.Locations, responder)
	userHandler := handlers.NewUserHandler(svc.Users, responder)
	billingHandler := handlers.NewBillingHandler(svc.Billing, svc.Agencies, responder)
	mediaHandler := handlers.NewMediaHandler(svc.Agencies, svc.Storage, svc.Tasks, responder)

	r := gin.New()
	r.Use(gin.Logger(), middleware.Recovery(), middleware.Metrics())
	r.Use(middleware.CORSMiddleware(cfg.CorsOrigins))

	authRequired := middleware.AuthMiddleware(cfg.JwtSecret)
	// Public writes: a verified human skips the soft bucket.
	guarded := []gin.HandlerFunc{middleware.CaptchaMiddleware(verifier), rateLimiter.Limit()}

	api := r.Group("/api")
	{
		api.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		agencies := api.Group("/agencies")
		{
			agencies.GET("", agencyHandler.ListAgencies)
			agencies.GET("/:id", agencyHandler.GetAgency)
			agencies.GET("/:id/reviews", agencyHandler.ListReviews)
			agencies.POST("/:id/reviews", append(guarded, agencyHandler.AddReview)...)

			agencies.POST("", authRequired, agencyHandler.CreateAgency)
			agencies.PUT("/:id", authRequired, agencyHandler.UpdateAgency)
			agencies.POST("/:id/media", authRequired, mediaHandler.RequestUpload)
			agencies.POST("/:id/media/confirm", authRequired, mediaHandler.ConfirmUpload)
		}

		contact := api.Group("/contact", guarded...)
		{
			contact.POST("/agency", leadHandler.ContactAgency)
			contact.POST("/general", leadHandler.ContactGeneral)
		}

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", append(guarded, userHandler.Signup)...)
			authGroup.POST("/login", append(guarded, userHandler.Login)...)
			authGroup.GET("/me", authRequired, userHandler.Me)
		}

		users := api.Group("/users/me", authRequired)
		{
			users.GET("", userHandler.Me)
			users.PUT("", userHandler.UpdateMe)
			users.POST("/saved-agencies/:agencyId", userHandler.SaveAgency)
			users.DELETE("/saved-agencies/:agencyId", userHandler.UnsaveAgency)
		}

		api.GET("/locations/tree", locationHandler.Tree)
		api.GET("/locations/:country", locationHandler.Resolve)
		api.GET("/locations/:country/:region", locationHandler.Resolve)
		api.GET("/locations/:country/:region/:city", locationHandler.Resolve)
		api.GET("/foster-agency/*path", locationHandler.ResolvePath)

		cms := api.Group("/cms")
		{
			cms.GET("/pages", cmsHandler.ListPages)
			cms.GET("/pages/:id", cmsHandler.GetPage)
			cms.GET("/sections", cmsHandler.ListSections)
			cms.GET("/fields", cmsHandler.ListFields)

			cmsAdmin := cms.Group("", authRequired, middleware.RequireRole(models.RoleAdmin))
			cmsAdmin.POST("/pages", cmsHandler.CreatePage)
			cmsAdmin.DELETE("/pages/:id", cmsHandler.DeletePage)
			cmsAdmin.POST("/sections", cmsHandler.CreateSection)
			cmsAdmin.DELETE("/sections/:id", cmsHandler.DeleteSection)
			cmsAdmin.POST("/fields", cmsHandler.CreateField)
			cmsAdmin.PUT("/fields/:id", cmsHandler.UpdateFieldValue)
			cmsAdmin.DELETE("/fields/:id", cmsHandler.DeleteField)
		}

		stripe := api.Group("/stripe")
		{
			stripe.GET("/plans", billingHandler.Plans)
			stripe.POST("/webhook", billingHandler.Webhook)

			owner := stripe.Group("", authRequired, middleware.RequireRole(models.RoleAgency))
			owner.POST("/customer", billingHandler.ProvisionCustomer)
			owner.POST("/checkout", billingHandler.Checkout)
			owner.POST("/portal", billingHandler.Portal)
		}

		dashboard := api.Group("/dashboard", authRequired, middleware.RequireRole(models.RoleAgency))
		{
			dashboard.GET("/leads", leadHandler.DashboardLeads)
		}

		admin := api.Group("/admin", authRequired, middleware.RequireRole(models.RoleAdmin))
		{
			admin.GET("/stats", adminHandler.Stats)
			admin.GET("/agencies", adminHandler.ListAgencies)
			admin.POST("/agencies/:id", adminHandler.AgencyAction)
			admin.POST("/agencies/:id/approve", adminHandler.ApproveAgency)
			admin.POST("/agencies/:id/reject", adminHandler.RejectAgency)
			admin.DELETE("/agencies/:id", adminHandler.DeleteAgency)

			admin.GET("/leads", leadHandler.AdminListLeads)
			admin.PUT("/leads/:id", leadHandler.AdminUpdateLead)
			admin.POST("/leads/:id/:status", leadHandler.AdminTransitionLead)

			admin.PUT("/locations/content", locationHandler.UpsertContent)
		}
	}

	return r
}

// SetupServiceRouter configures the internal service engine: shutdown, captured test
// email lookup, and Prometheus metrics. It must not be exposed publicly.
func SetupServiceRouter(cfg *config.Config, rdb redis.Cmdable, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			if !cfg.MockServices || rdb == nil {
				c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Email capture is disabled (MOCK_SERVICES)"})
				return
			}
			var args []string // [templateID, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateId, email]"})
				return
			}
			redisKey := email.MockEmailKey(args[1], args[0])

			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			raw, err := pollKey(ctx, rdb, redisKey, 10, 200*time.Millisecond)
			if errors.Is(err, redis.Nil) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}
			if err != nil {
				log.Printf("ERROR: service API failed to read %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &emailData); err != nil {
				log.Printf("ERROR: service API could not parse %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// pollKey reads and deletes key, retrying while it does not exist yet.
func pollKey(ctx context.Context, rdb redis.Cmdable, key string, attempts int, every time.Duration) (string, error) {
	for i := 0; ; i++ {
		val, err := rdb.GetDel(ctx, key).Result()
		if err == nil {
			return val, nil
		}
		if !errors.Is(err, redis.Nil) || i+1 >= attempts {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(every):
		}
	}
}
