package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/hibiken/asynq"

	"github.com/syed-c/foster-care-sub001/internal/api"
	"github.com/syed-c/foster-care-sub001/internal/api/middleware"
	"github.com/syed-c/foster-care-sub001/internal/cache"
	"github.com/syed-c/foster-care-sub001/internal/captcha"
	"github.com/syed-c/foster-care-sub001/internal/config"
	"github.com/syed-c/foster-care-sub001/internal/db"
	"github.com/syed-c/foster-care-sub001/internal/email"
	"github.com/syed-c/foster-care-sub001/internal/services"
	"github.com/syed-c/foster-care-sub001/internal/storage"
	"github.com/syed-c/foster-care-sub001/internal/tasks"
	"github.com/syed-c/foster-care-sub001/internal/worker"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'img' (image processing), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	idxCtx, idxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(idxCtx, mongoDb); err != nil {
		idxCancel()
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	idxCancel()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	awsCfg, err := storage.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)
	s3StorageService := storage.NewS3Storage(cfg, s3Client)

	var sesClient email.SESAPI
	if cfg.EmailProvider == "ses" {
		sesClient = ses.NewFromConfig(awsCfg)
	}
	emailSender := email.NewSenderFromConfig(cfg, redisClient, sesClient)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()

	agencyService := services.NewAgencyService(mongoDb)
	approvalService := services.NewApprovalService(mongoDb)
	statsService := services.NewStatsService(mongoDb)
	cmsService := services.NewCMSService(mongoDb)
	emailTemplateService := services.NewEmailTemplateService(mongoDb)
	leadService := services.NewLeadService(mongoDb, cfg, agencyService, taskClient)
	userService := services.NewUserService(mongoDb, cfg, agencyService)
	billingService := services.NewBillingService(mongoDb, cfg, agencyService,
		services.NewStripeClient(cfg.StripeSecretKey, cfg.StripeAPIBase))
	locationService, err := services.NewLocationService(mongoDb, cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to load location taxonomy: %v", err)
	}

	taskProcessor := worker.NewTaskProcessor(cfg, emailSender, emailTemplateService, agencyService, s3StorageService, s3Client)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Service API always runs.
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("Service API listening on :%s\n", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		fmt.Println("Service API server stopped.")
	}()

	var mainApiSrv *http.Server
	var rateLimiter *middleware.RateLimiterMiddleware
	var taskSrv *asynq.Server

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	startAPI := func() {
		rateLimiter = middleware.NewRateLimiterMiddleware(cfg)
		router := api.SetupRouter(cfg, api.Services{
			Agencies:  agencyService,
			Approvals: approvalService,
			Stats:     statsService,
			Leads:     leadService,
			CMS:       cmsService,
			Locations: locationService,
			Users:     userService,
			Billing:   billingService,
			Storage:   s3StorageService,
			Tasks:     taskClient,
		}, captcha.NewTurnstileVerifier(cfg), rateLimiter)

		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: router,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Main API listening on :%s\n", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			fmt.Println("Main API server stopped.")
		}()
	}

	startWorkers := func(img, bg bool) {
		srv, mux := worker.SetupServer(tasks.RedisOpt(redisClient), taskProcessor, img, bg)
		if srv == nil {
			return
		}
		if err := srv.Start(mux); err != nil {
			log.Fatalf("Task server failed to start: %v", err)
		}
		taskSrv = srv
		fmt.Println("Task server started.")
	}

	switch cfg.RunMode {
	case "api":
		startAPI()
	case "bg":
		startWorkers(false, true)
	case "img":
		startWorkers(true, false)
	case "all":
		startAPI()
		startWorkers(true, true)
	default:
		log.Fatalf("Invalid run mode specified: %s.", cfg.RunMode)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)
	case <-shutdownChan:
		fmt.Println("\nShutdown requested via Service API. Shutting down gracefully...")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	fmt.Println("Shutting down Service API server...")
	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}

	if mainApiSrv != nil {
		fmt.Println("Shutting down Main API server...")
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
		rateLimiter.Close()
	}

	if taskSrv != nil {
		fmt.Println("Shutting down task server...")
		taskSrv.Shutdown()
	}

	fmt.Println("Waiting for servers to stop...")
	wg.Wait()

	fmt.Println("Server gracefully stopped")
}
