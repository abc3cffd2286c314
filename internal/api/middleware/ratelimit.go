package middleware

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/syed-c/foster-care-sub001/internal/config"
)

const (
	limiterIdleTimeout = 30 * time.Minute
	limiterSweepPeriod = 10 * time.Minute
)

type trackedLimiter struct {
	*rate.Limiter
	lastSeen time.Time
}

// RateLimiterMiddleware applies two token buckets. The hard bucket is keyed on the client IP
// and exceeding it is always rejected. The soft bucket is keyed on IP and browser fingerprint;
// exceeding it is rejected unless the client passed a captcha.
type RateLimiterMiddleware struct {
	mu   sync.Mutex
	hard map[string]*trackedLimiter
	soft map[string]*trackedLimiter

	softRate, hardRate   rate.Limit
	softBurst, hardBurst int

	stop chan struct{}
	once sync.Once
}

// NewRateLimiterMiddleware creates a limiter with the configured bucket sizes and starts
// the idle-client sweeper. Call Close to stop it.
func NewRateLimiterMiddleware(cfg *config.Config) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		hard:      make(map[string]*trackedLimiter),
		soft:      make(map[string]*trackedLimiter),
		softRate:  rate.Limit(cfg.RateLimitSoftRefillRate),
		softBurst: cfg.RateLimitSoftBucketSize,
		hardRate:  rate.Limit(cfg.RateLimitHardRefillRate),
		hardBurst: cfg.RateLimitHardBucketSize,
		stop:      make(chan struct{}),
	}
	go rm.sweep()
	return rm
}

// Close stops the background sweeper.
func (rm *RateLimiterMiddleware) Close() {
	rm.once.Do(func() { close(rm.stop) })
}

func (rm *RateLimiterMiddleware) limiterFor(buckets map[string]*trackedLimiter, key string, r rate.Limit, burst int) *rate.Limiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	l, ok := buckets[key]
	if !ok {
		l = &trackedLimiter{Limiter: rate.NewLimiter(r, burst)}
		buckets[key] = l
	}
	l.lastSeen = time.Now()
	return l.Limiter
}

func (rm *RateLimiterMiddleware) sweep() {
	ticker := time.NewTicker(limiterSweepPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stop:
			return
		case <-ticker.C:
		}
		rm.mu.Lock()
		removed := 0
		for _, buckets := range []map[string]*trackedLimiter{rm.hard, rm.soft} {
			for key, l := range buckets {
				if time.Since(l.lastSeen) > limiterIdleTimeout {
					delete(buckets, key)
					removed++
				}
			}
		}
		rm.mu.Unlock()
		if removed > 0 {
			log.Printf("Rate limiter removed %d idle buckets", removed)
		}
	}
}

// Limit returns the Gin handler. It reads the captcha status set by CaptchaMiddleware.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := clientOf(c)

		if !rm.limiterFor(rm.hard, client.IP, rm.hardRate, rm.hardBurst).Allow() {
			log.Printf("WARN: hard rate limit exceeded for %s on %s", client.IP, c.FullPath())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		if c.GetBool(ContextKeyIsHumanVerified) {
			c.Next()
			return
		}
		if !rm.limiterFor(rm.soft, client.IP+"|"+client.Fingerprint, rm.softRate, rm.softBurst).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Captcha validation required", "captcha_required": true})
			return
		}
		c.Next()
	}
}
