package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"push-subscription-backend/internal/mw"
	"push-subscription-backend/internal/subscription"
)

// RouterConfig carries the transport-level knobs for the router.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(service *subscription.Service, webpushOptions *webpush.Options, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(service, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/tokens", handler.CreateToken)

		api.PUT("/subscriptions", handler.PutSubscription)
		api.POST("/subscriptions/confirm", handler.ConfirmSubscription)
		api.POST("/subscriptions/pending", handler.GetPendingApproval)
		api.GET("/subscriptions", handler.GetSubscription)

		api.POST("/notifications", handler.TriggerNotification)

		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)
	}

	return r
}
