package ratelimit

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graffiticode/graffiticode/engine/infra/server/middleware/auth"
	"github.com/graffiticode/graffiticode/engine/infra/server/router"
	"github.com/graffiticode/graffiticode/pkg/config"
	"github.com/graffiticode/graffiticode/pkg/logger"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const (
	defaultPrefix   = "graffiticode:ratelimit:"
	cleanUpInterval = time.Minute
)

// NewMiddleware throttles requests per caller using an in-memory store.
// Callers are keyed by uid when authenticated, otherwise by client IP.
// A zero limit yields a pass-through handler.
func NewMiddleware(cfg config.RateLimitConfig) (gin.HandlerFunc, error) {
	if cfg.Limit <= 0 {
		return func(c *gin.Context) { c.Next() }, nil
	}
	if cfg.Period <= 0 {
		return nil, fmt.Errorf("rate limit period must be positive, got %s", cfg.Period)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: cleanUpInterval,
	})
	l := limiter.New(store, limiter.Rate{Period: cfg.Period, Limit: cfg.Limit})
	return mgin.NewMiddleware(l,
		mgin.WithKeyGetter(callerKey),
		mgin.WithLimitReachedHandler(limitReached),
		mgin.WithErrorHandler(storeFailed),
	), nil
}

func callerKey(c *gin.Context) string {
	if a := auth.FromContext(c.Request.Context()); a != nil && a.UID != "" {
		return "uid:" + a.UID
	}
	return "ip:" + c.ClientIP()
}

func limitReached(c *gin.Context) {
	router.RespondProblemWithCode(c, http.StatusTooManyRequests, router.ErrRateLimitedCode, "rate limit exceeded")
}

func storeFailed(c *gin.Context, err error) {
	logger.FromContext(c.Request.Context()).Error("Rate limiter store failed", "error", err)
	router.RespondProblemWithCode(c, http.StatusInternalServerError, router.ErrInternalCode, "internal server error")
}
