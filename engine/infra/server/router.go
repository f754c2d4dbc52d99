package server

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/graffiticode/graffiticode/engine/infra/server/middleware/auth"
	"github.com/graffiticode/graffiticode/engine/infra/server/middleware/ratelimit"
	"github.com/graffiticode/graffiticode/engine/infra/server/middleware/size"
	"github.com/graffiticode/graffiticode/engine/infra/server/routes"
	"github.com/graffiticode/graffiticode/pkg/logger"
)

func apiBase() string    { return routes.Base() }
func healthPath() string { return routes.HealthVersioned() }

func (s *Server) buildRouter(ctx context.Context) error {
	limit, err := ratelimit.NewMiddleware(s.cfg.Server.RateLimit)
	if err != nil {
		return fmt.Errorf("failed to build rate limiter: %w", err)
	}
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware())
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		r.Use(s.monitoring.GinMiddleware())
		r.GET(s.monitoring.Path(), gin.WrapH(s.monitoring.ExporterHandler()))
	}
	r.Use(LoggerMiddleware(logger.FromContext(ctx)))
	r.GET(routes.HealthVersioned(), CreateHealthHandler(s.dao))
	api := r.Group(routes.Base())
	api.Use(size.BodySizeLimiter(s.cfg.Server.MaxBodyBytes))
	api.Use(auth.Middleware(s.cfg.Server.AuthHeader), limit)
	s.registerTaskRoutes(api)
	s.router = r
	return nil
}
