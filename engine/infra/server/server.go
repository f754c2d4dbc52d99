// Package server exposes the task DAO over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graffiticode/graffiticode/engine/dao"
	"github.com/graffiticode/graffiticode/engine/infra/monitoring"
	"github.com/graffiticode/graffiticode/pkg/config"
	"github.com/graffiticode/graffiticode/pkg/logger"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	httpIdleTimeout        = 60 * time.Second
	hostAny                = "0.0.0.0"
	hostLoopback           = "127.0.0.1"
)

// Server serves the task API for one DAO.
type Server struct {
	cfg          *config.Config
	dao          dao.DAO
	monitoring   *monitoring.Service
	router       *gin.Engine
	httpServer   *http.Server
	shutdownOnce sync.Once
}

// NewServer builds the router. mon may be nil when metrics are not served.
func NewServer(ctx context.Context, cfg *config.Config, d dao.DAO, mon *monitoring.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server configuration is required")
	}
	if d == nil {
		return nil, fmt.Errorf("task dao is required")
	}
	s := &Server{cfg: cfg, dao: d, monitoring: mon}
	if err := s.buildRouter(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logger.FromContext(ctx)
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       httpIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()
	s.logStartupBanner(ctx, ln.Addr())
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("Shutting down HTTP server")
	}
	if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.httpServer == nil {
			return
		}
		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if shutdownErr := s.httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			err = fmt.Errorf("shutdown http server: %w", shutdownErr)
		}
	})
	return err
}

func (s *Server) logStartupBanner(ctx context.Context, addr net.Addr) {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		host, port = s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port)
	}
	httpURL := fmt.Sprintf("http://%s", net.JoinHostPort(friendlyHost(host), port))
	fields := []any{"api", httpURL + apiBase(), "health", httpURL + healthPath()}
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		fields = append(fields, "metrics", httpURL+s.monitoring.Path())
	}
	logger.FromContext(ctx).Info("HTTP server started", fields...)
}

func friendlyHost(h string) string {
	if h == hostAny || h == "::" || h == "" {
		return hostLoopback
	}
	return h
}
