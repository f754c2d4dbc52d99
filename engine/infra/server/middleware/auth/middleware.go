// Package auth resolves the caller identity forwarded by the trusted upstream.
package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/graffiticode/graffiticode/engine/task"
)

type contextKey struct{}

// WithAuth stores the caller in ctx. A nil auth marks an anonymous caller.
func WithAuth(ctx context.Context, auth *task.Auth) context.Context {
	return context.WithValue(ctx, contextKey{}, auth)
}

// FromContext returns the caller stored by the middleware, or nil when anonymous.
func FromContext(ctx context.Context) *task.Auth {
	auth, ok := ctx.Value(contextKey{}).(*task.Auth)
	if !ok {
		return nil
	}
	return auth
}

// Middleware reads the caller uid from header. Requests without it are anonymous.
func Middleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := strings.TrimSpace(c.GetHeader(header))
		if uid == "" {
			c.Next()
			return
		}
		c.Request = c.Request.WithContext(WithAuth(c.Request.Context(), &task.Auth{UID: uid}))
		c.Next()
	}
}
