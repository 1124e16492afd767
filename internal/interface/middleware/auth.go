package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/course-enrollment/internal/application"
	"github.com/oksasatya/course-enrollment/internal/domain/policy"
	"github.com/oksasatya/course-enrollment/pkg/response"
)

const (
	CtxPrincipalKey = "principal"
	CtxUserIDKey    = "userID"
)

// IdentityResolver is satisfied by application.IdentityService.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (policy.Principal, error)
}

// Identity resolves the caller on every request and stores the principal in the
// Gin context. A missing or rejected token leaves the caller anonymous.
func Identity(ids IdentityResolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := ids.Resolve(c.Request.Context(), accessToken(c))
		if err != nil && !errors.Is(err, application.ErrInvalidToken) {
			if logger != nil {
				logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("identity resolution failed")
			}
			response.Error[any](c, http.StatusInternalServerError, "internal error", nil)
			c.Abort()
			return
		}
		c.Set(CtxPrincipalKey, p)
		if !p.IsAnonymous() {
			c.Set(CtxUserIDKey, p.UserID)
		}
		c.Next()
	}
}

// RequireAuth rejects anonymous callers with 401. Role checks stay with the gate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentPrincipal(c).IsAnonymous() {
			response.Error[any](c, http.StatusUnauthorized, "authentication required", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns Anonymous when Identity did not run.
func CurrentPrincipal(c *gin.Context) policy.Principal {
	if v, ok := c.Get(CtxPrincipalKey); ok {
		if p, ok := v.(policy.Principal); ok {
			return p
		}
	}
	return policy.Anonymous()
}

// accessToken prefers the Authorization header over the access_token cookie.
func accessToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if token, err := c.Cookie("access_token"); err == nil {
		return token
	}
	return ""
}
