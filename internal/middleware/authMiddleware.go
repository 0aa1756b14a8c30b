package middleware

import (
	"context"
	"strings"

	"github.com/aman-churiwal/gatekeeper/internal/apperror"
	"github.com/aman-churiwal/gatekeeper/internal/rbac"
	"github.com/gin-gonic/gin"
)

const (
	principalKey     = "principal"
	SessionCookie    = "session_token"
	authSourceKey    = "auth_source"
	authSourceBearer = "bearer"
	authSourceCookie = "cookie"
)

// PrincipalResolver is the identity provider: it maps a session token to the actor
type PrincipalResolver interface {
	Principal(ctx context.Context, token string) (*rbac.Principal, error)
}

// Identify resolves the principal when a valid session is presented. Missing or
// invalid sessions leave the request anonymous; routes decide whether that is
// acceptable.
func Identify(resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, source := sessionToken(c)
		if token == "" {
			c.Next()
			return
		}

		p, err := resolver.Principal(c.Request.Context(), token)
		if err != nil || p == nil {
			c.Next()
			return
		}

		c.Set(principalKey, p)
		c.Set(authSourceKey, source)
		c.Request = c.Request.WithContext(rbac.WithPrincipal(c.Request.Context(), p))

		c.Next()
	}
}

func sessionToken(c *gin.Context) (string, string) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1], authSourceBearer
		}
		return "", ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, authSourceCookie
	}
	return "", ""
}

// PrincipalFrom returns the resolved principal or nil for anonymous requests
func PrincipalFrom(c *gin.Context) *rbac.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*rbac.Principal)
	return p
}

// Requires an authenticated principal
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if PrincipalFrom(c) == nil {
			abortWithError(c, apperror.Unauthorized(""))
			return
		}
		c.Next()
	}
}

// Requires a principal ranked at least role
func RequireRole(role rbac.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := rbac.RequireRole(PrincipalFrom(c), role); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

// Requires a principal satisfying any of roles
func RequireAnyRole(roles ...rbac.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := rbac.RequireAnyRole(PrincipalFrom(c), roles...); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
