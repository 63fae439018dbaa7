package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/helpinghands/console/internal/apiclient"
	"github.com/helpinghands/console/internal/auth"
	"github.com/helpinghands/console/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
	// ContextToken is the key for the raw bearer token, forwarded to the backend.
	ContextToken = "token"
)

// JWT returns a middleware that validates JWT and sets user claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearer(c)
		if !ok {
			response.Unauthorized(c, "missing or invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		setClaims(c, token, claims)
		c.Next()
	}
}

// OptionalJWT sets user claims when a valid token is present and lets the request
// through either way. Used by the public support form.
func OptionalJWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearer(c); ok {
			if claims, err := jwtService.Validate(token); err == nil {
				setClaims(c, token, claims)
			}
		}
		c.Next()
	}
}

func bearer(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setClaims(c *gin.Context, token string, claims *auth.Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserRole, claims.Role)
	c.Set(ContextUserEmail, claims.Email)
	c.Set(ContextToken, token)
}

// UserID returns the authenticated user's id.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role, or "".
func Role(c *gin.Context) string {
	return c.GetString(ContextUserRole)
}

// Backend returns the request context carrying the caller's token for backend calls.
func Backend(c *gin.Context) context.Context {
	return apiclient.WithToken(c.Request.Context(), c.GetString(ContextToken))
}
