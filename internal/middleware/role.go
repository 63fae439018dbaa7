package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/helpinghands/console/internal/models"
	"github.com/helpinghands/console/pkg/response"
)

// RequireRole lets through only authenticated requests whose token role is one of
// roles. It must run after JWT.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	denied := "this action requires the " + strings.Join(names, " or ") + " role"
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		role := models.Role(Role(c))
		if !role.Valid() || !slices.Contains(roles, role) {
			response.Forbidden(c, denied)
			c.Abort()
			return
		}
		c.Next()
	}
}
