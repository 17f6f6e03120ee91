package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"photoadmit/internal/auth"
	"photoadmit/internal/utils"
)

// RequireAuth gates admin-facing routes (delete/reprocess) behind a Clerk
// session token. When Clerk is not configured (no CLERK_SECRET_KEY), it
// no-ops: auth is an optional perimeter, not a pipeline dependency.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.Configured() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.SendError(c, utils.NewAPIError(http.StatusUnauthorized, "Unauthorized: missing token", nil))
			return
		}

		claims, err := auth.VerifyToken(parts[1])
		if err != nil {
			utils.SendError(c, utils.NewAPIError(http.StatusUnauthorized, "Unauthorized: invalid token", err))
			return
		}

		c.Set("clerk_subject", claims.Subject)
		c.Next()
	}
}
