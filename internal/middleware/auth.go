package middleware

import (
	"database/sql"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shoplane/storefront-api/internal/apperr"
	"github.com/shoplane/storefront-api/internal/auth"
	"github.com/shoplane/storefront-api/internal/models"
	"github.com/shoplane/storefront-api/internal/respond"
)

// Context keys set by Authenticate.
const (
	CtxUser   = "user"
	CtxUserID = "userID"
)

// Authenticate validates the bearer token and re-resolves the user against
// the users table on every request, so role changes and account deletions
// take effect immediately rather than at token expiry.
func Authenticate(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respond.Error(c, apperr.New(apperr.Unauthorized, "Authentication required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			respond.Error(c, apperr.New(apperr.Unauthorized, "Authentication required"))
			return
		}

		userID, err := auth.ValidateToken(parts[1])
		if err != nil {
			respond.Error(c, apperr.New(apperr.Unauthorized, "Invalid or expired token"))
			return
		}

		var user models.User
		err = db.QueryRow(
			"SELECT id, email, name, role, created_at FROM users WHERE id = ?", userID,
		).Scan(&user.ID, &user.Email, &user.Name, &user.Role, &user.CreatedAt)
		if err != nil {
			if err == sql.ErrNoRows {
				respond.Error(c, apperr.New(apperr.Unauthorized, "User not found"))
				return
			}
			respond.Error(c, err)
			return
		}

		c.Set(CtxUser, user)
		c.Set(CtxUserID, user.ID)
		c.Next()
	}
}

// RequireRoles gates a route group to the given roles. Must run after
// Authenticate. A failed role check is Forbidden, not Unauthorized.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, exists := c.Get(CtxUser)
		if !exists {
			respond.Error(c, apperr.New(apperr.Unauthorized, "Authentication required"))
			return
		}
		user := raw.(models.User)

		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		respond.Error(c, apperr.New(apperr.Forbidden, "Insufficient permissions"))
	}
}

// CurrentUser returns the authenticated user attached by Authenticate.
func CurrentUser(c *gin.Context) models.User {
	return c.MustGet(CtxUser).(models.User)
}

// CurrentUserID returns the authenticated user's ID.
func CurrentUserID(c *gin.Context) int64 {
	return c.MustGet(CtxUserID).(int64)
}
