package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ktirsdata/ntr_backend/config"
	"github.com/ktirsdata/ntr_backend/models"
	"github.com/ktirsdata/ntr_backend/utils"
)

// SessionMiddleware resolves the session token into the officer's full scope
// so downstream code (and the mda guard) can trust the request context.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		email, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		profile, err := models.GetProfileByEmail(ctx, email)
		if err != nil || !*profile.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx = utils.SetTokenInContext(ctx, token)
		ctx = utils.SetUserIdInContext(ctx, profile.ID)
		ctx = utils.SetUserNameInContext(ctx, profile.FullName)
		ctx = utils.SetEmailInContext(ctx, profile.Email)
		ctx = utils.SetRoleInContext(ctx, string(profile.Role))
		ctx = utils.SetIsAdminInContext(ctx, profile.Role == models.GlobalRoleAdmin)

		if profile.Role == models.GlobalRoleMdaUser {
			scopes, err := models.GetUserScopesForSession(ctx, profile.ID)
			if err != nil || len(scopes) == 0 {
				c.JSON(http.StatusForbidden, gin.H{"error": "no mda assigned"})
				c.Abort()
				return
			}
			ctx = utils.SetMdaIdInContext(ctx, scopes[0].MdaId)
			ctx = utils.SetBranchIdInContext(ctx, utils.DereferencePtr(scopes[0].BranchId))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminMiddleware gates admin-console routes on the resolved role.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isAdmin, ok := utils.GetIsAdminFromContext(c.Request.Context()); !ok || !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin role is required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
