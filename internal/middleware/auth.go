// internal/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/swapmart/backend/internal/i18n"
	"github.com/swapmart/backend/internal/models"
	"github.com/swapmart/backend/internal/utils"
)

const bearerPrefix = "Bearer "

// AuthRequired validates the bearer token and stores the caller's identity
// in the context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		header := c.GetHeader("Authorization")
		if header == "" {
			utils.Fail(c, http.StatusUnauthorized, i18n.T(lang, i18n.KeyAuthRequired), "")
			return
		}

		token, ok := strings.CutPrefix(header, bearerPrefix)
		if !ok || token == "" {
			utils.Fail(c, http.StatusUnauthorized, i18n.T(lang, i18n.KeyAuthInvalidToken), "")
			return
		}

		claims, err := utils.ValidateJWT(token)
		if err != nil {
			GetLogger(c).WithError(err).Debug("Rejected access token")
			utils.Fail(c, http.StatusUnauthorized, i18n.T(lang, i18n.KeyAuthInvalidToken), "")
			return
		}

		c.Set(utils.ContextUserID, claims.UserID)
		c.Set(utils.ContextUsername, claims.Username)
		c.Set(utils.ContextUserType, claims.UserType)
		c.Set(loggerKey, GetLogger(c).WithField("user_id", claims.UserID))
		c.Next()
	}
}

// RequireUserType admits only callers of the given types. It must run after
// AuthRequired.
func RequireUserType(allowed ...models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType, _ := utils.GetUserTypeFromContext(c)
		for _, t := range allowed {
			if models.UserType(userType) == t {
				c.Next()
				return
			}
		}
		utils.Fail(c, http.StatusForbidden, "", "")
	}
}

// StaffRequired admits admins and delivery staff.
func StaffRequired() gin.HandlerFunc {
	return RequireUserType(models.UserTypeAdmin, models.UserTypeDelivery)
}
