// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/swapmart/backend/internal/i18n"
	"github.com/swapmart/backend/internal/utils"
)

// I18nMiddleware resolves the response locale from Accept-Language. A lang
// query parameter overrides the header.
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		locale := i18n.NormalizeLocale(c.GetHeader("Accept-Language"))
		if override := c.Query("lang"); override != "" {
			locale = i18n.NormalizeLocale(override)
		}
		c.Set(utils.ContextLang, locale)
		c.Header("Content-Language", strings.ReplaceAll(locale, "_", "-"))
		c.Next()
	}
}
