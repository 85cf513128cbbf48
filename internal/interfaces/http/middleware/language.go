package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/craftmarket/backend/internal/infrastructure/i18n"
	"github.com/craftmarket/backend/internal/infrastructure/logger"
)

// Language context key and cookie name
const (
	LanguageKey        = "language"
	LanguageCookieName = "lang"
)

// Language resolves the request language from the lang cookie first and the
// Accept-Language header second, stores it in the context, and echoes the
// decision in the Content-Language response header.
func Language(negotiator *i18n.Negotiator) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookieValue, _ := c.Cookie(LanguageCookieName)
		lang := negotiator.Negotiate(cookieValue, c.GetHeader("Accept-Language"))

		c.Set(LanguageKey, lang)
		c.Writer.Header().Set("Content-Language", lang)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithLanguage(ctx, log, lang)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetLanguage retrieves the negotiated language from gin.Context
func GetLanguage(c *gin.Context) string {
	if lang, exists := c.Get(LanguageKey); exists {
		if l, ok := lang.(string); ok {
			return l
		}
	}
	return ""
}
