package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/craftmarket/backend/internal/infrastructure/i18n"
	"github.com/craftmarket/backend/internal/interfaces/http/middleware"
)

// pageSlugs are the informational pages served from the message catalog
var pageSlugs = []string{"privacy", "terms", "contacts", "faq", "shipping", "returns"}

// PageHandler serves static informational pages as localized content
type PageHandler struct {
	BaseHandler
	catalog    *i18n.Catalog
	negotiator *i18n.Negotiator
}

// NewPageHandler creates a new page handler
func NewPageHandler(catalog *i18n.Catalog, negotiator *i18n.Negotiator) *PageHandler {
	return &PageHandler{
		catalog:    catalog,
		negotiator: negotiator,
	}
}

// PageSummary is a page listing entry
type PageSummary struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// PageResponse is a localized page
type PageResponse struct {
	Slug     string `json:"slug"`
	Language string `json:"language"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// List returns the available pages with titles in the request language
func (h *PageHandler) List(c *gin.Context) {
	lang := h.language(c)

	pages := make([]PageSummary, 0, len(pageSlugs))
	for _, slug := range pageSlugs {
		pages = append(pages, PageSummary{
			Slug:  slug,
			Title: h.catalog.T(lang, pageTitleKey(slug)),
			Path:  i18n.TranslateURL("/pages/"+slug, lang, h.negotiator),
		})
	}

	h.Success(c, pages)
}

// Get returns a single page in the request language
func (h *PageHandler) Get(c *gin.Context) {
	slug := c.Param("slug")
	if !isKnownPage(slug) {
		h.NotFound(c, "Page not found")
		return
	}

	lang := h.language(c)
	h.Success(c, PageResponse{
		Slug:     slug,
		Language: lang,
		Title:    h.catalog.T(lang, pageTitleKey(slug)),
		Body:     h.catalog.T(lang, pageBodyKey(slug)),
	})
}

func (h *PageHandler) language(c *gin.Context) string {
	if lang := middleware.GetLanguage(c); lang != "" {
		return lang
	}
	return h.catalog.DefaultLanguage()
}

func isKnownPage(slug string) bool {
	for _, s := range pageSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

func pageTitleKey(slug string) string {
	return fmt.Sprintf("pages.%s.title", slug)
}

func pageBodyKey(slug string) string {
	return fmt.Sprintf("pages.%s.body", slug)
}
