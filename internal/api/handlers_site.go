// handlers_site.go - Landing page content handler
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pdf2json/landing/internal/content"
)

// SiteHandlerImpl implements the SiteHandler interface
type SiteHandlerImpl struct {
	site *content.Site
}

// NewSiteHandler creates a site handler serving the given copy
func NewSiteHandler(site *content.Site) SiteHandler {
	return &SiteHandlerImpl{site: site}
}

// HandleGetSite returns the landing page copy
func (h *SiteHandlerImpl) HandleGetSite(c echo.Context) error {
	if h.site == nil {
		return NewServiceUnavailableError("site content not loaded")
	}
	return c.JSON(http.StatusOK, h.site)
}
