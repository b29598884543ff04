// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"io"

	"github.com/labstack/echo/v4"
	"github.com/pdf2json/landing/internal/models"
)

// DemoHandler handles the interactive demo operations
type DemoHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleSelectFile(c echo.Context) error
	HandleSetSchema(c echo.Context) error
	HandleSubmit(c echo.Context) error
	HandleReset(c echo.Context) error
	HandleGetResult(c echo.Context) error
	HandleCopyResult(c echo.Context) error
	HandleGetResultMsgpack(c echo.Context) error
	HandleSessionEvents(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SiteHandler serves the landing page copy
type SiteHandler interface {
	HandleGetSite(c echo.Context) error
}

// SessionManager defines the interface for demo session management
// This allows mocking in tests
type SessionManager interface {
	Create() (models.DemoSession, error)
	Get(id string) (models.DemoSession, error)
	Touch(id string) bool
	Delete(id string) error
	SelectFile(id, name, mimeType string, r io.Reader) (bool, models.DemoSession, error)
	SetSchema(id, schema string) (models.DemoSession, error)
	Submit(id string) (models.DemoSession, error)
	Reset(id string) (models.DemoSession, error)
	Result(id string) (*models.Result, error)
	ClipboardText(id string) (string, error)
	Subscribe(id string) (<-chan models.DemoSession, func(), error)
}
