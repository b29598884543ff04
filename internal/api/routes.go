// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pdf2json/landing/internal/config"
	"github.com/pdf2json/landing/internal/content"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions           SessionManager
	Site               *content.Site
	Version            string
	WSMaxMessageSizeKB int
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Site      SiteHandler
	Demo      DemoHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version),
		Site:      NewSiteHandler(deps.Site),
		Demo:      NewDemoHandler(deps.Sessions),
		WebSocket: NewWebSocketHandler(deps.Sessions, deps.WSMaxMessageSizeKB),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Landing page copy
	apiGroup.GET("/site", handlers.Site.HandleGetSite)

	// Demo session routes
	demoGroup := apiGroup.Group("/demo/sessions")
	demoGroup.POST("", handlers.Demo.HandleCreateSession)
	demoGroup.GET("/:id", handlers.Demo.HandleGetSession)
	demoGroup.DELETE("/:id", handlers.Demo.HandleDeleteSession)
	demoGroup.POST("/:id/file", handlers.Demo.HandleSelectFile)
	demoGroup.PUT("/:id/schema", handlers.Demo.HandleSetSchema)
	demoGroup.POST("/:id/submit", handlers.Demo.HandleSubmit)
	demoGroup.POST("/:id/reset", handlers.Demo.HandleReset)
	demoGroup.GET("/:id/result", handlers.Demo.HandleGetResult)
	demoGroup.GET("/:id/result/copy", handlers.Demo.HandleCopyResult)
	demoGroup.GET("/:id/result/msgpack", handlers.Demo.HandleGetResultMsgpack)
	demoGroup.GET("/:id/events", handlers.Demo.HandleSessionEvents)
	demoGroup.GET("/:id/ws", handlers.WebSocket.HandleWebSocket)
}

// isStreamRequest reports whether a request holds its connection open.
func isStreamRequest(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasSuffix(path, "/events") ||
		strings.HasSuffix(path, "/ws") ||
		c.Request().Header.Get("Accept") == "text/event-stream"
}

// SetupMiddleware configures common middleware from the server configuration
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig, embeddedMode bool) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			return c.Request().URL.Path == "/api/health"
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return isStreamRequest(c) || strings.HasSuffix(c.Request().URL.Path, "/file")
		},
		ErrorMessage: "Request timeout",
	}))

	// Compression middleware
	if cfg.Server.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   cfg.Server.CompressionLevel,
			Skipper: isStreamRequest,
		}))
	}

	// Body limit middleware
	if cfg.Server.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))
	}

	if !cfg.Server.EnableCORS {
		return
	}

	methods := []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	if embeddedMode {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: allowedOrigins(cfg.Server.AllowOrigins),
			AllowMethods: methods,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
		return
	}

	// Development mode - only allow localhost
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{
			"http://localhost:3000", "http://127.0.0.1:3000",
			"http://localhost:5173", "http://127.0.0.1:5173",
		},
		AllowMethods: methods,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
}

// allowedOrigins splits the comma separated origin list; empty means any.
func allowedOrigins(list string) []string {
	var origins []string
	for _, o := range strings.Split(list, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
