package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/pdf2json/landing/internal/api"
	"github.com/pdf2json/landing/internal/config"
	"github.com/pdf2json/landing/internal/content"
	"github.com/pdf2json/landing/internal/logger"
	"github.com/pdf2json/landing/internal/parseclient"
	"github.com/pdf2json/landing/internal/session"
	"github.com/pdf2json/landing/internal/storage"
	"github.com/pdf2json/landing/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("Warning: failed to load .env: %v\n", err)
	}

	configPath, err := resolveConfigPath()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Advanced.LogLevel)

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("failed to create directories", "error", err)
		os.Exit(1)
	}

	maxFileSize, err := cfg.MaxFileSizeBytes()
	if err != nil {
		logger.Error("invalid storage configuration", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir(), maxFileSize)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	parser := parseclient.New(cfg.Backend.BaseURL, cfg.BackendTimeout())

	// Initialize session manager
	sessionMgr := session.NewManager(fileStore, parser, session.Options{
		MaxSessions:         cfg.Demo.MaxSessions,
		RequestTimeout:      cfg.BackendTimeout(),
		DiscardStaleResults: cfg.Demo.DiscardStaleResults,
	})

	site, err := content.Default()
	if err != nil {
		logger.Error("failed to load site content", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start background session cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := sessionMgr.CleanupOldSessions(cfg.SessionTimeout()); n > 0 {
					logger.Info("removed idle demo sessions", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Check if the landing page is built into the binary
	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true
	api.ShowErrorDetails = cfg.Advanced.LogLevel == "debug"

	api.SetupMiddleware(e, cfg, embeddedMode)
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Sessions:           sessionMgr,
		Site:               site,
		Version:            Version,
		WSMaxMessageSizeKB: cfg.Advanced.WebSocketMaxMessageSize,
	}))

	// Register embedded landing page if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("failed to register static routes", "error", err)
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(configPath, cfg, parser.Endpoint(), embeddedMode)

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	// Pending backend requests resolve within the backend timeout
	sessionMgr.Wait()
}

// resolveConfigPath prefers CONFIG_PATH, then the file next to the executable.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exePath), config.FileName), nil
}

func printBanner(configPath string, cfg *config.AppConfig, endpoint string, embeddedMode bool) {
	mode := "API only"
	if embeddedMode {
		mode = "Embedded landing page"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           PDF to JSON Server                              ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Backend:   %-46s║\n", endpoint)
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}
}
