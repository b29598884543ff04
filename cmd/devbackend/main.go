// Command devbackend runs a local stand-in for the PDF parsing service.
//
//	DEV_BACKEND_MODE=fenced DEV_BACKEND_PORT=8091 go run ./cmd/devbackend
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pdf2json/landing/internal/devbackend"
	"github.com/pdf2json/landing/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("Warning: failed to load .env: %v\n", err)
	}

	logger.Init(os.Getenv("LOG_LEVEL"))

	mode, err := devbackend.ParseMode(os.Getenv("DEV_BACKEND_MODE"))
	if err != nil {
		logger.Error("invalid DEV_BACKEND_MODE", "error", err)
		os.Exit(1)
	}

	port := os.Getenv("DEV_BACKEND_PORT")
	if port == "" {
		port = "8091"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	devbackend.New(mode, "").Register(e)

	logger.Info("dev backend listening", "port", port, "mode", mode)
	if err := e.Start(":" + port); err != nil {
		logger.Error("dev backend stopped", "error", err)
		os.Exit(1)
	}
}
