package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"docconvert/internal/config"
	"docconvert/internal/converter"
	"docconvert/internal/domain/services"
	"docconvert/internal/handler"
	"docconvert/internal/middleware"
	"docconvert/internal/scratch"
	"docconvert/internal/service"
	"docconvert/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging, teed into a rotated file when LOG_DIR is set
	logOutput, closeLog, err := config.LogOutput(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to setup log file: %v", err)
	}
	defer closeLog()
	logger := config.NewLogger(cfg, logOutput)
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"upload_dir", cfg.UploadDir,
		"converted_dir", cfg.ConvertedDir,
	)

	// Scratch directories are created up front so requests never race on them
	workspace, err := scratch.NewWorkspace(cfg.UploadDir, cfg.ConvertedDir, logger)
	if err != nil {
		log.Fatalf("Failed to prepare scratch directories: %v", err)
	}

	// Converter
	office := converter.NewLibreOffice(cfg.SofficePath, cfg.ConvertTimeout, logger)
	if err := office.Check(); err != nil {
		// Not fatal: /health stays up and conversions report the problem
		logger.Warn("converter unavailable", "binary", cfg.SofficePath, "error", err)
	}

	// Remote retention
	var store services.RemoteStore = storage.Disabled{}
	if cfg.RetentionEnabled() {
		cloudinaryStore, err := storage.NewCloudinaryStore(
			cfg.CloudinaryCloudName,
			cfg.CloudinaryAPIKey,
			cfg.CloudinaryAPISecret,
			logger,
		)
		if err != nil {
			log.Fatalf("Failed to create Cloudinary client: %v", err)
		}
		store = cloudinaryStore
	} else {
		logger.Warn("remote retention disabled: Cloudinary credentials not configured")
	}
	logger.Info("retention configured",
		"store", store.Name(),
		"folder", cfg.RetentionFolder,
		"policy", cfg.RetentionPolicy,
	)

	conversionService := service.NewConversionService(office, store, service.RetentionOptions{
		Folder:  cfg.RetentionFolder,
		Policy:  cfg.RetentionPolicy,
		Timeout: cfg.RetentionTimeout,
	}, logger)

	// Create handlers
	convertHandler := handler.NewConvertHandler(workspace, conversionService, cfg.MaxUploadBytes(), logger)
	healthHandler := handler.NewHealthHandler(logger)
	pageHandler, err := handler.NewPageHandler(cfg.PublicEndpoint, logger)
	if err != nil {
		log.Fatalf("Failed to render upload page: %v", err)
	}

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Check)
	mux.HandleFunc("POST /convert", convertHandler.Convert)

	// Upload page
	mux.HandleFunc("GET /{$}", pageHandler.Index)
	mux.HandleFunc("GET /static/", pageHandler.Static)

	// Build middleware chain
	var handler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestLogger → SecurityHeaders → Routes
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.RequestLogger(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	// CORS - outermost so OPTIONS pre-flight requests are answered directly
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID"},
	})
	handler = corsHandler.Handler(handler)

	// Create HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		// Covers the upload, the conversion and the retention copy
		WriteTimeout: cfg.ConvertTimeout + cfg.RetentionTimeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port, "max_upload_mb", cfg.MaxUploadMB)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
