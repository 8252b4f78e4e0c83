package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stream-verification/internal/alerts"
	"stream-verification/internal/api"
	"stream-verification/internal/config"
	"stream-verification/internal/db"
	"stream-verification/internal/detection"
	"stream-verification/internal/oracle"
	"stream-verification/internal/repository"
	"stream-verification/internal/service"
	"stream-verification/internal/webrtc"
	"stream-verification/internal/ws"
)

func main() {
	log.Println("Starting Stream Verification...")

	// Load configuration
	cfg := config.New()

	// Connect to PostgreSQL
	dbConn, err := db.ConnectPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()
	log.Println("Database connected successfully")

	// Initialize repository
	sessionRepo := repository.NewSessionRepository(dbConn)

	// Initialize oracle client with bounded verdict cache
	httpClient := oracle.NewHTTPClient(cfg.OracleAPIURL, cfg.OracleAPIKey, cfg.OracleModel, cfg.OracleTimeout)
	oracleClient, err := oracle.NewCachingClient(httpClient, cfg.OracleCacheLen)
	if err != nil {
		log.Fatalf("Failed to initialize oracle cache: %v", err)
	}

	// Initialize detection engine
	engine := detection.NewEngine(oracleClient,
		cfg.ConfidenceThreshold, cfg.VideoAlertRatio, cfg.AudioAlertRatio)

	// Initialize alert publisher
	var publisher ws.AlertPublisher
	if cfg.RabbitMQEnabled {
		rabbitPublisher, err := alerts.NewPublisher(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize RabbitMQ: %v. Will continue without RabbitMQ.", err)
		} else {
			defer rabbitPublisher.Close()
			publisher = rabbitPublisher
		}
	}

	// Initialize screenshot storage
	screenshots, err := service.NewScreenshotStore(cfg.ScreenshotDir)
	if err != nil {
		log.Fatalf("Failed to initialize screenshot storage: %v", err)
	}

	// Initialize stream endpoints
	registry := ws.NewRegistry()
	streamHandler := ws.NewHandler(cfg, engine, publisher, sessionRepo, registry)

	// WebRTC ingest transport: each peer drives its own video session
	webrtcHandler := webrtc.NewStreamHandler(func() *ws.Orchestrator {
		session := service.NewVideoSession(engine,
			cfg.VideoAnalyzeEvery, cfg.VideoBufferCap, cfg.VideoHistoryCap)
		return ws.NewOrchestrator(ws.KindVideo, session, cfg.VideoAckInterval, publisher, sessionRepo)
	})

	// Setup HTTP server
	handler := api.NewHandler(cfg, engine, screenshots, sessionRepo, registry, webrtcHandler)
	router := api.SetupRoutes(handler, streamHandler)
	server := api.NewHTTPServer(cfg, router)

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
