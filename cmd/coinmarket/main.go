package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anujgarg/coinmarket-api/internal/auth"
	"github.com/anujgarg/coinmarket-api/internal/coingecko"
	"github.com/anujgarg/coinmarket-api/internal/config"
	"github.com/anujgarg/coinmarket-api/internal/server"
	"github.com/anujgarg/coinmarket-api/pkg/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create logger
	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Build the fixed credential store and auth service
	store, err := auth.NewUserStore(map[string]string{
		cfg.SeedUser.Username: cfg.SeedUser.Password,
	})
	if err != nil {
		zapLogger.Fatal("Failed to build user store", zap.Error(err))
	}

	authSvc, err := auth.NewService(zapLogger, store, cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	if err != nil {
		zapLogger.Fatal("Failed to create auth service", zap.Error(err))
	}

	// Upstream market-data client
	marketSvc := coingecko.NewClient(
		zapLogger,
		cfg.CoinGecko.BaseURL,
		cfg.CoinGecko.RequestTimeout,
		cfg.CoinGecko.ProbeTimeout,
	)

	// Create API server
	apiServer := server.NewServer(zapLogger, cfg, authSvc, marketSvc)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("Starting API server", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	// Wait for interrupt to shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		zapLogger.Error("Forced shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited properly")
}
