package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"mishwar/internal/amqp"
	"mishwar/internal/config"
	apphttp "mishwar/internal/http"
	applog "mishwar/internal/log"
	"mishwar/internal/services"
	"mishwar/internal/storage"
	"mishwar/internal/token"
)

func main() {
	// Load .env for local development, production sets real env vars.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	defaultPrice, err := decimal.NewFromString(cfg.DefaultFuelPrice)
	if err != nil || defaultPrice.Sign() <= 0 {
		logger.Error("Invalid default fuel price", "value", cfg.DefaultFuelPrice)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional. Without it records stay pending until the worker's
	// periodic scan picks them up.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled, sync messages will not be published")
	}

	records := services.NewRecordService(repo, publisher, defaultPrice)
	users := services.NewUserService(repo)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := users.EnsureBootstrapAdmin(bootCtx, cfg.BootstrapAdmin, cfg.BootstrapPassword); err != nil {
		bootCancel()
		logger.Error("Failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}
	bootCancel()

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)

	srv := apphttp.NewServer(":"+cfg.Port, records, users, tokens)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting mishwar server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
