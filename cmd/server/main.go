package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/expense-tracker-be/internal/auth"
	"github.com/hongminglow/expense-tracker-be/internal/backend"
	"github.com/hongminglow/expense-tracker-be/internal/config"
	"github.com/hongminglow/expense-tracker-be/internal/events"
	"github.com/hongminglow/expense-tracker-be/internal/insights"
	"github.com/hongminglow/expense-tracker-be/internal/log"
	"github.com/hongminglow/expense-tracker-be/internal/server"
)

func main() {
	envLoaded := loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)
	appLogger := log.Component(logger, log.ComponentApp)
	if !envLoaded {
		appLogger.Debug("no .env file found; relying on existing environment")
	}

	if err := run(cfg, logger); err != nil {
		appLogger.Error("server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	appLogger := log.Component(logger, log.ComponentApp)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := backend.Open(ctx, cfg, log.Component(logger, log.ComponentStorage))
	cancel()
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer store.Close()

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	deps := server.Deps{
		Store:     store,
		Publisher: publisher,
		Completer: newCompleter(cfg, appLogger),
	}
	if cfg.GoogleEnabled() {
		deps.Provider = auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		appLogger.Info("Google login enabled")
	}

	srv := server.New(cfg, deps, logger)

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("expense tracker backend listening", log.FieldOperation, log.OpStartup, "addr", cfg.HTTPAddress(), "backend", cfg.DataBackend)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		appLogger.Info("shutting down", log.FieldOperation, log.OpShutdown, "signal", sig.String())
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// newPublisher connects to the broker when configured. A broker outage at
// startup degrades to no events rather than failing the server.
func newPublisher(cfg config.Config, logger *slog.Logger) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.Nop{}
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		log.Component(logger, log.ComponentEvents).Warn("AMQP unavailable, expense events disabled", log.FieldError, err)
		return events.Nop{}
	}
	return publisher
}

func newCompleter(cfg config.Config, logger *slog.Logger) insights.Completer {
	if !cfg.AIEnabled() {
		logger.Warn("OPENAI_API_KEY is not set; insights and voice parsing return fallbacks")
		return insights.Disabled{}
	}
	return insights.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
}

func loadLocalEnv() bool {
	return godotenv.Load() == nil
}
