// Package main provides the tracker API service entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/careflow/medtrack/internal/api/handlers"
	"github.com/careflow/medtrack/internal/api/middleware"
	"github.com/careflow/medtrack/internal/auth"
	"github.com/careflow/medtrack/internal/filestore"
	"github.com/careflow/medtrack/internal/observability/metrics"
	"github.com/careflow/medtrack/internal/observability/tracing"
	"github.com/careflow/medtrack/internal/store"
	"github.com/careflow/medtrack/internal/tracker"
	"github.com/careflow/medtrack/internal/tracker/gateway"
)

// Config holds application configuration
type Config struct {
	Port     string
	Accounts map[string]string
	LogLevel string
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := loadConfig()
	ctx := context.Background()

	tp, err := tracing.Init(ctx, tracing.ConfigFromEnv("tracker-api"))
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	st, err := store.Open(ctx, logger)
	if err != nil {
		logger.Fatal("failed to open document store", zap.Error(err))
	}
	defer st.Close()
	logger.Info("document store ready", zap.String("driver", string(st.Driver())))

	files, err := filestore.Open(ctx, logger)
	if err != nil {
		logger.Fatal("failed to open file storage", zap.Error(err))
	}
	logger.Info("file storage ready", zap.String("driver", string(files.Driver())))

	provider := auth.NewStaticProvider(cfg.Accounts)
	listener := tracker.NewListener(st, logger)

	gw, err := gateway.New(st, logger)
	if err != nil {
		logger.Fatal("failed to build mutation gateway", zap.Error(err))
	}

	m := metrics.New()
	requestHandler := handlers.NewRequestHandler(st, gw, listener, files, m, logger)
	authHandler := handlers.NewAuthHandler(provider, logger)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing("tracker-api"))

	r.Get("/health", healthHandler)
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if _, err := st.Snapshot(r.Context(), tracker.Collection); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())
		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(provider))
			r.Mount("/requests", requestHandler.Routes())
		})
	})

	// WriteTimeout stays zero: /requests/stream holds the response open
	// for the life of the subscription.
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting tracker API", zap.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}

	logger.Info("server stopped")
}

func loadConfig() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Demo account for local development, overridable via
	// MEDTRACK_AUTH_ACCOUNTS=email:password[,email:password...]
	accounts := map[string]string{
		"staff@example.com": "demo-password",
	}
	if raw := os.Getenv("MEDTRACK_AUTH_ACCOUNTS"); raw != "" {
		accounts = map[string]string{}
		for _, pair := range strings.Split(raw, ",") {
			email, password, ok := strings.Cut(pair, ":")
			if ok {
				accounts[strings.TrimSpace(email)] = password
			}
		}
	}

	return Config{
		Port:     port,
		Accounts: accounts,
		LogLevel: os.Getenv("LOG_LEVEL"),
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","service":"tracker-api","version":"1.0.0"}`)
}
