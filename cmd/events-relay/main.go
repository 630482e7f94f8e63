// Package main provides the change-event relay service entry point.
// It bridges document-store snapshot deliveries onto the Kafka change
// topic for downstream consumers.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/careflow/medtrack/internal/events"
	"github.com/careflow/medtrack/internal/observability/metrics"
	"github.com/careflow/medtrack/internal/observability/tracing"
	"github.com/careflow/medtrack/internal/store"
	"github.com/careflow/medtrack/internal/tracker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	brokers := []string{"localhost:9092"}
	if b := os.Getenv("KAFKA_BROKERS"); b != "" {
		brokers = strings.Split(b, ",")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, tracing.ConfigFromEnv("events-relay"))
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

	admin, err := events.NewAdmin(brokers, logger)
	if err != nil {
		logger.Fatal("admin client creation failed", zap.Error(err))
	}
	if err := admin.EnsureTopics(ctx); err != nil {
		logger.Fatal("topic creation failed", zap.Error(err))
	}
	admin.Close()

	producerCfg := events.DefaultProducerConfig()
	producerCfg.Brokers = brokers
	producer, err := events.NewProducer(producerCfg, logger)
	if err != nil {
		logger.Fatal("producer creation failed", zap.Error(err))
	}
	defer producer.Close()
	logger.Info("connected to Kafka", zap.Strings("brokers", brokers))

	m := metrics.New()
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		metricsPort = "9091"
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(":"+metricsPort, mux); err != nil {
			logger.Warn("metrics endpoint stopped", zap.Error(err))
		}
	}()

	relay := events.NewRelay(tracker.NewListener(st, logger), producer, m, logger)

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()
	logger.Info("change relay started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutting down")
		cancel()
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("relay failed", zap.Error(err))
		}
	}

	logger.Info("change relay stopped")
}
