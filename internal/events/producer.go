package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ProducerConfig holds Kafka producer settings. The relay's volume is a
// trickle next to the backends this client supports, so defaults favor
// durability over batching throughput.
type ProducerConfig struct {
	Brokers            []string
	LingerMS           int64
	MaxBufferedRecords int
	MaxRetries         int
	RetryBackoffMS     int64
}

func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:            []string{"localhost:9092"},
		LingerMS:           50,
		MaxBufferedRecords: 10_000,
		MaxRetries:         3,
		RetryBackoffMS:     100,
	}
}

// Producer publishes change events, keyed by record id so per-record
// ordering survives partitioning.
type Producer struct {
	client *kgo.Client
	logger *zap.Logger
	tracer trace.Tracer

	mu           sync.Mutex
	eventsSent   int64
	publishFails int64
}

func NewProducer(cfg ProducerConfig, logger *zap.Logger) (*Producer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerLinger(time.Duration(cfg.LingerMS) * time.Millisecond),
		kgo.MaxBufferedRecords(cfg.MaxBufferedRecords),
		kgo.RecordRetries(cfg.MaxRetries),
		kgo.RetryBackoffFn(func(attempt int) time.Duration {
			return time.Duration(cfg.RetryBackoffMS) * time.Millisecond * time.Duration(attempt+1)
		}),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.Lz4Compression()),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Producer{
		client: client,
		logger: logger,
		tracer: otel.Tracer("events-producer"),
	}, nil
}

// Publish sends one change event and waits for the broker ack.
func (p *Producer) Publish(ctx context.Context, change Change) error {
	ctx, span := p.tracer.Start(ctx, "publish_change",
		trace.WithAttributes(
			attribute.String("change.kind", string(change.Kind)),
			attribute.String("record.id", change.ID),
		))
	defer span.End()

	value, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	record := &kgo.Record{
		Topic: TopicRequestChanges,
		Key:   []byte(change.ID),
		Value: value,
	}
	injectTraceHeaders(ctx, record)

	var produceErr error
	var wg sync.WaitGroup
	wg.Add(1)
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		defer wg.Done()
		if err != nil {
			produceErr = err
			p.count(&p.publishFails)
			p.logger.Error("failed to publish change",
				zap.String("kind", string(change.Kind)),
				zap.String("id", change.ID),
				zap.Error(err))
			span.RecordError(err)
			return
		}
		p.count(&p.eventsSent)
		p.logger.Debug("change published",
			zap.String("kind", string(change.Kind)),
			zap.String("id", change.ID),
			zap.Int32("partition", r.Partition),
			zap.Int64("offset", r.Offset))
	})
	wg.Wait()
	return produceErr
}

// Flush blocks until all buffered records are sent.
func (p *Producer) Flush(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Close flushes and closes the client.
func (p *Producer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("error flushing on close", zap.Error(err))
	}
	p.client.Close()
	return nil
}

// Stats reports publish counters.
func (p *Producer) Stats() (sent, failed int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eventsSent, p.publishFails
}

func (p *Producer) count(c *int64) {
	p.mu.Lock()
	*c++
	p.mu.Unlock()
}

// injectTraceHeaders carries the trace context into record headers so
// consumers can continue the trace.
func injectTraceHeaders(ctx context.Context, record *kgo.Record) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	sc := span.SpanContext()
	record.Headers = append(record.Headers,
		kgo.RecordHeader{Key: "traceparent", Value: []byte(fmt.Sprintf("00-%s-%s-%02x",
			sc.TraceID().String(),
			sc.SpanID().String(),
			sc.TraceFlags()))},
	)
}
