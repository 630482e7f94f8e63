package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/careflow/medtrack/internal/domain/medication"
	"github.com/careflow/medtrack/internal/observability/metrics"
	"github.com/careflow/medtrack/internal/tracker"
)

// Publisher is the sink the relay writes to.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Relay bridges snapshot deliveries to the change topic. It holds the
// previous snapshot, diffs each delivery against it, and publishes the
// resulting events. The first snapshot establishes the baseline without
// publishing, so a relay restart does not replay the whole collection.
type Relay struct {
	listener *tracker.Listener
	pub      Publisher
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewRelay wires the relay. A nil metrics disables counting.
func NewRelay(listener *tracker.Listener, pub Publisher, m *metrics.Metrics, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{listener: listener, pub: pub, metrics: m, logger: logger, now: time.Now}
}

// Run subscribes and relays until ctx ends or the subscription fails.
func (r *Relay) Run(ctx context.Context) error {
	sub, err := r.listener.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	var prev []medication.Request
	baseline := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Errs():
			r.logger.Error("subscription failed", zap.Error(err))
			return err
		case snap, ok := <-sub.Updates():
			if !ok {
				return nil
			}
			if !baseline {
				prev = snap
				baseline = true
				r.logger.Info("baseline snapshot established", zap.Int("records", len(snap)))
				continue
			}
			r.publish(ctx, Diff(prev, snap, r.now()))
			prev = snap
		}
	}
}

// publish logs and continues on per-event failures: missing one event is
// recoverable downstream, stalling the relay is not.
func (r *Relay) publish(ctx context.Context, changes []Change) {
	for _, change := range changes {
		if err := r.pub.Publish(ctx, change); err != nil {
			r.logger.Error("publish change failed",
				zap.String("kind", string(change.Kind)),
				zap.String("id", change.ID),
				zap.Error(err))
			continue
		}
		if r.metrics != nil {
			r.metrics.ChangesPublished.Inc()
		}
	}
}
