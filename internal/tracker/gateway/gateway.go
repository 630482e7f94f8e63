// Package gateway exposes the four mutations against the medications
// collection. Each call is independent, single-shot, and never retried:
// consistency with readers comes only from the store's own change
// notification re-delivering the updated record.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/careflow/medtrack/internal/domain/medication"
	"github.com/careflow/medtrack/internal/store"
	"github.com/careflow/medtrack/pkg/circuitbreaker"
)

// Collection is the document collection the gateway writes to.
const Collection = "medications"

// ErrInvalidStatus rejects a status outside the enumeration before it
// reaches the store.
var ErrInvalidStatus = errors.New("gateway: invalid status")

// Result is the discriminated outcome of a mutation. A failed call carries
// the cause in Err; the caller owns any user-facing messaging.
type Result struct {
	Success bool
	Err     error
}

func ok() Result            { return Result{Success: true} }
func fail(err error) Result { return Result{Err: err} }

// Gateway issues mutations through a circuit breaker.
type Gateway struct {
	store   store.Store
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a gateway over st.
func New(st store.Store, logger *zap.Logger) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker, err := circuitbreaker.New(circuitbreaker.DefaultConfig("document-store"), logger)
	if err != nil {
		return nil, fmt.Errorf("create breaker: %w", err)
	}
	return &Gateway{
		store:   st,
		breaker: breaker,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetNow overrides the clock. Tests only.
func (g *Gateway) SetNow(now func() time.Time) { g.now = now }

// UpdateStatus writes the new status plus a refreshed updated timestamp.
func (g *Gateway) UpdateStatus(ctx context.Context, id string, status medication.Status) Result {
	if !status.Valid() {
		return fail(fmt.Errorf("%w: %q", ErrInvalidStatus, status))
	}
	return g.update(ctx, "status", id, map[string]any{"status": string(status)})
}

// UpdateBilling writes the billed flag plus a refreshed updated timestamp.
func (g *Gateway) UpdateBilling(ctx context.Context, id string, billed bool) Result {
	return g.update(ctx, "billing", id, map[string]any{"billed": billed})
}

// UpdateFields merges the populated members of patch into the record,
// leaving everything else untouched, plus a refreshed updated timestamp.
func (g *Gateway) UpdateFields(ctx context.Context, id string, patch medication.FieldPatch) Result {
	if patch.IsZero() {
		return ok()
	}
	return g.update(ctx, "fields", id, patch.Fields())
}

// DeleteRecord permanently removes the record.
func (g *Gateway) DeleteRecord(ctx context.Context, id string) Result {
	_, err := g.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, g.store.Delete(ctx, Collection, id)
	})
	if err != nil {
		g.logger.Error("delete failed", zap.String("id", id), zap.Error(err))
		return fail(err)
	}
	return ok()
}

func (g *Gateway) update(ctx context.Context, op, id string, fields map[string]any) Result {
	fields["updatedAt"] = g.now().Format(time.RFC3339)

	_, err := g.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, g.store.Update(ctx, Collection, id, fields)
	})
	if err != nil {
		g.logger.Error("update failed",
			zap.String("op", op), zap.String("id", id), zap.Error(err))
		return fail(err)
	}
	return ok()
}
