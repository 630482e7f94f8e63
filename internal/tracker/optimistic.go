package tracker

import (
	"sync"
	"time"

	"github.com/careflow/medtrack/internal/domain/medication"
)

// EditState is the per-record reconciliation state of an optimistic edit.
type EditState int

const (
	// StateConfirmed means the displayed value came from the store.
	StateConfirmed EditState = iota
	// StatePending means a local edit is displayed ahead of confirmation.
	StatePending
	// StateReverted means a pending edit was discarded because the store
	// disagreed (record gone or authoritatively newer).
	StateReverted
)

type pendingEdit struct {
	status   *medication.Status
	billed   *bool
	stagedAt time.Time
}

// Overlay applies local edits to snapshots ahead of store confirmation.
// Precedence is explicit: a pending edit wins over a confirmed record whose
// updatedAt predates the edit; a confirmed record stamped at or after the
// edit wins and clears it. There is no silent last-snapshot-wins.
type Overlay struct {
	mu       sync.Mutex
	now      func() time.Time
	pending  map[string]pendingEdit
	reverted map[string]bool
}

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{
		now:      func() time.Time { return time.Now().UTC() },
		pending:  make(map[string]pendingEdit),
		reverted: make(map[string]bool),
	}
}

// SetNow overrides the clock. Tests only.
func (o *Overlay) SetNow(now func() time.Time) { o.now = now }

// StageStatus records a local status change for id, displayed immediately.
func (o *Overlay) StageStatus(id string, status medication.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e := o.pending[id]
	e.status = &status
	e.stagedAt = o.now()
	o.pending[id] = e
	delete(o.reverted, id)
}

// StageBilling records a local billing toggle for id, displayed immediately.
func (o *Overlay) StageBilling(id string, billed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e := o.pending[id]
	e.billed = &billed
	e.stagedAt = o.now()
	o.pending[id] = e
	delete(o.reverted, id)
}

// Apply merges pending edits into an authoritative snapshot and returns the
// list to display. The input is not mutated. Reconciliation per record:
//
//   - record.UpdatedAt >= edit time: the store has caught up (or someone else
//     won the write race); the edit is cleared, record shown as confirmed.
//   - record.UpdatedAt < edit time: the snapshot is older than the edit; the
//     edit stays pending and overrides the stale fields.
//   - record absent from the snapshot: the edit is reverted.
func (o *Overlay) Apply(snapshot []medication.Request) []medication.Request {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.pending) == 0 {
		out := make([]medication.Request, len(snapshot))
		copy(out, snapshot)
		return out
	}

	seen := make(map[string]bool, len(snapshot))
	out := make([]medication.Request, 0, len(snapshot))
	for _, req := range snapshot {
		seen[req.ID] = true
		edit, ok := o.pending[req.ID]
		if !ok {
			out = append(out, req)
			continue
		}
		if !req.UpdatedAt.Before(edit.stagedAt) {
			delete(o.pending, req.ID)
			out = append(out, req)
			continue
		}
		if edit.status != nil {
			req.Status = *edit.status
		}
		if edit.billed != nil {
			req.Billed = *edit.billed
		}
		out = append(out, req)
	}

	for id := range o.pending {
		if !seen[id] {
			delete(o.pending, id)
			o.reverted[id] = true
		}
	}
	return out
}

// State reports the reconciliation state of id.
func (o *Overlay) State(id string) EditState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.pending[id]; ok {
		return StatePending
	}
	if o.reverted[id] {
		return StateReverted
	}
	return StateConfirmed
}
