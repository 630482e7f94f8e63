// Package events derives discrete change events from full-snapshot
// deliveries and publishes them to Kafka for downstream consumers
// (billing reconciliation, notifications). The store hands subscribers
// the complete record set on every change, so the relay diffs
// consecutive snapshots to recover what actually happened.
package events

import (
	"time"

	"github.com/careflow/medtrack/internal/domain/medication"
)

// Kind classifies a change event.
type Kind string

const (
	KindAdded   Kind = "added"
	KindUpdated Kind = "updated"
	KindRemoved Kind = "removed"
)

// Change is one record-level event. Record carries the post-change state,
// or the last known state for removals.
type Change struct {
	Kind   Kind               `json:"kind"`
	ID     string             `json:"id"`
	Record medication.Request `json:"record"`
	At     time.Time          `json:"at"`
}

// Diff compares consecutive snapshots and returns record-level changes in
// snapshot order, removals last. Two records are considered equal when all
// fields match; timestamp fields compare by instant.
func Diff(prev, next []medication.Request, at time.Time) []Change {
	prevByID := make(map[string]medication.Request, len(prev))
	for _, r := range prev {
		prevByID[r.ID] = r
	}

	var changes []Change
	seen := make(map[string]bool, len(next))
	for _, r := range next {
		seen[r.ID] = true
		old, ok := prevByID[r.ID]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: KindAdded, ID: r.ID, Record: r, At: at})
		case !equal(old, r):
			changes = append(changes, Change{Kind: KindUpdated, ID: r.ID, Record: r, At: at})
		}
	}
	for _, r := range prev {
		if !seen[r.ID] {
			changes = append(changes, Change{Kind: KindRemoved, ID: r.ID, Record: r, At: at})
		}
	}
	return changes
}

func equal(a, b medication.Request) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) || !a.UpdatedAt.Equal(b.UpdatedAt) {
		return false
	}
	a.CreatedAt, b.CreatedAt = time.Time{}, time.Time{}
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}
