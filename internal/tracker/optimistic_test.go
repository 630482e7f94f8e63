package tracker

import (
	"testing"
	"time"

	"github.com/careflow/medtrack/internal/domain/medication"
)

func overlayClock(start time.Time) (*Overlay, func(d time.Duration)) {
	o := NewOverlay()
	now := start
	o.SetNow(func() time.Time { return now })
	return o, func(d time.Duration) { now = now.Add(d) }
}

func TestOverlayPendingEditWinsOverStaleSnapshot(t *testing.T) {
	base := time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC)
	o, advance := overlayClock(base.Add(time.Minute))

	advance(0)
	o.StageBilling("a", true)

	// Snapshot stamped before the edit: the local toggle must survive.
	stale := []medication.Request{{ID: "a", Billed: false, UpdatedAt: base}}
	out := o.Apply(stale)
	if !out[0].Billed {
		t.Fatal("stale snapshot reverted a pending edit")
	}
	if o.State("a") != StatePending {
		t.Fatalf("state = %v, want StatePending", o.State("a"))
	}
}

func TestOverlayNewerSnapshotConfirms(t *testing.T) {
	base := time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC)
	o, _ := overlayClock(base)

	o.StageStatus("a", medication.StatusPacked)

	confirmed := []medication.Request{{
		ID:        "a",
		Status:    medication.StatusPacked,
		UpdatedAt: base.Add(time.Second),
	}}
	out := o.Apply(confirmed)
	if out[0].Status != medication.StatusPacked {
		t.Fatalf("status = %q", out[0].Status)
	}
	if o.State("a") != StateConfirmed {
		t.Fatalf("state = %v, want StateConfirmed", o.State("a"))
	}

	// A later, different authoritative value now wins outright.
	other := []medication.Request{{
		ID:        "a",
		Status:    medication.StatusReturned,
		UpdatedAt: base.Add(2 * time.Second),
	}}
	out = o.Apply(other)
	if out[0].Status != medication.StatusReturned {
		t.Fatalf("confirmed record overridden: %q", out[0].Status)
	}
}

func TestOverlayEqualTimestampConfirms(t *testing.T) {
	base := time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC)
	o, _ := overlayClock(base)

	o.StageBilling("a", true)

	// Equal-or-newer confirmed snapshot wins over the pending edit.
	out := o.Apply([]medication.Request{{ID: "a", Billed: false, UpdatedAt: base}})
	if out[0].Billed {
		t.Fatal("equal-timestamp snapshot should clear the pending edit")
	}
	if o.State("a") != StateConfirmed {
		t.Fatalf("state = %v, want StateConfirmed", o.State("a"))
	}
}

func TestOverlayMissingRecordReverts(t *testing.T) {
	o := NewOverlay()
	o.StageStatus("gone", medication.StatusDelivered)

	out := o.Apply([]medication.Request{{ID: "other"}})
	if len(out) != 1 || out[0].ID != "other" {
		t.Fatalf("unexpected list %+v", out)
	}
	if o.State("gone") != StateReverted {
		t.Fatalf("state = %v, want StateReverted", o.State("gone"))
	}

	// Staging again clears the reverted marker.
	o.StageStatus("gone", medication.StatusPacked)
	if o.State("gone") != StatePending {
		t.Fatalf("state = %v, want StatePending", o.State("gone"))
	}
}

func TestOverlayDoesNotMutateInput(t *testing.T) {
	base := time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC)
	o, _ := overlayClock(base.Add(time.Hour))

	o.StageStatus("a", medication.StatusPacked)
	in := []medication.Request{{ID: "a", Status: medication.StatusNotSorted, UpdatedAt: base}}
	out := o.Apply(in)

	if in[0].Status != medication.StatusNotSorted {
		t.Fatal("input snapshot mutated")
	}
	if out[0].Status != medication.StatusPacked {
		t.Fatalf("output = %q, want pending status", out[0].Status)
	}
}

func TestOverlayCombinedEdits(t *testing.T) {
	base := time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC)
	o, _ := overlayClock(base.Add(time.Hour))

	o.StageStatus("a", medication.StatusSentForDelivery)
	o.StageBilling("a", true)

	out := o.Apply([]medication.Request{{ID: "a", UpdatedAt: base, Status: medication.StatusNotSorted}})
	if out[0].Status != medication.StatusSentForDelivery || !out[0].Billed {
		t.Fatalf("combined edits not applied: %+v", out[0])
	}
}
