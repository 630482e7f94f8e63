package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/careflow/medtrack/internal/store/core"
)

func TestMemoryInsertAssignsIDAndTimestamps(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.Insert(ctx, "medications", map[string]any{"name": "John Doe"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	snap, err := m.Snapshot(ctx, "medications")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Docs) != 1 {
		t.Fatalf("got %d docs, want 1", len(snap.Docs))
	}
	doc := snap.Docs[0]
	if doc.ID != id || doc.CreatedAt.IsZero() || doc.UpdatedAt.IsZero() {
		t.Errorf("unexpected doc %+v", doc)
	}
}

func TestMemoryUpdateMergesFields(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, _ := m.Insert(ctx, "medications", map[string]any{
		"name":   "John Doe",
		"status": "Not Sorted",
	})

	if err := m.Update(ctx, "medications", id, map[string]any{"status": "Packed"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	snap, _ := m.Snapshot(ctx, "medications")
	fields := snap.Docs[0].Fields
	if fields["status"] != "Packed" {
		t.Errorf("status = %v, want Packed", fields["status"])
	}
	if fields["name"] != "John Doe" {
		t.Errorf("merge must not touch absent fields, name = %v", fields["name"])
	}
}

func TestMemoryUpdateMissingDocument(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.Update(ctx, "medications", "nope", map[string]any{"billed": true})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := m.Delete(ctx, "medications", "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryOrderingNewestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	base := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	clock := base
	m.SetNow(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	first, _ := m.Insert(ctx, "medications", map[string]any{"name": "first"})
	second, _ := m.Insert(ctx, "medications", map[string]any{"name": "second"})

	snap, _ := m.Snapshot(ctx, "medications")
	if snap.Docs[0].ID != second || snap.Docs[1].ID != first {
		t.Errorf("expected newest first, got %s then %s", snap.Docs[0].ID, snap.Docs[1].ID)
	}
}

func TestMemoryWatchDeliversChanges(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, _, err := m.Watch(ctx, "medications")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	// Initial snapshot is empty.
	snap := recvSnapshot(t, updates)
	if len(snap.Docs) != 0 {
		t.Fatalf("initial snapshot has %d docs, want 0", len(snap.Docs))
	}

	id, _ := m.Insert(ctx, "medications", map[string]any{"name": "Jane"})
	snap = recvSnapshot(t, updates)
	if len(snap.Docs) != 1 || snap.Docs[0].ID != id {
		t.Fatalf("change snapshot = %+v", snap.Docs)
	}

	if err := m.Delete(ctx, "medications", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap = recvSnapshot(t, updates)
	if len(snap.Docs) != 0 {
		t.Fatalf("post-delete snapshot has %d docs", len(snap.Docs))
	}
}

func TestMemoryWatchSeqMonotonic(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, _, _ := m.Watch(ctx, "medications")
	last := recvSnapshot(t, updates).Seq

	for i := 0; i < 3; i++ {
		if _, err := m.Insert(ctx, "medications", map[string]any{"n": float64(i)}); err != nil {
			t.Fatalf("insert: %v", err)
		}
		snap := recvSnapshot(t, updates)
		if snap.Seq <= last {
			t.Fatalf("seq %d not greater than %d", snap.Seq, last)
		}
		last = snap.Seq
	}
}

func TestMemoryWatchClosesOnCancel(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	updates, _, _ := m.Watch(ctx, "medications")
	recvSnapshot(t, updates)
	cancel()

	select {
	case _, ok := <-updates:
		if ok {
			// one buffered delivery may drain first
			if _, ok := <-updates; ok {
				t.Fatal("channel still open after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close")
	}
}

func recvSnapshot(t *testing.T, ch <-chan core.Snapshot) core.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return core.Snapshot{}
	}
}
