package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/careflow/medtrack/internal/domain/medication"
	"github.com/careflow/medtrack/internal/store"
)

func newTestListener(t *testing.T) (*Listener, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return NewListener(mem, zap.NewNop()), mem
}

func recvList(t *testing.T, sub *Subscription) []medication.Request {
	t.Helper()
	select {
	case list, ok := <-sub.Updates():
		if !ok {
			t.Fatal("updates channel closed")
		}
		return list
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestSubscribeDeliversNormalizedSnapshots(t *testing.T) {
	l, mem := newTestListener(t)
	ctx := context.Background()

	sub, err := l.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	if list := recvList(t, sub); len(list) != 0 {
		t.Fatalf("initial list has %d records", len(list))
	}

	// Raw document with missing status and billed: normalization fills them.
	id, err := mem.Insert(ctx, Collection, map[string]any{
		"name":       "John Doe",
		"enrolleeId": "2512345/0",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	list := recvList(t, sub)
	if len(list) != 1 {
		t.Fatalf("got %d records, want 1", len(list))
	}
	req := list[0]
	if req.ID != id || req.Status != medication.StatusNotSorted || req.Billed {
		t.Errorf("normalization off: %+v", req)
	}
}

func TestSubscribeOrdersNewestFirst(t *testing.T) {
	l, mem := newTestListener(t)
	ctx := context.Background()

	base := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)
	clock := base
	mem.SetNow(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})

	older, _ := mem.Insert(ctx, Collection, map[string]any{"name": "older"})
	newer, _ := mem.Insert(ctx, Collection, map[string]any{"name": "newer"})

	sub, err := l.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	list := recvList(t, sub)
	if len(list) != 2 || list[0].ID != newer || list[1].ID != older {
		t.Fatalf("order wrong: %+v", list)
	}
}

func TestSubscribeSkipsUndecodableAndReportsError(t *testing.T) {
	l, mem := newTestListener(t)
	ctx := context.Background()

	if _, err := mem.Insert(ctx, Collection, map[string]any{"name": "ok"}); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.Insert(ctx, Collection, map[string]any{"name": 42}); err != nil {
		t.Fatal(err)
	}

	sub, err := l.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	list := recvList(t, sub)
	if len(list) != 1 || list[0].Name != "ok" {
		t.Fatalf("expected one good record, got %+v", list)
	}

	select {
	case err := <-sub.Errs():
		if !errors.Is(err, medication.ErrDecode) {
			t.Fatalf("err = %v, want ErrDecode", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("decode error never reported")
	}
}

func TestUnsubscribeStopsDeliveries(t *testing.T) {
	l, mem := newTestListener(t)
	ctx := context.Background()

	sub, err := l.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	recvList(t, sub)

	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	// A change after teardown must never surface.
	if _, err := mem.Insert(ctx, Collection, map[string]any{"name": "late"}); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case list, ok := <-sub.Updates():
			if ok {
				t.Fatalf("delivery after unsubscribe: %+v", list)
			}
			return // closed, as expected
		case <-deadline:
			return
		}
	}
}

func TestSubscribeEndsWhenContextCancelled(t *testing.T) {
	l, _ := newTestListener(t)
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := l.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	recvList(t, sub)
	cancel()

	select {
	case _, ok := <-sub.Updates():
		if ok {
			if _, ok := <-sub.Updates(); ok {
				t.Fatal("updates still flowing after cancel")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("updates channel never closed")
	}
}
