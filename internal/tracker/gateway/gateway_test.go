package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/careflow/medtrack/internal/domain/medication"
	"github.com/careflow/medtrack/internal/store"
)

func newTestGateway(t *testing.T) (*Gateway, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	g, err := New(mem, zap.NewNop())
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return g, mem
}

func seed(t *testing.T, mem *store.Memory, fields map[string]any) string {
	t.Helper()
	id, err := mem.Insert(context.Background(), Collection, fields)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return id
}

func docFields(t *testing.T, mem *store.Memory, id string) map[string]any {
	t.Helper()
	snap, err := mem.Snapshot(context.Background(), Collection)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, doc := range snap.Docs {
		if doc.ID == id {
			return doc.Fields
		}
	}
	t.Fatalf("document %s not found", id)
	return nil
}

func TestUpdateStatusStampsUpdatedAt(t *testing.T) {
	g, mem := newTestGateway(t)
	id := seed(t, mem, map[string]any{"status": "Not Sorted"})

	stamp := time.Date(2025, 12, 5, 12, 30, 0, 0, time.UTC)
	g.SetNow(func() time.Time { return stamp })

	res := g.UpdateStatus(context.Background(), id, medication.StatusPacked)
	if !res.Success {
		t.Fatalf("update failed: %v", res.Err)
	}

	fields := docFields(t, mem, id)
	if fields["status"] != "Packed" {
		t.Errorf("status = %v", fields["status"])
	}
	if fields["updatedAt"] != stamp.Format(time.RFC3339) {
		t.Errorf("updatedAt = %v", fields["updatedAt"])
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	g, mem := newTestGateway(t)
	id := seed(t, mem, map[string]any{"status": "Not Sorted"})

	res := g.UpdateStatus(context.Background(), id, medication.Status("Shipped"))
	if res.Success || !errors.Is(res.Err, ErrInvalidStatus) {
		t.Fatalf("res = %+v, want ErrInvalidStatus", res)
	}
	if docFields(t, mem, id)["status"] != "Not Sorted" {
		t.Error("store must be untouched on rejection")
	}
}

func TestUpdateBillingToggle(t *testing.T) {
	g, mem := newTestGateway(t)
	id := seed(t, mem, map[string]any{"billed": false})

	if res := g.UpdateBilling(context.Background(), id, true); !res.Success {
		t.Fatalf("update failed: %v", res.Err)
	}
	if docFields(t, mem, id)["billed"] != true {
		t.Error("billed not written")
	}
}

func TestUpdateFieldsPartialMerge(t *testing.T) {
	g, mem := newTestGateway(t)
	id := seed(t, mem, map[string]any{
		"name":      "John Doe",
		"address":   "123 Main St",
		"diagnosis": "Hypertension",
	})

	addr := "456 Oak Ave"
	res := g.UpdateFields(context.Background(), id, medication.FieldPatch{Address: &addr})
	if !res.Success {
		t.Fatalf("update failed: %v", res.Err)
	}

	fields := docFields(t, mem, id)
	if fields["address"] != "456 Oak Ave" {
		t.Errorf("address = %v", fields["address"])
	}
	if fields["name"] != "John Doe" || fields["diagnosis"] != "Hypertension" {
		t.Error("untouched fields must survive the merge")
	}
}

func TestUpdateFieldsEmptyPatchIsNoop(t *testing.T) {
	g, _ := newTestGateway(t)
	if res := g.UpdateFields(context.Background(), "whatever", medication.FieldPatch{}); !res.Success {
		t.Fatalf("empty patch should succeed, got %v", res.Err)
	}
}

func TestMutationsAgainstMissingRecordFail(t *testing.T) {
	g, _ := newTestGateway(t)
	ctx := context.Background()

	if res := g.UpdateStatus(ctx, "missing", medication.StatusPacked); res.Success || !errors.Is(res.Err, store.ErrNotFound) {
		t.Fatalf("status res = %+v", res)
	}
	if res := g.UpdateBilling(ctx, "missing", true); res.Success {
		t.Fatal("billing update against missing record succeeded")
	}
	if res := g.DeleteRecord(ctx, "missing"); res.Success || !errors.Is(res.Err, store.ErrNotFound) {
		t.Fatalf("delete res = %+v", res)
	}
}

func TestDeleteRecordRemoves(t *testing.T) {
	g, mem := newTestGateway(t)
	id := seed(t, mem, map[string]any{"name": "gone"})

	if res := g.DeleteRecord(context.Background(), id); !res.Success {
		t.Fatalf("delete failed: %v", res.Err)
	}
	snap, _ := mem.Snapshot(context.Background(), Collection)
	if len(snap.Docs) != 0 {
		t.Fatal("record still present")
	}
}
