package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/medtrack/internal/store/core"
)

// Memory is the in-memory document store. It backs tests and ephemeral
// deployments and defines the reference semantics for the other drivers.
type Memory struct {
	mu     sync.RWMutex
	now    func() time.Time
	docs   map[string]map[string]core.Document
	hub    *hub
	closed bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:  func() time.Time { return time.Now().UTC() },
		docs: make(map[string]map[string]core.Document),
		hub:  newHub(),
	}
}

// SetNow overrides the clock. Tests only.
func (m *Memory) SetNow(now func() time.Time) { m.now = now }

func (m *Memory) Driver() core.Driver { return core.DriverMemory }

func (m *Memory) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.New().String()
	now := m.now()

	m.mu.Lock()
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]core.Document)
	}
	m.docs[collection][id] = core.Document{
		ID:        id,
		Fields:    cloneFields(fields),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Unlock()

	m.notify(collection)
	return id, nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	doc, ok := m.docs[collection][id]
	if !ok {
		m.mu.Unlock()
		return core.ErrNotFound
	}
	merged := cloneFields(doc.Fields)
	for k, v := range fields {
		merged[k] = v
	}
	doc.Fields = merged
	doc.UpdatedAt = m.now()
	m.docs[collection][id] = doc
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if _, ok := m.docs[collection][id]; !ok {
		m.mu.Unlock()
		return core.ErrNotFound
	}
	delete(m.docs[collection], id)
	m.mu.Unlock()

	m.notify(collection)
	return nil
}

func (m *Memory) Snapshot(ctx context.Context, collection string) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{Seq: m.hub.nextSeq(), Docs: m.ordered(collection)}, nil
}

func (m *Memory) Watch(ctx context.Context, collection string) (<-chan core.Snapshot, <-chan error, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	updates, errs := m.hub.subscribe(ctx, collection, func() (core.Snapshot, error) {
		return core.Snapshot{Docs: m.ordered(collection)}, nil
	})
	return updates, errs, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) notify(collection string) {
	m.hub.broadcast(collection, func() (core.Snapshot, error) {
		return core.Snapshot{Docs: m.ordered(collection)}, nil
	})
}

// ordered returns the collection's documents newest-first, with a stable ID
// tiebreak for equal creation times.
func (m *Memory) ordered(collection string) []core.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make([]core.Document, 0, len(m.docs[collection]))
	for _, doc := range m.docs[collection] {
		doc.Fields = cloneFields(doc.Fields)
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
	return docs
}

func cloneFields(fields map[string]any) map[string]any {
	cloned := make(map[string]any, len(fields))
	for k, v := range fields {
		cloned[k] = v
	}
	return cloned
}
