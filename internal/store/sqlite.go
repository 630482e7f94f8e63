package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/careflow/medtrack/internal/store/core"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite is the embedded document store. Documents live in a single table as
// JSON field blobs. Change notification is in-process: every writer goes
// through this store, so the fan-out hub sees every mutation.
type SQLite struct {
	db  *sql.DB
	hub *hub
	now func() time.Time
}

// NewSQLite opens (and if needed initializes) the sqlite file at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "medtrack.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		fields TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`); err != nil {
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	return &SQLite{
		db:  db,
		hub: newHub(),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLite) Driver() core.Driver { return core.DriverSQLite }

func (s *SQLite) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	id := uuid.New().String()
	now := s.now().Format(time.RFC3339Nano)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collection, id, string(payload), now, now)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	s.notify(ctx, collection)
	return id, nil
}

func (s *SQLite) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT fields FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	merged := make(map[string]any)
	if err := json.Unmarshal([]byte(raw), &merged); err != nil {
		return fmt.Errorf("decode stored fields: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}
	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE documents SET fields = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(payload), s.now().Format(time.RFC3339Nano), collection, id)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	s.notify(ctx, collection)
	return nil
}

func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	s.notify(ctx, collection)
	return nil
}

func (s *SQLite) Snapshot(ctx context.Context, collection string) (core.Snapshot, error) {
	docs, err := s.query(ctx, collection)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{Seq: s.hub.nextSeq(), Docs: docs}, nil
}

func (s *SQLite) Watch(ctx context.Context, collection string) (<-chan core.Snapshot, <-chan error, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	updates, errs := s.hub.subscribe(ctx, collection, func() (core.Snapshot, error) {
		docs, err := s.query(context.Background(), collection)
		if err != nil {
			return core.Snapshot{}, err
		}
		return core.Snapshot{Docs: docs}, nil
	})
	return updates, errs, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) notify(ctx context.Context, collection string) {
	s.hub.broadcast(collection, func() (core.Snapshot, error) {
		docs, err := s.query(ctx, collection)
		if err != nil {
			return core.Snapshot{}, err
		}
		return core.Snapshot{Docs: docs}, nil
	})
}

func (s *SQLite) query(ctx context.Context, collection string) ([]core.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fields, created_at, updated_at FROM documents
		 WHERE collection = ? ORDER BY created_at DESC, id DESC`, collection)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		var doc core.Document
		var raw, created, updated string
		if err := rows.Scan(&doc.ID, &raw, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &doc.Fields); err != nil {
			return nil, fmt.Errorf("decode fields for %s: %w", doc.ID, err)
		}
		if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", doc.ID, err)
		}
		if doc.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at for %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
