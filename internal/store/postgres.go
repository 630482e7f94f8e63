package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/careflow/medtrack/internal/store/core"
)

// notifyChannel is the pg_notify channel the documents trigger fires on.
// The payload is the collection name.
const notifyChannel = "medtrack_document_changes"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection text NOT NULL,
	id text NOT NULL,
	fields jsonb NOT NULL DEFAULT '{}'::jsonb,
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);

CREATE OR REPLACE FUNCTION documents_notify() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + notifyChannel + `', COALESCE(NEW.collection, OLD.collection));
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS documents_notify ON documents;
CREATE TRIGGER documents_notify
AFTER INSERT OR UPDATE OR DELETE ON documents
FOR EACH ROW EXECUTE FUNCTION documents_notify();
`

// Postgres is the PostgreSQL document store. Change notification rides the
// server's LISTEN/NOTIFY: a row trigger fires per mutation and each watcher
// re-reads the full collection on wakeup, so changes made by other processes
// are observed too.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	seq    atomic.Uint64
}

// NewPostgres connects to dsn and ensures the documents schema exists.
func NewPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{pool: pool, logger: logger}, nil
}

func (p *Postgres) Driver() core.Driver { return core.DriverPostgres }

func (p *Postgres) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	id := uuid.New().String()

	_, err = p.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, fields) VALUES ($1, $2, $3)`,
		collection, id, payload)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return id, nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE documents SET fields = fields || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2`,
		collection, id, payload)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (p *Postgres) Snapshot(ctx context.Context, collection string) (core.Snapshot, error) {
	docs, err := p.query(ctx, collection)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{Seq: p.seq.Add(1), Docs: docs}, nil
}

// Watch LISTENs on a dedicated connection and re-queries the collection for
// every notification carrying its name. A broken connection is reported once
// on the error channel and the watch ends; reconnection is the caller's
// decision.
func (p *Postgres) Watch(ctx context.Context, collection string) (<-chan core.Snapshot, <-chan error, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, nil, fmt.Errorf("listen: %w", err)
	}

	updates := make(chan core.Snapshot, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(updates)
		defer conn.Release()

		deliver := func() bool {
			docs, err := p.query(ctx, collection)
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("refresh snapshot: %w", err)
				}
				return false
			}
			sendLatest(updates, core.Snapshot{Seq: p.seq.Add(1), Docs: docs})
			return true
		}

		if !deliver() {
			return
		}

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("wait for notification: %w", err)
				}
				return
			}
			if n.Payload != collection {
				continue
			}
			if !deliver() {
				return
			}
		}
	}()

	return updates, errs, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) query(ctx context.Context, collection string) ([]core.Document, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, fields, created_at, updated_at FROM documents
		 WHERE collection = $1 ORDER BY created_at DESC, id DESC`, collection)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		var doc core.Document
		var payload []byte
		var created, updated time.Time
		if err := rows.Scan(&doc.ID, &payload, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if err := json.Unmarshal(payload, &doc.Fields); err != nil {
			return nil, fmt.Errorf("decode fields for %s: %w", doc.ID, err)
		}
		doc.CreatedAt = created.UTC()
		doc.UpdatedAt = updated.UTC()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
