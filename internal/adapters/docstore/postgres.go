package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/ports"
)

// Postgres stores documents in a single JSONB table. Conditional create is
// INSERT ... ON CONFLICT DO NOTHING; merge-patch updates use the jsonb
// concatenation and jsonb_set operators so only the named fields change.
//
// Change notification is fanned out through the in-process hub: every
// write re-reads the affected document and publishes it. Snapshots
// therefore reach watchers connected to this server process, which is the
// deployment this application targets.
type Postgres struct {
	db  *sqlx.DB
	hub *hub
}

// NewPostgres creates a document store over an open connection pool.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db, hub: newHub()}
}

var _ ports.DocStore = (*Postgres)(nil)

// storageErr tags a driver failure so callers can test for
// entities.ErrStorageUnavailable regardless of the operation that failed.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, entities.ErrStorageUnavailable, err)
}

var fieldNameRe = regexp.MustCompile(`^[A-Za-z0-9_@.:-]+$`)

// jsonbPath renders a dotted field name as a jsonb path literal. Segments
// are restricted to a safe character set; field names come from this
// module's repositories, never from request input.
func jsonbPath(name string) (string, error) {
	parts := strings.Split(name, ".")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		if part == "" || !fieldNameRe.MatchString(part) {
			return "", fmt.Errorf("unsupported field path %q", name)
		}
		quoted[i] = `"` + part + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}", nil
}

func (p *Postgres) Get(ctx context.Context, collection, key string) (json.RawMessage, error) {
	var doc json.RawMessage
	err := p.db.GetContext(ctx, &doc,
		`SELECT doc FROM documents WHERE collection = $1 AND key = $2`, collection, key)
	if err == sql.ErrNoRows {
		return nil, entities.ErrDocumentNotFound
	}
	if err != nil {
		return nil, storageErr("get document", err)
	}
	return doc, nil
}

func (p *Postgres) Set(ctx context.Context, collection, key string, doc any) error {
	data, err := marshalDoc(doc)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, doc)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, key)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		collection, key, data)
	if err != nil {
		return storageErr("set document", err)
	}

	p.hub.publish(collection, key, data)
	return nil
}

func (p *Postgres) Create(ctx context.Context, collection, key string, doc any) (bool, error) {
	data, err := marshalDoc(doc)
	if err != nil {
		return false, err
	}

	result, err := p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, doc)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, key) DO NOTHING`,
		collection, key, data)
	if err != nil {
		return false, storageErr("create document", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("create document", err)
	}
	if rows == 0 {
		return false, nil
	}

	p.hub.publish(collection, key, data)
	return true, nil
}

func (p *Postgres) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	expr := "doc"
	args := []any{collection, key}
	patch := map[string]any{}

	for name, value := range fields {
		if !strings.Contains(name, ".") {
			patch[name] = value
			continue
		}
		path, err := jsonbPath(name)
		if err != nil {
			return err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal field %q: %w", name, err)
		}
		args = append(args, data)
		expr = fmt.Sprintf("jsonb_set(%s, '%s', $%d::jsonb, true)", expr, path, len(args))
	}

	if len(patch) > 0 {
		data, err := json.Marshal(patch)
		if err != nil {
			return fmt.Errorf("marshal field patch: %w", err)
		}
		args = append(args, data)
		expr = fmt.Sprintf("%s || $%d::jsonb", expr, len(args))
	}

	query := fmt.Sprintf(`
		UPDATE documents SET doc = %s, updated_at = NOW()
		WHERE collection = $1 AND key = $2`, expr)

	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storageErr("update document", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return storageErr("update document", err)
	}
	if rows == 0 {
		return entities.ErrDocumentNotFound
	}

	if doc, err := p.Get(ctx, collection, key); err == nil {
		p.hub.publish(collection, key, doc)
	}
	return nil
}

func (p *Postgres) Add(ctx context.Context, collection string, doc any) (string, error) {
	key := uuid.New().String()
	if err := p.Set(ctx, collection, key, doc); err != nil {
		return "", err
	}
	return key, nil
}

func (p *Postgres) Delete(ctx context.Context, collection, key string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND key = $2`, collection, key)
	if err != nil {
		return storageErr("delete document", err)
	}

	p.hub.publish(collection, key, nil)
	return nil
}

func (p *Postgres) Query(ctx context.Context, collection string, q ports.Query) ([]ports.Record, error) {
	query := `SELECT key, doc FROM documents WHERE collection = $1`
	args := []any{collection}

	if q.Field != "" {
		if !fieldNameRe.MatchString(q.Field) {
			return nil, fmt.Errorf("unsupported filter field %q", q.Field)
		}
		args = append(args, fmt.Sprint(q.Equals))
		query += fmt.Sprintf(" AND doc->>'%s' = $%d", q.Field, len(args))
	}

	if q.OrderBy != "" {
		if !fieldNameRe.MatchString(q.OrderBy) {
			return nil, fmt.Errorf("unsupported order field %q", q.OrderBy)
		}
		query += fmt.Sprintf(" ORDER BY doc->'%s'", q.OrderBy)
		if q.Descending {
			query += " DESC"
		}
	}

	rows, err := p.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query documents", err)
	}
	defer rows.Close()

	var records []ports.Record
	for rows.Next() {
		var rec ports.Record
		if err := rows.Scan(&rec.Key, &rec.Data); err != nil {
			return nil, storageErr("scan document", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("query documents", err)
	}
	return records, nil
}

func (p *Postgres) Subscribe(ctx context.Context, collection, key string, fn ports.SnapshotFunc) (func(), error) {
	cancel := p.hub.subscribe(collection, key, fn)

	doc, err := p.Get(ctx, collection, key)
	if err != nil && err != entities.ErrDocumentNotFound {
		cancel()
		return nil, err
	}

	fn(doc)
	return cancel, nil
}
