/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/suparena/storeflow/datastore"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/storagemodels"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - records table keyed by object id
const currentSchemaVersion = 1

// Persister keeps records in a single SQLite table. Record fields are
// stored as a JSON document.
type Persister struct {
	db        *sql.DB
	chunkSize int
	logger    *zap.SugaredLogger
}

var _ datastore.Persister = (*Persister)(nil)

// Option configures a Persister.
type Option func(*Persister)

// WithChunkSize bounds the number of ids in one DELETE statement.
func WithChunkSize(n int) Option {
	return func(p *Persister) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// WithLogger sets the persister logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Persister) {
		if l != nil {
			p.logger = l
		}
	}
}

// Open creates or opens the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(path string, opts ...Option) (*Persister, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	p := &Persister{
		db:        db,
		chunkSize: predicate.DefaultChunkSize,
		logger:    zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (p *Persister) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Load returns every stored record.
func (p *Persister) Load(ctx context.Context) ([]*storagemodels.Record, error) {
	return p.query(ctx, "SELECT object_id, entity, primary_key, fields FROM records ORDER BY written_at, object_id")
}

// Query returns the stored records of entity matching where. Predicates
// are compiled to SQL over the JSON fields document.
func (p *Persister) Query(ctx context.Context, entity string, where predicate.Predicate) ([]*storagemodels.Record, error) {
	clause, args, err := predicate.ToSQL(where, fieldColumn)
	if err != nil {
		return nil, fmt.Errorf("compile predicate: %w", err)
	}
	q := "SELECT object_id, entity, primary_key, fields FROM records WHERE entity = ? AND (" + clause + ") ORDER BY written_at, object_id"
	return p.query(ctx, q, append([]any{entity}, args...)...)
}

func (p *Persister) query(ctx context.Context, q string, args ...any) ([]*storagemodels.Record, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*storagemodels.Record
	for rows.Next() {
		var id, entity, key string
		var doc []byte
		if err := rows.Scan(&id, &entity, &key, &doc); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		fields, err := decodeFields(doc)
		if err != nil {
			return nil, fmt.Errorf("decode record %s: %w", id, err)
		}
		out = append(out, storagemodels.RestoreRecord(id, entity, key, fields))
	}
	return out, rows.Err()
}

// Flush applies cs in one transaction. Deletes go out in chunks of at most
// chunkSize ids.
func (p *Persister) Flush(ctx context.Context, cs datastore.ChangeSet) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin flush: %w", err)
	}
	defer tx.Rollback()

	ids := make([]any, len(cs.Deleted))
	for i, r := range cs.Deleted {
		ids[i] = r.ObjectID()
	}
	for _, chunk := range predicate.Segment(ids, p.chunkSize) {
		where, args, err := predicate.ToSQL(predicate.FieldIn("object_id", chunk...), recordColumn)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE "+where, args...); err != nil {
			return fmt.Errorf("delete records: %w", err)
		}
	}

	if len(cs.Inserted) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO records (object_id, entity, primary_key, fields, written_at) VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UnixNano()
		for i, r := range cs.Inserted {
			doc, err := json.Marshal(r.RecordFields())
			if err != nil {
				return fmt.Errorf("encode record %s: %w", r.ObjectID(), err)
			}
			if _, err := stmt.ExecContext(ctx, r.ObjectID(), r.EntityName(), r.PrimaryKey(), string(doc), now+int64(i)); err != nil {
				return fmt.Errorf("insert record %s: %w", r.ObjectID(), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flush: %w", err)
	}
	p.logger.Debugw("flushed", "inserted", len(cs.Inserted), "deleted", len(cs.Deleted))
	return nil
}

// Clear deletes every stored record.
func (p *Persister) Clear(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

func recordColumn(field string) (string, error) {
	switch field {
	case "object_id", "entity", "primary_key":
		return field, nil
	}
	return "", fmt.Errorf("no column for field %q", field)
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func fieldColumn(field string) (string, error) {
	if !fieldName.MatchString(field) {
		return "", fmt.Errorf("field name %q cannot be queried", field)
	}
	return "json_extract(fields, '$." + field + "')", nil
}

// decodeFields reads a fields document. Numbers come back as int64 when
// they are integral and float64 otherwise.
func decodeFields(doc []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			fields[k] = i
		} else if f, err := n.Float64(); err == nil {
			fields[k] = f
		}
	}
	return fields, nil
}
