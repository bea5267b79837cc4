package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/docstore/migrations"
)

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore keeps documents as JSON rows in a single SQLite table.
// It implements Store and Batcher.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time checks
var (
	_ Store   = (*SQLiteStore)(nil)
	_ Batcher = (*SQLiteStore)(nil)
)

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs
// all pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.Up(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the applied migration version.
func (s *SQLiteStore) SchemaVersion() (int64, error) {
	return migrations.Version(s.db)
}

// GetMany returns all documents in a collection.
func (s *SQLiteStore) GetMany(ctx context.Context, collection, orderBy string) ([]Document, error) {
	query := `SELECT id, data FROM documents WHERE collection = ? ORDER BY id`
	args := []any{collection}

	if orderBy != "" {
		if !fieldNamePattern.MatchString(orderBy) {
			return nil, fmt.Errorf("invalid order field %q", orderBy)
		}
		query = `SELECT id, data FROM documents WHERE collection = ?
			ORDER BY json_extract(data, ?), id`
		args = append(args, "$."+orderBy)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []Document
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		doc, err := decodeRow(id, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", collection, id, err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// GetOne returns a single document or nil.
func (s *SQLiteStore) GetOne(ctx context.Context, collection, id string) (Document, error) {
	return getOne(ctx, s.db, collection, id)
}

// Set creates or replaces a document.
func (s *SQLiteStore) Set(ctx context.Context, collection, id string, doc Document) error {
	return setDoc(ctx, s.db, collection, id, doc, s.now())
}

// Update merges fields into an existing document.
func (s *SQLiteStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return updateDoc(ctx, tx, collection, id, fields, s.now())
	})
}

// Delete removes a document.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	return err
}

// RunBatch applies all staged writes in one SQLite transaction.
func (s *SQLiteStore) RunBatch(ctx context.Context, fn func(b Batch) error) error {
	ops := &Ops{}
	if err := fn(ops); err != nil {
		return err
	}

	now := s.now()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, op := range ops.List {
			var err error
			switch op.Kind {
			case OpSet:
				err = setDoc(ctx, tx, op.Collection, op.ID, op.Fields, now)
			case OpUpdate:
				err = updateDoc(ctx, tx, op.Collection, op.ID, op.Fields, now)
			case OpDelete:
				_, err = tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID)
			default:
				err = fmt.Errorf("unknown op kind %q", op.Kind)
			}
			if err != nil {
				return fmt.Errorf("batch %s: %w", op, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func getOne(ctx context.Context, q queryer, collection, id string) (Document, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return decodeRow(id, data)
}

func setDoc(ctx context.Context, q queryer, collection, id string, doc Document, now time.Time) error {
	stored := stripID(doc)
	stored[UpdatedAtField] = now

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, id, err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, collection, id, string(data), now, now)
	return err
}

func updateDoc(ctx context.Context, q queryer, collection, id string, fields map[string]any, now time.Time) error {
	existing, err := getOne(ctx, q, collection, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}

	data, err := json.Marshal(merge(stripID(existing), fields, now))
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, id, err)
	}

	_, err = q.ExecContext(ctx, `
		UPDATE documents SET data = ?, updated_at = ? WHERE collection = ? AND id = ?
	`, string(data), now, collection, id)
	return err
}

func decodeRow(id, data string) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = Document{}
	}
	doc[IDField] = id
	return doc, nil
}
