package docstore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/docstore/migrations"
)

// expectedSchemaVersion is the latest migration version.
// Update this when adding new migrations
const expectedSchemaVersion = 3

func createTempDB(t *testing.T) string {
	tmpFile, err := os.CreateTemp("", "test_*.db")
	require.NoError(t, err)
	tmpFile.Close()
	t.Cleanup(func() {
		_ = os.Remove(tmpFile.Name())
		_ = os.Remove(tmpFile.Name() + "-wal")
		_ = os.Remove(tmpFile.Name() + "-shm")
	})
	return tmpFile.Name()
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	store, err := NewSQLiteStore(createTempDB(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Migrations(t *testing.T) {
	path := createTempDB(t)

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	version, err := store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(expectedSchemaVersion), version)
	require.NoError(t, store.Close())

	// Reopening is idempotent
	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	version, err = store.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(expectedSchemaVersion), version)
}

func TestSQLiteStore_SetGetUpdateDelete(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "income", "t1", Document{
		"id":     "ignored",
		"amount": 150.0,
		"date":   "2024-03-01",
	}))

	doc, err := store.GetOne(ctx, "income", "t1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "t1", doc.ID())
	assert.Equal(t, 150.0, doc.Float("amount"))
	_, stamped := doc.Time(UpdatedAtField)
	assert.True(t, stamped)

	require.NoError(t, store.Update(ctx, "income", "t1", map[string]any{
		"isReconciled":              true,
		"reconciledBankStatementId": "s1",
	}))

	doc, err = store.GetOne(ctx, "income", "t1")
	require.NoError(t, err)
	assert.True(t, doc.Bool("isReconciled"))
	assert.Equal(t, "s1", doc.String("reconciledBankStatementId"))
	assert.Equal(t, "2024-03-01", doc.String("date"), "update merges, keeps other fields")

	require.NoError(t, store.Update(ctx, "income", "t1", map[string]any{"reconciledBankStatementId": nil}))
	doc, err = store.GetOne(ctx, "income", "t1")
	require.NoError(t, err)
	assert.True(t, doc.IsNull("reconciledBankStatementId"))

	require.NoError(t, store.Delete(ctx, "income", "t1"))
	doc, err = store.GetOne(ctx, "income", "t1")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSQLiteStore_UpdateMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	err := store.Update(context.Background(), "income", "nope", map[string]any{"x": 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_GetManyOrdering(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "expenses", "a", Document{"date": "2024-03-05"}))
	require.NoError(t, store.Set(ctx, "expenses", "b", Document{"date": "2024-03-01"}))
	require.NoError(t, store.Set(ctx, "expenses", "c", Document{"date": "2024-03-03"}))
	require.NoError(t, store.Set(ctx, "income", "z", Document{"date": "2024-01-01"}))

	docs, err := store.GetMany(ctx, "expenses", "date")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{docs[0].ID(), docs[1].ID(), docs[2].ID()})

	docs, err = store.GetMany(ctx, "expenses", "")
	require.NoError(t, err)
	assert.Equal(t, "a", docs[0].ID())

	_, err = store.GetMany(ctx, "expenses", "date; DROP TABLE documents")
	assert.Error(t, err)
}

func TestSQLiteStore_RunBatch(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "bankStatements", "s1", Document{"isReconciled": false}))
	require.NoError(t, store.Set(ctx, "expenses", "t1", Document{"isReconciled": false}))

	t.Run("commits all writes", func(t *testing.T) {
		err := store.RunBatch(ctx, func(b Batch) error {
			b.Update("bankStatements", "s1", map[string]any{"isReconciled": true})
			b.Update("expenses", "t1", map[string]any{"isReconciled": true})
			return nil
		})
		require.NoError(t, err)

		s, _ := store.GetOne(ctx, "bankStatements", "s1")
		tx, _ := store.GetOne(ctx, "expenses", "t1")
		assert.True(t, s.Bool("isReconciled"))
		assert.True(t, tx.Bool("isReconciled"))
	})

	t.Run("rolls back when a write fails", func(t *testing.T) {
		err := store.RunBatch(ctx, func(b Batch) error {
			b.Update("bankStatements", "s1", map[string]any{"isReconciled": false})
			b.Update("expenses", "missing", map[string]any{"isReconciled": false})
			return nil
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))

		s, _ := store.GetOne(ctx, "bankStatements", "s1")
		assert.True(t, s.Bool("isReconciled"), "first write must be rolled back")
	})
}

func TestMigrations_LiftLegacyReconciliation(t *testing.T) {
	path := createTempDB(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, migrations.UpTo(db, 2))

	_, err = db.Exec(`INSERT INTO documents (collection, id, data) VALUES
		('bankStatements', 's1', '{"isReconciled":true,"reconciledTransactionId":"t1","reconciledTransactionType":"income"}'),
		('bankStatements', 's2', '{"isReconciled":false,"reconciledTransactionId":null}'),
		('income', 't1', '{"amount":75.5,"isReconciled":true,"reconciledBankStatementId":"s1"}')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	s1, err := store.GetOne(ctx, "bankStatements", "s1")
	require.NoError(t, err)
	list := s1.Maps("reconciledTransactions")
	require.Len(t, list, 1)
	assert.Equal(t, "t1", list[0]["id"])
	assert.Equal(t, "income", list[0]["type"])
	assert.Equal(t, "income", list[0]["collection"])
	assert.Equal(t, 75.5, list[0]["amount"])

	s2, err := store.GetOne(ctx, "bankStatements", "s2")
	require.NoError(t, err)
	assert.Empty(t, s2.Maps("reconciledTransactions"))
}
