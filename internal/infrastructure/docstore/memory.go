package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for testing.
// It does not implement Batcher; wrap it with NewBatchingMemoryStore for that.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]map[string]Document
	now  func() time.Time

	// Writes records every successful write in order
	Writes []Op

	// Error injection: the FailOnWrite-th write attempt (1-based, counting
	// from construction or ResetFailures) returns WriteErr.
	FailOnWrite int
	WriteErr    error
	attempts    int

	// GetErr is returned by every read when set
	GetErr error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]map[string]Document),
		now:  time.Now,
	}
}

// Compile-time check that MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// SetClock overrides the updatedAt clock.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// FailNthWrite arms error injection for the nth write from now.
func (m *MemoryStore) FailNthWrite(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = 0
	m.FailOnWrite = n
	m.WriteErr = err
}

// ResetFailures disarms error injection.
func (m *MemoryStore) ResetFailures() {
	m.FailNthWrite(0, nil)
}

// Close does nothing for the memory store
func (m *MemoryStore) Close() error {
	return nil
}

// GetMany returns copies of all documents in a collection.
func (m *MemoryStore) GetMany(_ context.Context, collection, orderBy string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	docs := make([]Document, 0, len(m.docs[collection]))
	for id, doc := range m.docs[collection] {
		docs = append(docs, withID(doc, id))
	}

	sortDocuments(docs, orderBy)
	return docs, nil
}

// GetOne returns a copy of a document or nil.
func (m *MemoryStore) GetOne(_ context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	doc, ok := m.docs[collection][id]
	if !ok {
		return nil, nil
	}
	return withID(doc, id), nil
}

// Set creates or replaces a document.
func (m *MemoryStore) Set(_ context.Context, collection, id string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(Op{Kind: OpSet, Collection: collection, ID: id, Fields: doc})
}

// Update merges fields into an existing document.
func (m *MemoryStore) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(Op{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields})
}

// Delete removes a document.
func (m *MemoryStore) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(Op{Kind: OpDelete, Collection: collection, ID: id})
}

// Count returns the number of documents in a collection.
func (m *MemoryStore) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs[collection])
}

func (m *MemoryStore) checkFailureLocked() error {
	m.attempts++
	if m.FailOnWrite > 0 && m.attempts == m.FailOnWrite {
		if m.WriteErr != nil {
			return m.WriteErr
		}
		return fmt.Errorf("injected failure on write %d", m.attempts)
	}
	return nil
}

func (m *MemoryStore) applyLocked(op Op) error {
	if err := m.checkFailureLocked(); err != nil {
		return err
	}
	if err := m.writeLocked(m.docs, op, m.now()); err != nil {
		return err
	}
	m.Writes = append(m.Writes, op)
	return nil
}

func (m *MemoryStore) writeLocked(target map[string]map[string]Document, op Op, now time.Time) error {
	switch op.Kind {
	case OpSet:
		if target[op.Collection] == nil {
			target[op.Collection] = make(map[string]Document)
		}
		stored := stripID(op.Fields)
		stored[UpdatedAtField] = now
		target[op.Collection][op.ID] = stored
	case OpUpdate:
		existing, ok := target[op.Collection][op.ID]
		if !ok {
			return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrNotFound)
		}
		target[op.Collection][op.ID] = merge(existing, op.Fields, now)
	case OpDelete:
		delete(target[op.Collection], op.ID)
	default:
		return fmt.Errorf("unknown op kind %q", op.Kind)
	}
	return nil
}

// BatchingMemoryStore adds all-or-nothing batches to MemoryStore.
type BatchingMemoryStore struct {
	*MemoryStore
}

// NewBatchingMemoryStore creates an empty in-memory store that implements Batcher.
func NewBatchingMemoryStore() *BatchingMemoryStore {
	return &BatchingMemoryStore{MemoryStore: NewMemoryStore()}
}

var _ Batcher = (*BatchingMemoryStore)(nil)

// RunBatch stages writes against a copy and swaps it in only if every write succeeds.
func (b *BatchingMemoryStore) RunBatch(_ context.Context, fn func(Batch) error) error {
	ops := &Ops{}
	if err := fn(ops); err != nil {
		return err
	}

	m := b.MemoryStore
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[string]map[string]Document, len(m.docs))
	for coll, docs := range m.docs {
		staged[coll] = make(map[string]Document, len(docs))
		for id, doc := range docs {
			staged[coll][id] = doc
		}
	}

	now := m.now()
	for _, op := range ops.List {
		if err := m.checkFailureLocked(); err != nil {
			return fmt.Errorf("batch %s: %w", op, err)
		}
		if err := m.writeLocked(staged, op, now); err != nil {
			return fmt.Errorf("batch %s: %w", op, err)
		}
	}

	m.docs = staged
	m.Writes = append(m.Writes, ops.List...)
	return nil
}

func withID(doc Document, id string) Document {
	out := make(Document, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out[IDField] = id
	return out
}

// compareValues orders nil first, then numbers, strings and times by value.
// sortDocuments orders docs by the orderBy field, documents without it
// first, then by id. An empty orderBy sorts by id alone.
func sortDocuments(docs []Document, orderBy string) {
	sort.SliceStable(docs, func(i, j int) bool {
		if orderBy != "" {
			if c := compareValues(docs[i][orderBy], docs[j][orderBy]); c != 0 {
				return c < 0
			}
		}
		return docs[i].ID() < docs[j].ID()
	})
}

func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	da, db := Document{"v": a}, Document{"v": b}
	if ta, ok := da.Time("v"); ok {
		if tb, ok := db.Time("v"); ok {
			return ta.Compare(tb)
		}
	}

	switch a.(type) {
	case float64, float32, int, int64:
		fa, fb := da.Float("v"), db.Float("v")
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}

	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
