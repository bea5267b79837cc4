// Package docstore is a small document store contract shared by the SQLite,
// Firestore and in-memory backends.
//
// Documents are flat maps keyed by field name. The document id is not stored
// as a field; readers inject it under "id". Update merges top-level fields and
// always stamps "updatedAt". Backends that can apply several writes atomically
// also implement Batcher.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Update when the target document does not exist.
var ErrNotFound = errors.New("document not found")

// IDField is the key under which readers expose the document id.
const IDField = "id"

// UpdatedAtField is stamped on every Set and Update.
const UpdatedAtField = "updatedAt"

// Document is a single stored record.
type Document map[string]any

// ID returns the injected document id.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Reader reads documents.
type Reader interface {
	// GetMany returns every document in a collection ordered by orderBy
	// (ascending). An empty orderBy orders by id.
	GetMany(ctx context.Context, collection, orderBy string) ([]Document, error)

	// GetOne returns a document, or nil with no error when it does not exist.
	GetOne(ctx context.Context, collection, id string) (Document, error)
}

// Writer writes single documents.
type Writer interface {
	// Set creates or replaces a document.
	Set(ctx context.Context, collection, id string, doc Document) error

	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// Store is the full document store.
type Store interface {
	Reader
	Writer
	Close() error
}

// Batch stages writes for RunBatch.
type Batch interface {
	Set(collection, id string, doc Document)
	Update(collection, id string, fields map[string]any)
	Delete(collection, id string)
}

// Batcher is implemented by stores that can commit several writes atomically.
type Batcher interface {
	// RunBatch calls fn to stage writes and commits them together. If fn or
	// any write fails, none of the writes are applied.
	RunBatch(ctx context.Context, fn func(b Batch) error) error
}

// OpKind is the kind of a staged write.
type OpKind string

const (
	OpSet    OpKind = "set"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Op is one staged write.
type Op struct {
	Kind       OpKind         `json:"kind"`
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Fields     map[string]any `json:"fields,omitempty"`
}

func (o Op) String() string {
	return fmt.Sprintf("%s %s/%s", o.Kind, o.Collection, o.ID)
}

// Ops collects staged writes. It implements Batch.
type Ops struct {
	List []Op
}

// Set stages a document replace.
func (o *Ops) Set(collection, id string, doc Document) {
	o.List = append(o.List, Op{Kind: OpSet, Collection: collection, ID: id, Fields: doc})
}

// Update stages a field merge.
func (o *Ops) Update(collection, id string, fields map[string]any) {
	o.List = append(o.List, Op{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields})
}

// Delete stages a delete.
func (o *Ops) Delete(collection, id string) {
	o.List = append(o.List, Op{Kind: OpDelete, Collection: collection, ID: id})
}

// Stage adds op to a batch.
func Stage(b Batch, op Op) {
	switch op.Kind {
	case OpSet:
		b.Set(op.Collection, op.ID, op.Fields)
	case OpUpdate:
		b.Update(op.Collection, op.ID, op.Fields)
	case OpDelete:
		b.Delete(op.Collection, op.ID)
	}
}

// Apply runs a staged write against a Writer.
func Apply(ctx context.Context, w Writer, op Op) error {
	switch op.Kind {
	case OpSet:
		return w.Set(ctx, op.Collection, op.ID, op.Fields)
	case OpUpdate:
		return w.Update(ctx, op.Collection, op.ID, op.Fields)
	case OpDelete:
		return w.Delete(ctx, op.Collection, op.ID)
	}
	return fmt.Errorf("unknown op kind %q", op.Kind)
}

// stripID copies doc without the injected id field.
func stripID(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// merge copies fields over base without mutating either.
func merge(base Document, fields map[string]any, now time.Time) Document {
	out := make(Document, len(base)+len(fields)+1)
	for k, v := range base {
		out[k] = v
	}
	for k, v := range fields {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	out[UpdatedAtField] = now
	return out
}
