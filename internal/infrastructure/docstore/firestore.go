package docstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore is the production document store.
type FirestoreStore struct {
	client *firestore.Client
	now    func() time.Time
}

// Compile-time checks
var (
	_ Store   = (*FirestoreStore)(nil)
	_ Batcher = (*FirestoreStore)(nil)
)

// FirestoreConfig selects the project and credentials.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string // Empty uses application default credentials
}

// NewFirestoreStore connects to Firestore.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{client: client, now: time.Now}, nil
}

// Close closes the client.
func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

// GetMany returns every document in a collection. Ordering happens on the
// client: a Firestore OrderBy silently drops documents that lack the field,
// and legacy records often do. Missing values sort first, then by id.
func (f *FirestoreStore) GetMany(ctx context.Context, collection, orderBy string) ([]Document, error) {
	snaps, err := f.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, snapshotDocument(snap))
	}
	sortDocuments(docs, orderBy)
	return docs, nil
}

// GetOne returns a single document or nil.
func (f *FirestoreStore) GetOne(ctx context.Context, collection, id string) (Document, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return snapshotDocument(snap), nil
}

// Set creates or replaces a document.
func (f *FirestoreStore) Set(ctx context.Context, collection, id string, doc Document) error {
	data := stripID(doc)
	data[UpdatedAtField] = f.now()
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, map[string]any(data))
	return err
}

// Update merges fields into an existing document.
func (f *FirestoreStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, f.updates(fields))
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return err
}

// Delete removes a document.
func (f *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx)
	return err
}

// RunBatch applies staged writes inside a Firestore transaction.
func (f *FirestoreStore) RunBatch(ctx context.Context, fn func(b Batch) error) error {
	ops := &Ops{}
	if err := fn(ops); err != nil {
		return err
	}

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, op := range ops.List {
			ref := f.client.Collection(op.Collection).Doc(op.ID)

			var err error
			switch op.Kind {
			case OpSet:
				data := stripID(op.Fields)
				data[UpdatedAtField] = f.now()
				err = tx.Set(ref, map[string]any(data))
			case OpUpdate:
				err = tx.Update(ref, f.updates(op.Fields))
			case OpDelete:
				err = tx.Delete(ref)
			default:
				err = fmt.Errorf("unknown op kind %q", op.Kind)
			}
			if err != nil {
				return fmt.Errorf("batch %s: %w", op, err)
			}
		}
		return nil
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("batch: %w", ErrNotFound)
	}
	return err
}

func (f *FirestoreStore) updates(fields map[string]any) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields)+1)
	for k, v := range fields {
		if k == IDField {
			continue
		}
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	return append(updates, firestore.Update{Path: UpdatedAtField, Value: f.now()})
}

func snapshotDocument(snap *firestore.DocumentSnapshot) Document {
	doc := Document(snap.Data())
	if doc == nil {
		doc = Document{}
	}
	doc[IDField] = snap.Ref.ID
	return doc
}
