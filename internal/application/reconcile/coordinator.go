// Package reconcile links bank statements to the income and expense
// transactions they settle, and keeps both sides of the link consistent
// through edits, deletes and reversals.
//
// Every operation loads what it needs, checks its preconditions, then issues
// one write set. When the store implements docstore.Batcher the write set is
// committed atomically. Otherwise an intent document describing the writes is
// stored first and removed after the last write succeeds; an interrupted
// write set leaves the intent behind for Audit to report and Repair to roll
// forward.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/matcher"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/docstore"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/storage"
)

// Coordinator performs reconciliation writes
type Coordinator struct {
	store   docstore.Store
	repo    *storage.Storage
	matcher *matcher.Matcher
	config  Config
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	// Statements and transactions are locked by key. Operations on the same
	// statement run one at a time, and a transaction is claimed by at most
	// one statement at a time.
	locks *keyedLocks
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the reconciliation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithIDGenerator overrides intent id generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) { c.newID = newID }
}

// NewCoordinator creates a coordinator over store.
func NewCoordinator(store docstore.Store, cfg Config, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		store:   store,
		repo:    storage.NewStorage(store),
		matcher: matcher.NewMatcher(cfg.Matcher),
		config:  cfg,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
		locks:   newKeyedLocks(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Repository exposes the ledger reads the coordinator uses.
func (c *Coordinator) Repository() storage.Repository {
	return c.repo
}

// FindMatches loads a statement and every transaction and computes the match
// tiers for it.
func (c *Coordinator) FindMatches(ctx context.Context, statementID string) (*Matches, error) {
	stmt, err := c.loadStatement(ctx, statementID)
	if err != nil {
		return nil, err
	}

	income, err := c.repo.ListTransactions(ctx, ledger.TypeIncome, storage.TransactionFilters{})
	if err != nil {
		return nil, err
	}
	expenses, err := c.repo.ListTransactions(ctx, ledger.TypeExpenses, storage.TransactionFilters{})
	if err != nil {
		return nil, err
	}
	members, err := c.repo.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	result := c.matcher.FindMatches(stmt, income, expenses, members)
	c.logger.Debug("Computed matches",
		"statement_id", stmt.ID,
		"exact", len(result.ExactMatches),
		"fuzzy", len(result.FuzzyMatches),
		"amount", len(result.AmountMatches),
		"comment", len(result.CommentMatches),
	)

	return &Matches{Statement: stmt, Result: result}, nil
}

// lockStatement blocks until the statement's lock is held and returns the
// unlock function.
func (c *Coordinator) lockStatement(id string) func() {
	return c.locks.lock(statementKey(id))
}

// lockTransactions locks every referenced transaction. It is taken after the
// statement lock, never before.
func (c *Coordinator) lockTransactions(refs []ledger.TransactionRef) func() {
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, transactionKey(ref.Type, ref.ID))
	}
	return c.locks.lockAll(keys)
}

func (c *Coordinator) loadStatement(ctx context.Context, id string) (*ledger.BankStatement, error) {
	stmt, err := c.repo.GetStatement(ctx, id)
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		return nil, fmt.Errorf("%w: %s", ErrStatementNotFound, id)
	}
	return stmt, nil
}

func (c *Coordinator) loadTransaction(ctx context.Context, txType ledger.TransactionType, id string) (*ledger.Transaction, error) {
	if !txType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionType, txType)
	}
	tx, err := c.repo.GetTransaction(ctx, txType, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrTransactionNotFound, txType, id)
	}
	return tx, nil
}

// unlinkOps clears every transaction the statement lists. Transactions that
// no longer exist or that now point at a different statement are left alone.
func (c *Coordinator) unlinkOps(ctx context.Context, stmt *ledger.BankStatement, keep map[ledger.TransactionRef]bool) ([]docstore.Op, error) {
	var ops []docstore.Op
	for _, rt := range stmt.ReconciledTransactions {
		ref := ledger.TransactionRef{ID: rt.ID, Type: rt.Type}
		if keep[ref] {
			continue
		}
		if !rt.Type.Valid() {
			c.logger.Warn("Skipping reconciled entry with unknown type",
				"statement_id", stmt.ID, "transaction_id", rt.ID, "type", rt.Type)
			continue
		}

		tx, err := c.repo.GetTransaction(ctx, rt.Type, rt.ID)
		if err != nil {
			return nil, err
		}
		if tx == nil {
			c.logger.Warn("Reconciled transaction no longer exists",
				"statement_id", stmt.ID, "transaction_id", rt.ID, "type", rt.Type)
			continue
		}
		if tx.ReconciledBankStatementID != "" && tx.ReconciledBankStatementID != stmt.ID {
			c.logger.Warn("Transaction points at a different statement, leaving it linked",
				"statement_id", stmt.ID, "transaction_id", rt.ID, "linked_to", tx.ReconciledBankStatementID)
			continue
		}

		ops = append(ops, docstore.Op{
			Kind:       docstore.OpUpdate,
			Collection: rt.Type.Collection(),
			ID:         rt.ID,
			Fields:     storage.TransactionClearedFields(),
		})
	}
	return ops, nil
}

// commit applies one operation's write set.
func (c *Coordinator) commit(ctx context.Context, kind, statementID string, ops []docstore.Op) error {
	if len(ops) == 0 {
		return nil
	}

	if batcher, ok := c.store.(docstore.Batcher); ok && c.config.AtomicWrites {
		err := batcher.RunBatch(ctx, func(b docstore.Batch) error {
			for _, op := range ops {
				docstore.Stage(b, op)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%s %s: %w", kind, statementID, err)
		}
		c.logger.Debug("Committed write set", "kind", kind, "statement_id", statementID, "writes", len(ops))
		c.supersedeIntents(ctx, statementID, "", ops)
		return nil
	}

	return c.commitSequential(ctx, kind, statementID, ops)
}

// commitSequential records an intent, applies the writes in order, then
// removes the intent. A failed write leaves the intent in place.
func (c *Coordinator) commitSequential(ctx context.Context, kind, statementID string, ops []docstore.Op) error {
	intentID := c.newID()
	if err := c.store.Set(ctx, ledger.CollectionIntents, intentID, encodeIntent(kind, statementID, ops, c.now())); err != nil {
		return fmt.Errorf("%s %s: failed to record intent: %w", kind, statementID, err)
	}

	for i, op := range ops {
		if err := docstore.Apply(ctx, c.store, op); err != nil {
			c.logger.Error("Write set interrupted",
				"kind", kind,
				"statement_id", statementID,
				"intent_id", intentID,
				"applied", i,
				"total", len(ops),
				"error", err,
			)
			return fmt.Errorf("%s %s: %s: %w", kind, statementID, op, err)
		}
	}

	if err := c.store.Delete(ctx, ledger.CollectionIntents, intentID); err != nil {
		// Every write landed; replaying the intent later is harmless.
		c.logger.Warn("Failed to remove completed intent", "intent_id", intentID, "error", err)
	}

	c.logger.Debug("Applied write set", "kind", kind, "statement_id", statementID, "writes", len(ops))
	c.supersedeIntents(ctx, statementID, intentID, ops)
	return nil
}

// supersedeIntents discards pending intents for statementID once a write set
// that rewrites the statement's links has committed. That write set was
// built from the statement as it is now, so an older intent must not be
// replayed over it. Failures are logged; the intent stays for Audit to
// report.
func (c *Coordinator) supersedeIntents(ctx context.Context, statementID, currentID string, ops []docstore.Op) {
	if statementID == "" || !rewritesLinks(statementID, ops) {
		return
	}

	intents, err := c.store.GetMany(ctx, ledger.CollectionIntents, "createdAt")
	if err != nil {
		c.logger.Warn("Failed to list intents", "statement_id", statementID, "error", err)
		return
	}

	for _, intent := range intents {
		if intent.ID() == currentID || intent.String("statementId") != statementID {
			continue
		}
		if err := c.store.Delete(ctx, ledger.CollectionIntents, intent.ID()); err != nil && !isNotFound(err) {
			c.logger.Warn("Failed to discard superseded intent", "intent_id", intent.ID(), "error", err)
			continue
		}
		c.logger.Warn("Discarded superseded intent",
			"intent_id", intent.ID(),
			"kind", intent.String("kind"),
			"statement_id", statementID,
		)
	}
}

// rewritesLinks reports whether ops delete the statement or replace its
// reconciled set.
func rewritesLinks(statementID string, ops []docstore.Op) bool {
	for _, op := range ops {
		if op.Collection != ledger.CollectionStatements || op.ID != statementID {
			continue
		}
		if op.Kind == docstore.OpDelete {
			return true
		}
		if _, ok := op.Fields[storage.FieldReconciledTransactions]; ok {
			return true
		}
	}
	return false
}

func encodeIntent(kind, statementID string, ops []docstore.Op, now time.Time) docstore.Document {
	writes := make([]any, 0, len(ops))
	for _, op := range ops {
		w := map[string]any{
			"kind":       string(op.Kind),
			"collection": op.Collection,
			"id":         op.ID,
		}
		if op.Fields != nil {
			w["fields"] = op.Fields
		}
		writes = append(writes, w)
	}
	return docstore.Document{
		"kind":        kind,
		"statementId": statementID,
		"writes":      writes,
		"createdAt":   now,
	}
}

func decodeIntent(doc docstore.Document) ([]docstore.Op, error) {
	entries := doc.Maps("writes")
	ops := make([]docstore.Op, 0, len(entries))
	for i, m := range entries {
		w := docstore.Document(m)
		op := docstore.Op{
			Kind:       docstore.OpKind(w.String("kind")),
			Collection: w.String("collection"),
			ID:         w.String("id"),
		}
		switch fields := w["fields"].(type) {
		case map[string]any:
			op.Fields = fields
		case docstore.Document:
			op.Fields = fields
		}
		if op.Collection == "" || op.ID == "" {
			return nil, fmt.Errorf("intent %s write %d is incomplete", doc.ID(), i)
		}
		switch op.Kind {
		case docstore.OpSet, docstore.OpUpdate, docstore.OpDelete:
		default:
			return nil, fmt.Errorf("intent %s write %d has unknown kind %q", doc.ID(), i, op.Kind)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, docstore.ErrNotFound)
}
