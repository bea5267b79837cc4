package storage

import (
	"context"
	"fmt"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/docstore"
)

// Storage provides ledger access over a document store
type Storage struct {
	store docstore.Store
}

// NewStorage wraps a document store
func NewStorage(store docstore.Store) *Storage {
	return &Storage{store: store}
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// Store returns the underlying document store
func (s *Storage) Store() docstore.Store {
	return s.store
}

// ListStatements returns statements matching filters
func (s *Storage) ListStatements(ctx context.Context, filters StatementFilters) ([]*ledger.BankStatement, error) {
	docs, err := s.store.GetMany(ctx, ledger.CollectionStatements, FieldPostingDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}

	statements := make([]*ledger.BankStatement, 0, len(docs))
	for _, doc := range docs {
		stmt, err := DecodeStatement(doc)
		if err != nil {
			return nil, err
		}
		if filters.Matches(stmt) {
			statements = append(statements, stmt)
		}
	}
	return statements, nil
}

// GetStatement retrieves a statement by ID
func (s *Storage) GetStatement(ctx context.Context, id string) (*ledger.BankStatement, error) {
	doc, err := s.store.GetOne(ctx, ledger.CollectionStatements, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get statement %s: %w", id, err)
	}
	if doc == nil {
		return nil, nil
	}
	return DecodeStatement(doc)
}

// SaveStatement creates or replaces a statement
func (s *Storage) SaveStatement(ctx context.Context, stmt *ledger.BankStatement) error {
	if stmt.ID == "" {
		return fmt.Errorf("statement id is required")
	}
	if err := s.store.Set(ctx, ledger.CollectionStatements, stmt.ID, EncodeStatement(stmt)); err != nil {
		return fmt.Errorf("failed to save statement %s: %w", stmt.ID, err)
	}
	return nil
}

// ListTransactions returns transactions of one type matching filters
func (s *Storage) ListTransactions(ctx context.Context, txType ledger.TransactionType, filters TransactionFilters) ([]*ledger.Transaction, error) {
	if !txType.Valid() {
		return nil, fmt.Errorf("invalid transaction type %q", txType)
	}

	docs, err := s.store.GetMany(ctx, txType.Collection(), FieldDate)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", txType, err)
	}

	txs := make([]*ledger.Transaction, 0, len(docs))
	for _, doc := range docs {
		tx, err := DecodeTransaction(doc, txType)
		if err != nil {
			return nil, err
		}
		if filters.Matches(tx) {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// GetTransaction retrieves a transaction by type and ID
func (s *Storage) GetTransaction(ctx context.Context, txType ledger.TransactionType, id string) (*ledger.Transaction, error) {
	if !txType.Valid() {
		return nil, fmt.Errorf("invalid transaction type %q", txType)
	}

	doc, err := s.store.GetOne(ctx, txType.Collection(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", txType, id, err)
	}
	if doc == nil {
		return nil, nil
	}
	return DecodeTransaction(doc, txType)
}

// SaveTransaction creates or replaces a transaction
func (s *Storage) SaveTransaction(ctx context.Context, tx *ledger.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction id is required")
	}
	if !tx.TransactionType.Valid() {
		return fmt.Errorf("invalid transaction type %q", tx.TransactionType)
	}
	if err := s.store.Set(ctx, tx.TransactionType.Collection(), tx.ID, EncodeTransaction(tx)); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", tx.TransactionType, tx.ID, err)
	}
	return nil
}

// ListMembers returns all members
func (s *Storage) ListMembers(ctx context.Context) ([]ledger.Member, error) {
	docs, err := s.store.GetMany(ctx, ledger.CollectionMembers, "lastName")
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	members := make([]ledger.Member, 0, len(docs))
	for _, doc := range docs {
		members = append(members, DecodeMember(doc))
	}
	return members, nil
}

// SaveMember creates or replaces a member
func (s *Storage) SaveMember(ctx context.Context, m ledger.Member) error {
	if m.ID == "" {
		return fmt.Errorf("member id is required")
	}
	if err := s.store.Set(ctx, ledger.CollectionMembers, m.ID, EncodeMember(m)); err != nil {
		return fmt.Errorf("failed to save member %s: %w", m.ID, err)
	}
	return nil
}
