package storage

import (
	"context"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
)

// Repository defines the ledger read/write surface.
// Reconciliation writes do not go through here; the coordinator issues them
// against the document store directly so they can be batched.
type Repository interface {
	StatementRepository
	TransactionRepository
	MemberRepository
}

// StatementRepository handles bank statement documents
type StatementRepository interface {
	// ListStatements returns statements matching filters, ordered by posting date
	ListStatements(ctx context.Context, filters StatementFilters) ([]*ledger.BankStatement, error)

	// GetStatement returns a statement, or nil when it does not exist
	GetStatement(ctx context.Context, id string) (*ledger.BankStatement, error)

	// SaveStatement creates or replaces a statement
	SaveStatement(ctx context.Context, stmt *ledger.BankStatement) error
}

// StatementStatus filters statements by reconciliation state.
type StatementStatus string

const (
	StatusAll          StatementStatus = "all"
	StatusReconciled   StatementStatus = "reconciled"
	StatusUnreconciled StatementStatus = "unreconciled"
	StatusExcluded     StatementStatus = "excluded"
)

// Valid reports whether s is a known status filter. Empty means all.
func (s StatementStatus) Valid() bool {
	switch s {
	case "", StatusAll, StatusReconciled, StatusUnreconciled, StatusExcluded:
		return true
	}
	return false
}

// StatementFilters defines filters for listing statements
type StatementFilters struct {
	AccountType ledger.AccountType // empty = all accounts
	Status      StatementStatus    // empty = all
}

// Matches reports whether stmt passes the filters.
// Unreconciled excludes excluded statements; excluded lines are not work to do.
func (f StatementFilters) Matches(stmt *ledger.BankStatement) bool {
	if f.AccountType != "" && stmt.AccountType != f.AccountType {
		return false
	}
	switch f.Status {
	case StatusReconciled:
		return stmt.IsReconciled
	case StatusUnreconciled:
		return !stmt.IsReconciled && !stmt.IsExcluded
	case StatusExcluded:
		return stmt.IsExcluded
	}
	return true
}

// TransactionRepository handles income and expense documents
type TransactionRepository interface {
	// ListTransactions returns transactions of one type, ordered by date
	ListTransactions(ctx context.Context, txType ledger.TransactionType, filters TransactionFilters) ([]*ledger.Transaction, error)

	// GetTransaction returns a transaction, or nil when it does not exist
	GetTransaction(ctx context.Context, txType ledger.TransactionType, id string) (*ledger.Transaction, error)

	// SaveTransaction creates or replaces a transaction
	SaveTransaction(ctx context.Context, tx *ledger.Transaction) error
}

// TransactionFilters defines filters for listing transactions
type TransactionFilters struct {
	AccountType      ledger.AccountType // empty = all accounts
	UnreconciledOnly bool
}

// Matches reports whether tx passes the filters.
func (f TransactionFilters) Matches(tx *ledger.Transaction) bool {
	if f.AccountType != "" && tx.AccountType != f.AccountType {
		return false
	}
	return !f.UnreconciledOnly || !tx.IsReconciled
}

// MemberRepository handles member documents
type MemberRepository interface {
	// ListMembers returns all members ordered by last name
	ListMembers(ctx context.Context) ([]ledger.Member, error)

	// SaveMember creates or replaces a member
	SaveMember(ctx context.Context, m ledger.Member) error
}
