// Package ledger defines the church ledger records that take part in bank
// reconciliation: bank statement lines, income and expense transactions,
// and the members referenced by income.
//
// A statement reconciles against one or more transactions. The link is kept
// on both sides: the statement lists every transaction it settles, and each
// transaction points back at the statement.
package ledger

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Store collection names.
const (
	CollectionStatements = "bankStatements"
	CollectionIncome     = "income"
	CollectionExpenses   = "expenses"
	CollectionMembers    = "members"
	CollectionIntents    = "reconciliationIntents"
)

// AccountType identifies the bank account a record belongs to.
// Statements only ever match transactions in the same account.
type AccountType string

const (
	AccountOperating AccountType = "Operating"
	AccountBuilding  AccountType = "Building"
)

// Valid reports whether a is a known account type.
func (a AccountType) Valid() bool {
	return a == AccountOperating || a == AccountBuilding
}

// TransactionType distinguishes the two disjoint transaction collections.
type TransactionType string

const (
	TypeIncome   TransactionType = "income"
	TypeExpenses TransactionType = "expenses"
)

// ParseTransactionType converts a path or payload value into a TransactionType.
// "expense" is accepted as an alias for "expenses".
func ParseTransactionType(s string) (TransactionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return TypeIncome, true
	case "expenses", "expense":
		return TypeExpenses, true
	}
	return "", false
}

// Valid reports whether t is income or expenses.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpenses
}

// Collection returns the store collection holding transactions of this type.
func (t TransactionType) Collection() string {
	if t == TypeIncome {
		return CollectionIncome
	}
	return CollectionExpenses
}

// Statement line directions as written by the import.
const (
	StatementDebit  = "Debit"
	StatementCredit = "Credit"
)

// ReconciledTransaction is one entry of a statement's reconciliation set.
type ReconciledTransaction struct {
	ID         string          `json:"id"`
	Type       TransactionType `json:"type"`
	Collection string          `json:"collection"`
	Amount     float64         `json:"amount"`
}

// TransactionRef names a transaction by id and collection type.
type TransactionRef struct {
	ID   string          `json:"id"`
	Type TransactionType `json:"type"`
}

// BankStatement is one imported bank statement line.
type BankStatement struct {
	ID                string
	PostingDate       civil.Date
	Description       string
	CheckOrSlipNumber string
	Comment           string
	Amount            float64 // negative = money out
	Balance           float64
	Type              string
	AccountType       AccountType
	IsExcluded        bool

	IsReconciled           bool
	ReconciledTransactions []ReconciledTransaction
	ReconciledDate         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LegacyTransactionID mirrors the first reconciled transaction for consumers
// that predate multi-transaction reconciliation. Empty when unreconciled.
func (s *BankStatement) LegacyTransactionID() string {
	if len(s.ReconciledTransactions) == 0 {
		return ""
	}
	return s.ReconciledTransactions[0].ID
}

// LegacyTransactionType is the type half of the legacy mirror.
func (s *BankStatement) LegacyTransactionType() TransactionType {
	if len(s.ReconciledTransactions) == 0 {
		return ""
	}
	return s.ReconciledTransactions[0].Type
}

// ReconciledTransactionIDs returns the ids of the reconciliation set in order.
func (s *BankStatement) ReconciledTransactionIDs() []string {
	ids := make([]string, 0, len(s.ReconciledTransactions))
	for _, rt := range s.ReconciledTransactions {
		ids = append(ids, rt.ID)
	}
	return ids
}

// Settles reports whether the statement's reconciliation set contains the
// given transaction.
func (s *BankStatement) Settles(txType TransactionType, txID string) bool {
	for _, rt := range s.ReconciledTransactions {
		if rt.ID == txID && rt.Type == txType {
			return true
		}
	}
	return false
}

// Transaction is an income or expense ledger entry. Amount is always positive;
// direction comes from TransactionType.
type Transaction struct {
	ID              string
	TransactionType TransactionType
	Date            civil.Date
	Amount          float64
	Category        string
	SubCategory     string
	Description     string
	AccountType     AccountType

	MemberID   string
	MemberName string
	PayeeID    string
	PayeeName  string

	IsReconciled              bool
	ReconciledBankStatementID string
	ReconciledDate            *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ref returns the transaction's id and type.
func (t *Transaction) Ref() TransactionRef {
	return TransactionRef{ID: t.ID, Type: t.TransactionType}
}

// Member is a parishioner referenced by income transactions.
type Member struct {
	ID             string
	FirstName      string
	LastName       string
	EnvelopeNumber string
}

// FullName joins first and last name.
func (m Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}
