package reconcile

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/matcher"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/storage"
)

// Config holds coordinator configuration
type Config struct {
	Matcher matcher.Config

	// AtomicWrites sends every write of one operation through a single batch
	// when the store supports it. When false, or when the store cannot batch,
	// writes are applied one by one behind an intent document.
	AtomicWrites bool

	// CascadeOnDelete unreconciles a statement's transactions before the
	// statement is deleted. When false the transactions keep pointing at the
	// deleted statement.
	CascadeOnDelete bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Matcher:         matcher.DefaultConfig(),
		AtomicWrites:    true,
		CascadeOnDelete: true,
	}
}

// Outcome is the result of a successful Reconcile.
type Outcome struct {
	Statement    *ledger.BankStatement
	Transactions []*ledger.Transaction

	// Total is the sum of the reconciled transaction amounts
	Total decimal.Decimal
	// Discrepancy is | |statement amount| - Total |
	Discrepancy decimal.Decimal
	// AmountWarning is set when Discrepancy exceeds the amount tolerance.
	// It never blocks the reconciliation.
	AmountWarning bool
	// Warnings lists selected transactions that the match finder would not
	// have offered for this statement (wrong direction or account).
	Warnings []matcher.Ineligible
}

// Matches is the candidate list for one statement.
type Matches struct {
	Statement *ledger.BankStatement
	Result    *matcher.Result
}

// StatementEdit changes a statement. Nil fields are left alone.
type StatementEdit struct {
	PostingDate       *civil.Date
	Amount            *float64
	AccountType       *ledger.AccountType
	Type              *string
	Balance           *float64
	Description       *string
	Comment           *string
	CheckOrSlipNumber *string
}

// changesFinancials reports whether the edit alters a field the
// reconciliation depends on.
func (e StatementEdit) changesFinancials(stmt *ledger.BankStatement) bool {
	return (e.PostingDate != nil && *e.PostingDate != stmt.PostingDate) ||
		(e.Amount != nil && *e.Amount != stmt.Amount) ||
		(e.AccountType != nil && *e.AccountType != stmt.AccountType) ||
		(e.Type != nil && *e.Type != stmt.Type)
}

func (e StatementEdit) validate() error {
	if e.AccountType != nil && !e.AccountType.Valid() {
		return invalidEdit("unknown account type %q", *e.AccountType)
	}
	if e.Type != nil && *e.Type != ledger.StatementDebit && *e.Type != ledger.StatementCredit {
		return invalidEdit("statement type must be %s or %s", ledger.StatementDebit, ledger.StatementCredit)
	}
	if e.PostingDate != nil && !e.PostingDate.IsValid() {
		return invalidEdit("invalid posting date")
	}
	return nil
}

func (e StatementEdit) fields() map[string]any {
	fields := map[string]any{}
	if e.PostingDate != nil {
		fields[storage.FieldPostingDate] = storage.FormatDate(*e.PostingDate)
	}
	if e.Amount != nil {
		fields[storage.FieldAmount] = *e.Amount
	}
	if e.AccountType != nil {
		fields[storage.FieldAccountType] = string(*e.AccountType)
	}
	if e.Type != nil {
		fields[storage.FieldType] = *e.Type
	}
	if e.Balance != nil {
		fields["balance"] = *e.Balance
	}
	if e.Description != nil {
		fields[storage.FieldDescription] = *e.Description
	}
	if e.Comment != nil {
		fields[storage.FieldComment] = *e.Comment
	}
	if e.CheckOrSlipNumber != nil {
		fields[storage.FieldCheckOrSlipNumber] = *e.CheckOrSlipNumber
	}
	return fields
}

// TransactionEdit changes an income or expense transaction. Nil fields are
// left alone. Reconciled may only be set to false; linking goes through
// Reconcile.
type TransactionEdit struct {
	Date        *civil.Date
	Amount      *float64
	AccountType *ledger.AccountType
	Category    *string
	SubCategory *string
	Description *string
	Reconciled  *bool
}

func (e TransactionEdit) changesFinancials(tx *ledger.Transaction) bool {
	return (e.Date != nil && *e.Date != tx.Date) ||
		(e.Amount != nil && *e.Amount != tx.Amount) ||
		(e.AccountType != nil && *e.AccountType != tx.AccountType)
}

func (e TransactionEdit) validate() error {
	if e.AccountType != nil && !e.AccountType.Valid() {
		return invalidEdit("unknown account type %q", *e.AccountType)
	}
	if e.Amount != nil && *e.Amount < 0 {
		return invalidEdit("transaction amounts are positive")
	}
	if e.Date != nil && !e.Date.IsValid() {
		return invalidEdit("invalid date")
	}
	if e.Reconciled != nil && *e.Reconciled {
		return invalidEdit("transactions are reconciled through a bank statement")
	}
	return nil
}

func (e TransactionEdit) fields() map[string]any {
	fields := map[string]any{}
	if e.Date != nil {
		fields[storage.FieldDate] = storage.FormatDate(*e.Date)
	}
	if e.Amount != nil {
		fields[storage.FieldAmount] = *e.Amount
	}
	if e.AccountType != nil {
		fields[storage.FieldAccountType] = string(*e.AccountType)
	}
	if e.Category != nil {
		fields[storage.FieldCategory] = *e.Category
	}
	if e.SubCategory != nil {
		fields[storage.FieldSubCategory] = *e.SubCategory
	}
	if e.Description != nil {
		fields[storage.FieldDescription] = *e.Description
	}
	return fields
}

// EditResult reports what an edit did.
type EditResult struct {
	// Unreconciled is set when the edit broke a reconciliation link, so the
	// caller can tell the user.
	Unreconciled bool
}

// FindingKind classifies an audit finding.
type FindingKind string

const (
	// Statement isReconciled disagrees with its list being non-empty
	FindingFlagMismatch FindingKind = "flag_mismatch"
	// Statement lists a transaction that does not exist
	FindingDanglingReference FindingKind = "dangling_reference"
	// Listed transaction is not flagged or points at another statement
	FindingBackReferenceMismatch FindingKind = "back_reference_mismatch"
	// Transaction is flagged reconciled but no statement lists it
	FindingOrphanedTransaction FindingKind = "orphaned_transaction"
	// Transaction is listed by more than one statement
	FindingDuplicateClaim FindingKind = "duplicate_claim"
	// A sequential write set did not finish
	FindingPendingIntent FindingKind = "pending_intent"
)

// Finding is one inconsistency between statements and transactions.
type Finding struct {
	Kind            FindingKind            `json:"kind"`
	StatementID     string                 `json:"statementId,omitempty"`
	TransactionID   string                 `json:"transactionId,omitempty"`
	TransactionType ledger.TransactionType `json:"transactionType,omitempty"`
	Detail          string                 `json:"detail"`
}

// AuditReport is the result of Audit.
type AuditReport struct {
	CheckedAt      time.Time `json:"checkedAt"`
	Statements     int       `json:"statements"`
	Transactions   int       `json:"transactions"`
	PendingIntents int       `json:"pendingIntents"`
	Findings       []Finding `json:"findings"`
}

// Clean reports whether the audit found nothing.
func (r *AuditReport) Clean() bool {
	return len(r.Findings) == 0
}
