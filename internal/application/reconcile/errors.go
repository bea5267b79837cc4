package reconcile

import (
	"errors"
	"fmt"
)

// Precondition failures. All of them are returned before any write is issued.
var (
	ErrNotReconciled          = errors.New("statement is not reconciled")
	ErrNoTransactions         = errors.New("no transactions selected")
	ErrStatementNotFound      = errors.New("bank statement not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrAlreadyReconciled      = errors.New("transaction is already reconciled to another statement")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrReconciledExclusion    = errors.New("a reconciled statement cannot be excluded")
	ErrInvalidEdit            = errors.New("invalid edit")
)

func invalidEdit(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidEdit, fmt.Sprintf(format, args...))
}
