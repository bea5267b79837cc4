package reconcile

import (
	"context"
	"fmt"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/docstore"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/storage"
)

// Write set kinds recorded on intents.
const (
	kindReconcile         = "reconcile"
	kindUnreconcile       = "unreconcile"
	kindRemoveTransaction = "remove_transaction"
	kindEditStatement     = "edit_statement"
	kindEditTransaction   = "edit_transaction"
	kindDeleteStatement   = "delete_statement"
	kindDeleteTransaction = "delete_transaction"
)

// Reconcile links a statement to one or more transactions.
//
// The statement is written first (flag, list, id list, date and the legacy
// mirror), then each transaction gets the back-reference. Reconciling a
// statement that is already reconciled replaces its set; transactions that
// drop out of the set are unlinked in the same write set.
//
// An amount mismatch never fails the call; it is reported on the Outcome.
func (c *Coordinator) Reconcile(ctx context.Context, statementID string, refs []ledger.TransactionRef) (*Outcome, error) {
	refs, err := normalizeRefs(refs)
	if err != nil {
		return nil, err
	}

	unlock := c.lockStatement(statementID)
	defer unlock()
	unlockTxs := c.lockTransactions(refs)
	defer unlockTxs()

	stmt, err := c.loadStatement(ctx, statementID)
	if err != nil {
		return nil, err
	}

	txs := make([]*ledger.Transaction, 0, len(refs))
	for _, ref := range refs {
		tx, err := c.loadTransaction(ctx, ref.Type, ref.ID)
		if err != nil {
			return nil, err
		}
		if tx.IsReconciled && tx.ReconciledBankStatementID != statementID {
			return nil, fmt.Errorf("%w: %s/%s is linked to %q", ErrAlreadyReconciled, ref.Type, ref.ID, tx.ReconciledBankStatementID)
		}
		txs = append(txs, tx)
	}

	selection := c.matcher.EvaluateSelection(stmt, txs)

	now := c.now()
	list := make([]ledger.ReconciledTransaction, 0, len(txs))
	keep := make(map[ledger.TransactionRef]bool, len(txs))
	for _, tx := range txs {
		list = append(list, ledger.ReconciledTransaction{
			ID:         tx.ID,
			Type:       tx.TransactionType,
			Collection: tx.TransactionType.Collection(),
			Amount:     tx.Amount,
		})
		keep[tx.Ref()] = true
	}

	ops := []docstore.Op{{
		Kind:       docstore.OpUpdate,
		Collection: ledger.CollectionStatements,
		ID:         stmt.ID,
		Fields:     storage.StatementReconciledFields(list, now),
	}}
	for _, tx := range txs {
		ops = append(ops, docstore.Op{
			Kind:       docstore.OpUpdate,
			Collection: tx.TransactionType.Collection(),
			ID:         tx.ID,
			Fields:     storage.TransactionLinkedFields(stmt.ID, now),
		})
	}

	var dropped int
	if len(stmt.ReconciledTransactions) > 0 {
		unlink, err := c.unlinkOps(ctx, stmt, keep)
		if err != nil {
			return nil, err
		}
		dropped = len(unlink)
		ops = append(ops, unlink...)
	}

	if err := c.commit(ctx, kindReconcile, stmt.ID, ops); err != nil {
		return nil, err
	}

	stmt.IsReconciled = true
	stmt.ReconciledTransactions = list
	stmt.ReconciledDate = &now
	for _, tx := range txs {
		tx.IsReconciled = true
		tx.ReconciledBankStatementID = stmt.ID
		tx.ReconciledDate = &now
	}

	if selection.AmountWarning {
		c.logger.Warn("Reconciled with amount discrepancy",
			"statement_id", stmt.ID,
			"statement_amount", stmt.Amount,
			"total", selection.Total.StringFixed(2),
			"discrepancy", selection.Discrepancy.StringFixed(2),
		)
	}
	c.logger.Info("Statement reconciled",
		"statement_id", stmt.ID,
		"transactions", len(txs),
		"unlinked", dropped,
	)

	return &Outcome{
		Statement:     stmt,
		Transactions:  txs,
		Total:         selection.Total,
		Discrepancy:   selection.Discrepancy,
		AmountWarning: selection.AmountWarning,
		Warnings:      selection.Ineligible,
	}, nil
}

// normalizeRefs validates and de-duplicates a selection, keeping first
// occurrence order.
func normalizeRefs(refs []ledger.TransactionRef) ([]ledger.TransactionRef, error) {
	if len(refs) == 0 {
		return nil, ErrNoTransactions
	}

	seen := make(map[ledger.TransactionRef]bool, len(refs))
	out := make([]ledger.TransactionRef, 0, len(refs))
	for _, ref := range refs {
		txType, ok := ledger.ParseTransactionType(string(ref.Type))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTransactionType, ref.Type)
		}
		if ref.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrTransactionNotFound)
		}
		ref.Type = txType
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out, nil
}

// Unreconcile fully reverses a statement's reconciliation: every referenced
// transaction is cleared, then the statement.
func (c *Coordinator) Unreconcile(ctx context.Context, statementID string) error {
	unlock := c.lockStatement(statementID)
	defer unlock()

	stmt, err := c.loadStatement(ctx, statementID)
	if err != nil {
		return err
	}
	if !stmt.IsReconciled {
		return fmt.Errorf("%w: %s", ErrNotReconciled, statementID)
	}

	ops, err := c.unreconcileOps(ctx, stmt)
	if err != nil {
		return err
	}
	if err := c.commit(ctx, kindUnreconcile, stmt.ID, ops); err != nil {
		return err
	}

	c.logger.Info("Statement unreconciled",
		"statement_id", stmt.ID,
		"transactions", len(stmt.ReconciledTransactions),
	)
	return nil
}

// unreconcileOps clears the statement's transactions and then the statement.
func (c *Coordinator) unreconcileOps(ctx context.Context, stmt *ledger.BankStatement) ([]docstore.Op, error) {
	ops, err := c.unlinkOps(ctx, stmt, nil)
	if err != nil {
		return nil, err
	}
	return append(ops, docstore.Op{
		Kind:       docstore.OpUpdate,
		Collection: ledger.CollectionStatements,
		ID:         stmt.ID,
		Fields:     storage.StatementClearedFields(),
	}), nil
}

// RemoveTransaction takes one transaction out of its statement's
// reconciliation. The statement stays reconciled to whatever remains; if
// nothing remains it is fully unreconciled.
func (c *Coordinator) RemoveTransaction(ctx context.Context, txType ledger.TransactionType, txID string) error {
	tx, unlock, err := c.lockTransactionStatement(ctx, txType, txID)
	if err != nil {
		return err
	}
	defer unlock()

	if !tx.IsReconciled && tx.ReconciledBankStatementID == "" {
		return fmt.Errorf("%w: %s/%s", ErrNotReconciled, tx.TransactionType, tx.ID)
	}

	ops, err := c.removalOps(ctx, tx)
	if err != nil {
		return err
	}
	ops = append(ops, docstore.Op{
		Kind:       docstore.OpUpdate,
		Collection: tx.TransactionType.Collection(),
		ID:         tx.ID,
		Fields:     storage.TransactionClearedFields(),
	})

	if err := c.commit(ctx, kindRemoveTransaction, tx.ReconciledBankStatementID, ops); err != nil {
		return err
	}

	c.logger.Info("Transaction removed from reconciliation",
		"transaction_id", tx.ID,
		"type", tx.TransactionType,
		"statement_id", tx.ReconciledBankStatementID,
	)
	return nil
}

// lockTransactionStatement loads a transaction and locks the statement it
// points at, then the transaction itself. The transaction is re-read under
// the locks; if it moved to a different statement in between, the locks are
// released and the read retried.
func (c *Coordinator) lockTransactionStatement(ctx context.Context, txType ledger.TransactionType, txID string) (*ledger.Transaction, func(), error) {
	parsed, ok := ledger.ParseTransactionType(string(txType))
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidTransactionType, txType)
	}
	txType = parsed

	tx, err := c.loadTransaction(ctx, txType, txID)
	if err != nil {
		return nil, nil, err
	}

	ref := []ledger.TransactionRef{{ID: txID, Type: txType}}
	for attempt := 0; attempt < 3; attempt++ {
		statementID := tx.ReconciledBankStatementID
		var unlock func()
		if statementID == "" {
			unlock = c.lockTransactions(ref)
		} else {
			unlockStmt := c.lockStatement(statementID)
			unlockTx := c.lockTransactions(ref)
			unlock = func() {
				unlockTx()
				unlockStmt()
			}
		}

		current, err := c.loadTransaction(ctx, txType, txID)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if current.ReconciledBankStatementID == statementID {
			return current, unlock, nil
		}
		unlock()
		tx = current
	}
	return nil, nil, fmt.Errorf("transaction %s/%s is being relinked concurrently", txType, txID)
}

// removalOps rewrites the statement that lists tx so it no longer does.
// The transaction itself is not touched.
func (c *Coordinator) removalOps(ctx context.Context, tx *ledger.Transaction) ([]docstore.Op, error) {
	if tx.ReconciledBankStatementID == "" {
		return nil, nil
	}

	stmt, err := c.repo.GetStatement(ctx, tx.ReconciledBankStatementID)
	if err != nil {
		return nil, err
	}
	if stmt == nil {
		c.logger.Warn("Transaction points at a missing statement",
			"transaction_id", tx.ID, "statement_id", tx.ReconciledBankStatementID)
		return nil, nil
	}

	remaining := make([]ledger.ReconciledTransaction, 0, len(stmt.ReconciledTransactions))
	for _, rt := range stmt.ReconciledTransactions {
		if rt.ID == tx.ID && rt.Type == tx.TransactionType {
			continue
		}
		remaining = append(remaining, rt)
	}

	if len(remaining) == 0 {
		return []docstore.Op{{
			Kind:       docstore.OpUpdate,
			Collection: ledger.CollectionStatements,
			ID:         stmt.ID,
			Fields:     storage.StatementClearedFields(),
		}}, nil
	}

	reconciledAt := c.now()
	if stmt.ReconciledDate != nil {
		reconciledAt = *stmt.ReconciledDate
	}
	return []docstore.Op{{
		Kind:       docstore.OpUpdate,
		Collection: ledger.CollectionStatements,
		ID:         stmt.ID,
		Fields:     storage.StatementReconciledFields(remaining, reconciledAt),
	}}, nil
}
