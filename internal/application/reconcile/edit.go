package reconcile

import (
	"context"
	"fmt"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/docstore"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/storage"
)

// EditStatement applies an edit to a statement. If the statement is
// reconciled and the edit changes the posting date, amount, account or
// direction, the reconciliation is reversed in the same write set and the
// statement is saved unreconciled. Text-only edits keep the link.
func (c *Coordinator) EditStatement(ctx context.Context, id string, edit StatementEdit) (*EditResult, error) {
	if err := edit.validate(); err != nil {
		return nil, err
	}

	unlock := c.lockStatement(id)
	defer unlock()

	stmt, err := c.loadStatement(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := edit.fields()
	edited := len(fields)
	if edited == 0 {
		return &EditResult{}, nil
	}

	var ops []docstore.Op
	result := &EditResult{}
	if stmt.IsReconciled && edit.changesFinancials(stmt) {
		unlink, err := c.unlinkOps(ctx, stmt, nil)
		if err != nil {
			return nil, err
		}
		ops = append(ops, unlink...)
		for k, v := range storage.StatementClearedFields() {
			fields[k] = v
		}
		result.Unreconciled = true
	}

	ops = append(ops, docstore.Op{
		Kind:       docstore.OpUpdate,
		Collection: ledger.CollectionStatements,
		ID:         stmt.ID,
		Fields:     fields,
	})
	if err := c.commit(ctx, kindEditStatement, stmt.ID, ops); err != nil {
		return nil, err
	}

	if result.Unreconciled {
		c.logger.Warn("Statement edit broke reconciliation",
			"statement_id", stmt.ID,
			"transactions", len(stmt.ReconciledTransactions),
		)
	}
	c.logger.Info("Statement edited", "statement_id", stmt.ID, "fields", edited)
	return result, nil
}

// EditTransaction applies an edit to a transaction. If the transaction is
// reconciled and the edit changes its date, amount or account, or clears
// Reconciled, it is first removed from its statement.
func (c *Coordinator) EditTransaction(ctx context.Context, txType ledger.TransactionType, id string, edit TransactionEdit) (*EditResult, error) {
	if err := edit.validate(); err != nil {
		return nil, err
	}

	tx, unlock, err := c.lockTransactionStatement(ctx, txType, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	fields := edit.fields()
	linked := tx.IsReconciled || tx.ReconciledBankStatementID != ""
	breaks := linked && (edit.changesFinancials(tx) || (edit.Reconciled != nil && !*edit.Reconciled))
	if len(fields) == 0 && !breaks {
		return &EditResult{}, nil
	}

	var ops []docstore.Op
	result := &EditResult{}
	if breaks {
		removal, err := c.removalOps(ctx, tx)
		if err != nil {
			return nil, err
		}
		ops = append(ops, removal...)
		for k, v := range storage.TransactionClearedFields() {
			fields[k] = v
		}
		result.Unreconciled = true
	}

	ops = append(ops, docstore.Op{
		Kind:       docstore.OpUpdate,
		Collection: tx.TransactionType.Collection(),
		ID:         tx.ID,
		Fields:     fields,
	})
	if err := c.commit(ctx, kindEditTransaction, tx.ReconciledBankStatementID, ops); err != nil {
		return nil, err
	}

	if result.Unreconciled {
		c.logger.Warn("Transaction edit broke reconciliation",
			"transaction_id", tx.ID,
			"type", tx.TransactionType,
			"statement_id", tx.ReconciledBankStatementID,
		)
	}
	c.logger.Info("Transaction edited", "transaction_id", tx.ID, "type", tx.TransactionType)
	return result, nil
}

// DeleteStatement removes a statement. A reconciled statement's transactions
// are unlinked first unless cascading is turned off.
func (c *Coordinator) DeleteStatement(ctx context.Context, id string) error {
	unlock := c.lockStatement(id)
	defer unlock()

	stmt, err := c.loadStatement(ctx, id)
	if err != nil {
		return err
	}

	var ops []docstore.Op
	if len(stmt.ReconciledTransactions) > 0 {
		if c.config.CascadeOnDelete {
			unlink, err := c.unlinkOps(ctx, stmt, nil)
			if err != nil {
				return err
			}
			ops = append(ops, unlink...)
		} else {
			c.logger.Warn("Deleting reconciled statement without unlinking transactions",
				"statement_id", stmt.ID,
				"transactions", len(stmt.ReconciledTransactions),
			)
		}
	}

	ops = append(ops, docstore.Op{
		Kind:       docstore.OpDelete,
		Collection: ledger.CollectionStatements,
		ID:         stmt.ID,
	})
	if err := c.commit(ctx, kindDeleteStatement, stmt.ID, ops); err != nil {
		return err
	}

	c.logger.Info("Statement deleted", "statement_id", stmt.ID, "unlinked", len(ops)-1)
	return nil
}

// DeleteTransaction removes a transaction, first taking it out of the
// statement it reconciles.
func (c *Coordinator) DeleteTransaction(ctx context.Context, txType ledger.TransactionType, id string) error {
	tx, unlock, err := c.lockTransactionStatement(ctx, txType, id)
	if err != nil {
		return err
	}
	defer unlock()

	ops, err := c.removalOps(ctx, tx)
	if err != nil {
		return err
	}
	ops = append(ops, docstore.Op{
		Kind:       docstore.OpDelete,
		Collection: tx.TransactionType.Collection(),
		ID:         tx.ID,
	})
	if err := c.commit(ctx, kindDeleteTransaction, tx.ReconciledBankStatementID, ops); err != nil {
		return err
	}

	c.logger.Info("Transaction deleted",
		"transaction_id", tx.ID,
		"type", tx.TransactionType,
		"statement_id", tx.ReconciledBankStatementID,
	)
	return nil
}

// SetExcluded marks a statement as excluded from reconciliation work, or
// clears the mark. A reconciled statement cannot be excluded.
func (c *Coordinator) SetExcluded(ctx context.Context, id string, excluded bool) error {
	unlock := c.lockStatement(id)
	defer unlock()

	stmt, err := c.loadStatement(ctx, id)
	if err != nil {
		return err
	}
	if excluded && stmt.IsReconciled {
		return fmt.Errorf("%w: %s", ErrReconciledExclusion, id)
	}
	if stmt.IsExcluded == excluded {
		return nil
	}

	if err := c.store.Update(ctx, ledger.CollectionStatements, id, map[string]any{storage.FieldIsExcluded: excluded}); err != nil {
		return fmt.Errorf("failed to update statement %s: %w", id, err)
	}

	c.logger.Info("Statement exclusion changed", "statement_id", id, "excluded", excluded)
	return nil
}
