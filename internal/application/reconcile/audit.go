package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/docstore"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/storage"
)

// Audit re-reads both sides of every reconciliation and reports where they
// disagree. It never writes.
func (c *Coordinator) Audit(ctx context.Context) (*AuditReport, error) {
	statements, err := c.repo.ListStatements(ctx, storage.StatementFilters{})
	if err != nil {
		return nil, err
	}

	txs := make(map[ledger.TransactionRef]*ledger.Transaction)
	var ordered []*ledger.Transaction
	for _, txType := range []ledger.TransactionType{ledger.TypeIncome, ledger.TypeExpenses} {
		list, err := c.repo.ListTransactions(ctx, txType, storage.TransactionFilters{})
		if err != nil {
			return nil, err
		}
		for _, tx := range list {
			txs[tx.Ref()] = tx
		}
		ordered = append(ordered, list...)
	}

	intents, err := c.store.GetMany(ctx, ledger.CollectionIntents, "createdAt")
	if err != nil {
		return nil, fmt.Errorf("failed to list intents: %w", err)
	}

	report := &AuditReport{
		CheckedAt:      c.now(),
		Statements:     len(statements),
		Transactions:   len(ordered),
		PendingIntents: len(intents),
		Findings:       []Finding{},
	}
	add := func(f Finding) { report.Findings = append(report.Findings, f) }

	statementsByID := make(map[string]*ledger.BankStatement, len(statements))
	claims := make(map[ledger.TransactionRef][]string)
	for _, stmt := range statements {
		statementsByID[stmt.ID] = stmt

		if stmt.IsReconciled != (len(stmt.ReconciledTransactions) > 0) {
			add(Finding{
				Kind:        FindingFlagMismatch,
				StatementID: stmt.ID,
				Detail:      fmt.Sprintf("isReconciled=%t with %d linked transactions", stmt.IsReconciled, len(stmt.ReconciledTransactions)),
			})
		}

		for _, rt := range stmt.ReconciledTransactions {
			ref := ledger.TransactionRef{ID: rt.ID, Type: rt.Type}
			claims[ref] = append(claims[ref], stmt.ID)

			tx, ok := txs[ref]
			switch {
			case !ok:
				add(Finding{
					Kind:            FindingDanglingReference,
					StatementID:     stmt.ID,
					TransactionID:   rt.ID,
					TransactionType: rt.Type,
					Detail:          "linked transaction does not exist",
				})
			case !tx.IsReconciled || tx.ReconciledBankStatementID != stmt.ID:
				add(Finding{
					Kind:            FindingBackReferenceMismatch,
					StatementID:     stmt.ID,
					TransactionID:   rt.ID,
					TransactionType: rt.Type,
					Detail:          fmt.Sprintf("transaction isReconciled=%t points at %q", tx.IsReconciled, tx.ReconciledBankStatementID),
				})
			}
		}
	}

	duplicates := make([]ledger.TransactionRef, 0)
	for ref, ids := range claims {
		if len(ids) > 1 {
			duplicates = append(duplicates, ref)
		}
	}
	sort.Slice(duplicates, func(i, j int) bool {
		if duplicates[i].Type != duplicates[j].Type {
			return duplicates[i].Type < duplicates[j].Type
		}
		return duplicates[i].ID < duplicates[j].ID
	})
	for _, ref := range duplicates {
		add(Finding{
			Kind:            FindingDuplicateClaim,
			TransactionID:   ref.ID,
			TransactionType: ref.Type,
			Detail:          "listed by statements " + strings.Join(claims[ref], ", "),
		})
	}

	for _, tx := range ordered {
		if !tx.IsReconciled {
			continue
		}
		stmt := statementsByID[tx.ReconciledBankStatementID]
		if stmt == nil || !stmt.Settles(tx.TransactionType, tx.ID) {
			add(Finding{
				Kind:            FindingOrphanedTransaction,
				StatementID:     tx.ReconciledBankStatementID,
				TransactionID:   tx.ID,
				TransactionType: tx.TransactionType,
				Detail:          "flagged reconciled but no statement lists it",
			})
		}
	}

	for _, intent := range intents {
		add(Finding{
			Kind:        FindingPendingIntent,
			StatementID: intent.String("statementId"),
			Detail:      fmt.Sprintf("%s write set %s did not finish", intent.String("kind"), intent.ID()),
		})
	}

	if !report.Clean() {
		c.logger.Warn("Reconciliation audit found drift", "findings", len(report.Findings))
	} else {
		c.logger.Debug("Reconciliation audit clean",
			"statements", report.Statements,
			"transactions", report.Transactions,
		)
	}
	return report, nil
}

// Repair rolls every pending intent forward: its writes are applied again in
// order and the intent is removed. Replaying an intent is idempotent; writes
// aimed at documents deleted since are skipped, as are writes that would
// link a transaction now claimed by another statement. Intents superseded by
// a later committed write set on the same statement are already gone. It
// returns the number of intents completed.
func (c *Coordinator) Repair(ctx context.Context) (int, error) {
	intents, err := c.store.GetMany(ctx, ledger.CollectionIntents, "createdAt")
	if err != nil {
		return 0, fmt.Errorf("failed to list intents: %w", err)
	}

	repaired := 0
	for _, intent := range intents {
		if err := c.replayIntent(ctx, intent); err != nil {
			return repaired, err
		}
		repaired++
	}

	if repaired > 0 {
		c.logger.Info("Repaired interrupted write sets", "count", repaired)
	}
	return repaired, nil
}

func (c *Coordinator) replayIntent(ctx context.Context, intent docstore.Document) error {
	ops, err := decodeIntent(intent)
	if err != nil {
		return err
	}

	unlock := c.lockStatement(intent.String("statementId"))
	defer unlock()
	unlockTxs := c.lockTransactions(intentTransactions(ops))
	defer unlockTxs()

	for _, op := range ops {
		owner, err := c.claimedElsewhere(ctx, op)
		if err != nil {
			return fmt.Errorf("replay intent %s: %w", intent.ID(), err)
		}
		if owner != "" {
			c.logger.Warn("Skipping replayed link for transaction claimed by another statement",
				"intent_id", intent.ID(), "write", op.String(), "linked_to", owner)
			continue
		}

		err = docstore.Apply(ctx, c.store, op)
		if isNotFound(err) {
			c.logger.Warn("Skipping replayed write for missing document",
				"intent_id", intent.ID(), "write", op.String())
			continue
		}
		if err != nil {
			return fmt.Errorf("replay intent %s: %s: %w", intent.ID(), op, err)
		}
	}

	if err := c.store.Delete(ctx, ledger.CollectionIntents, intent.ID()); err != nil {
		return fmt.Errorf("failed to remove intent %s: %w", intent.ID(), err)
	}

	c.logger.Info("Replayed intent",
		"intent_id", intent.ID(),
		"kind", intent.String("kind"),
		"statement_id", intent.String("statementId"),
		"writes", len(ops),
	)
	return nil
}

// intentTransactions lists the transactions an intent writes to.
func intentTransactions(ops []docstore.Op) []ledger.TransactionRef {
	var refs []ledger.TransactionRef
	for _, op := range ops {
		if txType, ok := ledger.ParseTransactionType(op.Collection); ok {
			refs = append(refs, ledger.TransactionRef{ID: op.ID, Type: txType})
		}
	}
	return refs
}

// claimedElsewhere returns the statement a transaction is linked to when op
// would link it to a different one, and "" otherwise.
func (c *Coordinator) claimedElsewhere(ctx context.Context, op docstore.Op) (string, error) {
	if op.Kind != docstore.OpUpdate {
		return "", nil
	}
	if _, ok := ledger.ParseTransactionType(op.Collection); !ok {
		return "", nil
	}
	target, _ := op.Fields[storage.FieldReconciledStatementID].(string)
	if target == "" {
		return "", nil
	}

	doc, err := c.store.GetOne(ctx, op.Collection, op.ID)
	if err != nil || doc == nil {
		return "", err
	}
	if current := doc.String(storage.FieldReconciledStatementID); current != "" && current != target {
		return current, nil
	}
	return "", nil
}
