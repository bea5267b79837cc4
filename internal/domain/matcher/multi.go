package matcher

import (
	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/normalize"
)

// EvaluateSelection checks a manual selection against a statement. An amount
// mismatch is advisory only and is reported through AmountWarning.
func (m *Matcher) EvaluateSelection(statement *ledger.BankStatement, selected []*ledger.Transaction) *SelectionResult {
	amounts := make([]float64, 0, len(selected))
	result := &SelectionResult{}

	expected := ExpectedType(statement.Amount)
	for _, tx := range selected {
		amounts = append(amounts, tx.Amount)

		switch {
		case tx.TransactionType != expected:
			result.Ineligible = append(result.Ineligible, Ineligible{Ref: tx.Ref(), Reason: "statement direction requires " + string(expected)})
		case tx.AccountType != statement.AccountType:
			result.Ineligible = append(result.Ineligible, Ineligible{Ref: tx.Ref(), Reason: "transaction is in the " + string(tx.AccountType) + " account"})
		case tx.IsReconciled && tx.ReconciledBankStatementID != statement.ID:
			result.Ineligible = append(result.Ineligible, Ineligible{Ref: tx.Ref(), Reason: "already reconciled to statement " + tx.ReconciledBankStatementID})
		}
	}

	result.Discrepancy = normalize.Discrepancy(statement.Amount, amounts...)
	result.Total = normalize.Discrepancy(0, amounts...)
	result.AmountWarning = normalize.ExceedsTolerance(result.Discrepancy, m.config.AmountTolerance)
	return result
}
