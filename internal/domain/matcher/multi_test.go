package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
)

// TestMatcher_EvaluateSelection tests manual multi-transaction selection
func TestMatcher_EvaluateSelection(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	baseDate := date(2024, 3, 1)

	expense := func(id string, amount float64) *ledger.Transaction {
		tx := makeTransaction(id, amount, baseDate)
		tx.TransactionType = ledger.TypeExpenses
		return tx
	}

	t.Run("selection summing to statement amount has no warning", func(t *testing.T) {
		statement := makeStatement(-126.98, baseDate)
		result := matcher.EvaluateSelection(statement, []*ledger.Transaction{
			expense("txn1", 118.67),
			expense("txn2", 8.31),
		})

		assert.False(t, result.AmountWarning)
		assert.True(t, result.Discrepancy.IsZero())
		assert.Equal(t, "126.98", result.Total.String())
		assert.Empty(t, result.Ineligible)
	})

	t.Run("short selection warns but does not block", func(t *testing.T) {
		statement := makeStatement(-150.00, baseDate)
		result := matcher.EvaluateSelection(statement, []*ledger.Transaction{
			expense("txn1", 100.00),
			expense("txn2", 40.00),
		})

		assert.True(t, result.AmountWarning)
		assert.Equal(t, "10", result.Discrepancy.String())
		assert.Empty(t, result.Ineligible)
	})

	t.Run("one cent off is within tolerance", func(t *testing.T) {
		statement := makeStatement(-100.00, baseDate)
		result := matcher.EvaluateSelection(statement, []*ledger.Transaction{expense("txn1", 100.01)})
		assert.False(t, result.AmountWarning)
	})

	t.Run("flags wrong type, wrong account and foreign reconciliation", func(t *testing.T) {
		statement := makeStatement(-50.00, baseDate)

		income := makeTransaction("inc", 10.00, baseDate)
		income.TransactionType = ledger.TypeIncome

		building := expense("bld", 10.00)
		building.AccountType = ledger.AccountBuilding

		taken := expense("taken", 10.00)
		taken.IsReconciled = true
		taken.ReconciledBankStatementID = "other-stmt"

		own := expense("own", 20.00)
		own.IsReconciled = true
		own.ReconciledBankStatementID = statement.ID

		result := matcher.EvaluateSelection(statement, []*ledger.Transaction{income, building, taken, own})

		require.Len(t, result.Ineligible, 3)
		assert.Equal(t, "inc", result.Ineligible[0].Ref.ID)
		assert.Contains(t, result.Ineligible[0].Reason, "expenses")
		assert.Equal(t, "bld", result.Ineligible[1].Ref.ID)
		assert.Contains(t, result.Ineligible[1].Reason, "Building")
		assert.Equal(t, "taken", result.Ineligible[2].Ref.ID)
		assert.Contains(t, result.Ineligible[2].Reason, "other-stmt")
	})

	t.Run("empty selection reports full discrepancy", func(t *testing.T) {
		statement := makeStatement(-50.00, baseDate)
		result := matcher.EvaluateSelection(statement, nil)
		assert.Equal(t, "50", result.Discrepancy.String())
		assert.True(t, result.AmountWarning)
	})
}
