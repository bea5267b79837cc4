package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
)

func TestCompute(t *testing.T) {
	t.Run("empty set", func(t *testing.T) {
		assert.Equal(t, Summary{}, Compute(nil))
	})

	t.Run("counts and rounds percentage", func(t *testing.T) {
		statements := []*ledger.BankStatement{
			{ID: "1", IsReconciled: true},
			{ID: "2", IsReconciled: true},
			{ID: "3"},
			nil,
		}
		s := Compute(statements)
		assert.Equal(t, 3, s.Total)
		assert.Equal(t, 2, s.Reconciled)
		assert.Equal(t, 1, s.Unreconciled)
		assert.Equal(t, 67, s.PercentReconciled)
	})

	t.Run("excluded counted separately and still unreconciled", func(t *testing.T) {
		statements := []*ledger.BankStatement{
			{ID: "1", IsReconciled: true},
			{ID: "2", IsExcluded: true},
		}
		s := Compute(statements)
		assert.Equal(t, 2, s.Total)
		assert.Equal(t, 1, s.Unreconciled)
		assert.Equal(t, 1, s.Excluded)
		assert.Equal(t, 50, s.PercentReconciled)
	})
}

func TestByAccount(t *testing.T) {
	statements := []*ledger.BankStatement{
		{ID: "1", AccountType: ledger.AccountOperating, IsReconciled: true},
		{ID: "2", AccountType: ledger.AccountOperating},
		{ID: "3", AccountType: ledger.AccountBuilding, IsReconciled: true},
	}

	byAccount := ByAccount(statements)
	assert.Equal(t, 50, byAccount[ledger.AccountOperating].PercentReconciled)
	assert.Equal(t, 100, byAccount[ledger.AccountBuilding].PercentReconciled)
}
