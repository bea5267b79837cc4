package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBankStatement_LegacyMirror(t *testing.T) {
	t.Run("empty set has no mirror", func(t *testing.T) {
		s := &BankStatement{ID: "s1"}
		assert.Empty(t, s.LegacyTransactionID())
		assert.Empty(t, s.LegacyTransactionType())
		assert.Empty(t, s.ReconciledTransactionIDs())
	})

	t.Run("mirror follows first entry", func(t *testing.T) {
		s := &BankStatement{
			ID: "s1",
			ReconciledTransactions: []ReconciledTransaction{
				{ID: "t2", Type: TypeExpenses, Collection: CollectionExpenses, Amount: 40},
				{ID: "t1", Type: TypeExpenses, Collection: CollectionExpenses, Amount: 60},
			},
		}
		assert.Equal(t, "t2", s.LegacyTransactionID())
		assert.Equal(t, TypeExpenses, s.LegacyTransactionType())
		assert.Equal(t, []string{"t2", "t1"}, s.ReconciledTransactionIDs())

		s.ReconciledTransactions = s.ReconciledTransactions[1:]
		assert.Equal(t, "t1", s.LegacyTransactionID())
	})
}

func TestBankStatement_Settles(t *testing.T) {
	s := &BankStatement{ReconciledTransactions: []ReconciledTransaction{{ID: "t1", Type: TypeIncome}}}
	assert.True(t, s.Settles(TypeIncome, "t1"))
	assert.False(t, s.Settles(TypeExpenses, "t1"))
	assert.False(t, s.Settles(TypeIncome, "t2"))
}

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", TypeIncome, true},
		{"Expenses", TypeExpenses, true},
		{"expense", TypeExpenses, true},
		{"transfers", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTransactionType(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, CollectionIncome, TypeIncome.Collection())
	assert.Equal(t, CollectionExpenses, TypeExpenses.Collection())
}

func TestMember_FullName(t *testing.T) {
	assert.Equal(t, "John Smith", Member{FirstName: "John", LastName: "Smith"}.FullName())
	assert.Equal(t, "Smith", Member{LastName: "Smith"}.FullName())
}
