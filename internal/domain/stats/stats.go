// Package stats aggregates reconciliation progress over a set of bank statements.
package stats

import (
	"math"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
)

// Summary holds reconciliation counts for display.
type Summary struct {
	Total             int `json:"total"`
	Reconciled        int `json:"reconciled"`
	Unreconciled      int `json:"unreconciled"`
	Excluded          int `json:"excluded"`
	PercentReconciled int `json:"percentReconciled"`
}

// Compute counts reconciled statements. Excluded statements are reported in
// Excluded but are still counted as unreconciled unless reconciled.
func Compute(statements []*ledger.BankStatement) Summary {
	var s Summary
	for _, st := range statements {
		if st == nil {
			continue
		}
		s.Total++
		if st.IsReconciled {
			s.Reconciled++
		}
		if st.IsExcluded {
			s.Excluded++
		}
	}
	s.Unreconciled = s.Total - s.Reconciled
	if s.Total > 0 {
		s.PercentReconciled = int(math.Round(100 * float64(s.Reconciled) / float64(s.Total)))
	}
	return s
}

// ByAccount computes a Summary per account type.
func ByAccount(statements []*ledger.BankStatement) map[ledger.AccountType]Summary {
	grouped := make(map[ledger.AccountType][]*ledger.BankStatement)
	for _, st := range statements {
		if st == nil {
			continue
		}
		grouped[st.AccountType] = append(grouped[st.AccountType], st)
	}

	out := make(map[ledger.AccountType]Summary, len(grouped))
	for account, list := range grouped {
		out[account] = Compute(list)
	}
	return out
}
