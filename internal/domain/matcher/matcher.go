// Package matcher finds ledger transactions that may correspond to a bank
// statement line.
//
// Candidates are sorted into four disjoint tiers:
//   - Exact: same posting day, amount within 1 cent (configurable)
//   - Fuzzy: date within the fuzzy window (default 3 days), amount within tolerance
//   - Amount: amount within tolerance, any date
//   - Comment: the statement comment appears in a descriptive field
//
// Only unreconciled transactions of the expected type in the same account are
// ever considered. Ties are not resolved; every candidate in a tier is returned
// in input order so a person can pick.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig())
//	result := m.FindMatches(statement, income, expenses, members)
//	if tier, matches := result.Best(); tier != "" {
//		// present matches to the user
//	}
package matcher

import (
	"math"
	"strings"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/normalize"
)

// Matcher matches bank statements with ledger transactions
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config) *Matcher {
	return &Matcher{
		config: config,
	}
}

// ExpectedType maps a statement amount to the only transaction type it can
// match: money out settles expenses, money in settles income.
func ExpectedType(statementAmount float64) ledger.TransactionType {
	if statementAmount < 0 {
		return ledger.TypeExpenses
	}
	return ledger.TypeIncome
}

// FindMatches computes every match tier for one statement.
// Transaction slices may be empty or nil.
func (m *Matcher) FindMatches(
	statement *ledger.BankStatement,
	income []*ledger.Transaction,
	expenses []*ledger.Transaction,
	members []ledger.Member,
) *Result {
	result := &Result{}
	if statement == nil {
		return result
	}

	candidates := tagCandidates(income, expenses)
	expected := ExpectedType(statement.Amount)
	statementAmount := math.Abs(statement.Amount)

	eligible := make([]*ledger.Transaction, 0, len(candidates))
	for _, tx := range candidates {
		if m.eligible(statement, expected, tx) {
			eligible = append(eligible, tx)
		}
	}

	used := make(map[string]bool)

	for _, tx := range eligible {
		if normalize.SameDay(tx.Date, statement.PostingDate) &&
			normalize.AmountsMatch(statementAmount, tx.Amount, m.config.AmountTolerance) {
			result.ExactMatches = append(result.ExactMatches, m.newResult(statement, tx))
			used[tx.ID] = true
		}
	}

	for _, tx := range eligible {
		if used[tx.ID] {
			continue
		}
		if normalize.WithinDays(tx.Date, statement.PostingDate, m.config.FuzzyWindowDays) &&
			normalize.AmountsMatch(statementAmount, tx.Amount, m.config.AmountTolerance) {
			result.FuzzyMatches = append(result.FuzzyMatches, m.newResult(statement, tx))
			used[tx.ID] = true
		}
	}

	for _, tx := range eligible {
		if used[tx.ID] {
			continue
		}
		if normalize.AmountsMatch(statementAmount, tx.Amount, m.config.AmountTolerance) {
			result.AmountMatches = append(result.AmountMatches, m.newResult(statement, tx))
			used[tx.ID] = true
		}
	}

	comment := strings.ToLower(strings.TrimSpace(statement.Comment))
	if comment == "" {
		return result
	}

	memberNames := make(map[string]string, len(members))
	for _, mem := range members {
		memberNames[mem.ID] = mem.FullName()
	}

	for _, tx := range eligible {
		if used[tx.ID] {
			continue
		}
		if commentMatches(comment, tx, memberNames) {
			result.CommentMatches = append(result.CommentMatches, m.newResult(statement, tx))
			used[tx.ID] = true
		}
	}

	return result
}

func (m *Matcher) eligible(statement *ledger.BankStatement, expected ledger.TransactionType, tx *ledger.Transaction) bool {
	return !tx.IsReconciled &&
		tx.TransactionType == expected &&
		tx.AccountType == statement.AccountType
}

func (m *Matcher) newResult(statement *ledger.BankStatement, tx *ledger.Transaction) MatchResult {
	return MatchResult{
		Transaction: tx,
		DateDiff:    int(math.Abs(float64(tx.Date.DaysSince(statement.PostingDate)))),
		AmountDiff:  math.Abs(math.Abs(statement.Amount) - tx.Amount),
	}
}

// tagCandidates merges both collections into one pool, stamping each copy
// with the collection it came from.
func tagCandidates(income, expenses []*ledger.Transaction) []*ledger.Transaction {
	pool := make([]*ledger.Transaction, 0, len(income)+len(expenses))
	for _, tx := range income {
		c := *tx
		c.TransactionType = ledger.TypeIncome
		pool = append(pool, &c)
	}
	for _, tx := range expenses {
		c := *tx
		c.TransactionType = ledger.TypeExpenses
		pool = append(pool, &c)
	}
	return pool
}

func commentMatches(comment string, tx *ledger.Transaction, memberNames map[string]string) bool {
	memberName := tx.MemberName
	if memberName == "" && tx.MemberID != "" {
		memberName = memberNames[tx.MemberID]
	}

	for _, field := range []string{tx.Category, tx.SubCategory, tx.Description, memberName, tx.PayeeName} {
		if field != "" && strings.Contains(strings.ToLower(field), comment) {
			return true
		}
	}
	return false
}
