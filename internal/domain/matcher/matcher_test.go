package matcher

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

// Helper to create test transaction
func makeTransaction(id string, amount float64, d civil.Date) *ledger.Transaction {
	return &ledger.Transaction{
		ID:          id,
		Amount:      amount,
		Date:        d,
		AccountType: ledger.AccountOperating,
	}
}

func makeStatement(amount float64, d civil.Date) *ledger.BankStatement {
	return &ledger.BankStatement{
		ID:          "stmt1",
		Amount:      amount,
		PostingDate: d,
		AccountType: ledger.AccountOperating,
	}
}

func ids(matches []MatchResult) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Transaction.ID)
	}
	return out
}

func TestMatcher_ExactMatch(t *testing.T) {
	// Arrange
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(-150.00, date(2024, 3, 1))
	expenses := []*ledger.Transaction{
		makeTransaction("tx1", 150.00, date(2024, 3, 1)),
		makeTransaction("tx2", 175.00, date(2024, 3, 1)),
	}

	// Act
	result := matcher.FindMatches(statement, nil, expenses, nil)

	// Assert
	require.Len(t, result.ExactMatches, 1)
	assert.Equal(t, "tx1", result.ExactMatches[0].Transaction.ID)
	assert.Equal(t, ledger.TypeExpenses, result.ExactMatches[0].Transaction.TransactionType)
	assert.Equal(t, 0, result.ExactMatches[0].DateDiff)
	assert.Empty(t, result.FuzzyMatches)
	assert.Empty(t, result.AmountMatches)
}

func TestMatcher_FuzzyMatch_TwoDaysOff(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(-150.00, date(2024, 3, 1))
	expenses := []*ledger.Transaction{makeTransaction("tx1", 150.00, date(2024, 3, 3))}

	result := matcher.FindMatches(statement, nil, expenses, nil)

	assert.Empty(t, result.ExactMatches)
	require.Len(t, result.FuzzyMatches, 1)
	assert.Equal(t, "tx1", result.FuzzyMatches[0].Transaction.ID)
	assert.Equal(t, 2, result.FuzzyMatches[0].DateDiff)
}

func TestMatcher_AmountMatch_FarOffDate(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(-150.00, date(2024, 3, 1))
	expenses := []*ledger.Transaction{makeTransaction("tx1", 150.00, date(2024, 6, 1))}

	result := matcher.FindMatches(statement, nil, expenses, nil)

	assert.Empty(t, result.ExactMatches)
	assert.Empty(t, result.FuzzyMatches)
	assert.Equal(t, []string{"tx1"}, ids(result.AmountMatches))
}

func TestMatcher_CommentMatch(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(500.00, date(2024, 3, 1))
	statement.Comment = "Smith pledge"

	tx := makeTransaction("tx1", 75.00, date(2024, 1, 14))
	tx.Description = "Smith Pledge payment"

	result := matcher.FindMatches(statement, []*ledger.Transaction{tx}, nil, nil)

	assert.Empty(t, result.ExactMatches)
	assert.Empty(t, result.FuzzyMatches)
	assert.Empty(t, result.AmountMatches)
	assert.Equal(t, []string{"tx1"}, ids(result.CommentMatches))
}

func TestMatcher_CommentMatch_ResolvesMemberName(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(60.00, date(2024, 3, 1))
	statement.Comment = "john smith"

	tx := makeTransaction("tx1", 20.00, date(2024, 3, 1))
	tx.MemberID = "m1"

	members := []ledger.Member{{ID: "m1", FirstName: "John", LastName: "Smith"}}

	result := matcher.FindMatches(statement, []*ledger.Transaction{tx}, nil, members)
	assert.Equal(t, []string{"tx1"}, ids(result.CommentMatches))

	result = matcher.FindMatches(statement, []*ledger.Transaction{tx}, nil, nil)
	assert.Empty(t, result.CommentMatches, "no member lookup, no match")
}

func TestMatcher_CommentMatch_PayeeAndCategory(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(-42.00, date(2024, 3, 1))
	statement.Comment = "ELECTRIC"

	payee := makeTransaction("tx1", 10.00, date(2024, 3, 1))
	payee.PayeeName = "City Electric Co"
	category := makeTransaction("tx2", 11.00, date(2024, 3, 1))
	category.SubCategory = "Electric"
	neither := makeTransaction("tx3", 12.00, date(2024, 3, 1))
	neither.Description = "Gas bill"

	result := matcher.FindMatches(statement, nil, []*ledger.Transaction{payee, category, neither}, nil)
	assert.Equal(t, []string{"tx1", "tx2"}, ids(result.CommentMatches))
}

func TestMatcher_CommentTierSkippedWithoutComment(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(-42.00, date(2024, 3, 1))
	statement.Comment = "   "

	tx := makeTransaction("tx1", 10.00, date(2024, 3, 1))
	tx.Description = "anything"

	result := matcher.FindMatches(statement, nil, []*ledger.Transaction{tx}, nil)
	assert.Empty(t, result.CommentMatches)
}

func TestMatcher_SignSelectsTransactionType(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	d := date(2024, 3, 1)
	income := []*ledger.Transaction{makeTransaction("inc1", 150.00, d)}
	expenses := []*ledger.Transaction{makeTransaction("exp1", 150.00, d)}

	debit := matcher.FindMatches(makeStatement(-150.00, d), income, expenses, nil)
	assert.Equal(t, []string{"exp1"}, ids(debit.ExactMatches))
	assertNoType(t, debit, ledger.TypeIncome)

	credit := matcher.FindMatches(makeStatement(150.00, d), income, expenses, nil)
	assert.Equal(t, []string{"inc1"}, ids(credit.ExactMatches))
	assertNoType(t, credit, ledger.TypeExpenses)

	zero := matcher.FindMatches(makeStatement(0, d), income, expenses, nil)
	assertNoType(t, zero, ledger.TypeExpenses)
}

func assertNoType(t *testing.T, r *Result, typ ledger.TransactionType) {
	t.Helper()
	for _, tier := range [][]MatchResult{r.ExactMatches, r.FuzzyMatches, r.AmountMatches, r.CommentMatches} {
		for _, m := range tier {
			assert.NotEqual(t, typ, m.Transaction.TransactionType, "transaction %s", m.Transaction.ID)
		}
	}
}

func TestMatcher_ReconciledTransactionsExcluded(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(-150.00, date(2024, 3, 1))
	statement.Comment = "roof"

	tx := makeTransaction("tx1", 150.00, date(2024, 3, 1))
	tx.Description = "roof repair"
	tx.IsReconciled = true
	tx.ReconciledBankStatementID = "other"

	result := matcher.FindMatches(statement, nil, []*ledger.Transaction{tx}, nil)
	assert.Equal(t, 0, result.Total())
}

func TestMatcher_AccountIsolation(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(-150.00, date(2024, 3, 1))

	tx := makeTransaction("tx1", 150.00, date(2024, 3, 1))
	tx.AccountType = ledger.AccountBuilding

	result := matcher.FindMatches(statement, nil, []*ledger.Transaction{tx}, nil)
	assert.Equal(t, 0, result.Total())
}

func TestMatcher_TiersAreDisjoint(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(-100.00, date(2024, 3, 10))
	statement.Comment = "hall"

	expenses := []*ledger.Transaction{
		makeTransaction("same-day", 100.00, date(2024, 3, 10)),
		makeTransaction("near", 100.01, date(2024, 3, 7)),
		makeTransaction("far", 99.99, date(2023, 12, 25)),
		makeTransaction("hall-rental", 20.00, date(2024, 3, 10)),
		makeTransaction("outside-window", 100.00, date(2024, 3, 14)),
	}
	// Every candidate also matches the comment; comment must not duplicate earlier tiers.
	for _, tx := range expenses {
		tx.Description = "Parish hall"
	}

	result := matcher.FindMatches(statement, nil, expenses, nil)

	assert.Equal(t, []string{"same-day"}, ids(result.ExactMatches))
	assert.Equal(t, []string{"near"}, ids(result.FuzzyMatches))
	assert.Equal(t, []string{"far", "outside-window"}, ids(result.AmountMatches))
	assert.Equal(t, []string{"hall-rental"}, ids(result.CommentMatches))

	seen := map[string]bool{}
	for _, tier := range [][]MatchResult{result.ExactMatches, result.FuzzyMatches, result.AmountMatches, result.CommentMatches} {
		for _, m := range tier {
			assert.False(t, seen[m.Transaction.ID], "duplicate %s", m.Transaction.ID)
			seen[m.Transaction.ID] = true
		}
	}

	tier, matches := result.Best()
	assert.Equal(t, "exact", tier)
	assert.Len(t, matches, 1)
}

func TestMatcher_TiesAreReturnedInInputOrder(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	statement := makeStatement(25.00, date(2024, 3, 3))

	income := []*ledger.Transaction{
		makeTransaction("b", 25.00, date(2024, 3, 3)),
		makeTransaction("a", 25.00, date(2024, 3, 3)),
	}

	result := matcher.FindMatches(statement, income, nil, nil)
	assert.Equal(t, []string{"b", "a"}, ids(result.ExactMatches))
}

func TestMatcher_DoesNotMutateInput(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())
	tx := makeTransaction("tx1", 10.00, date(2024, 3, 3))

	_ = matcher.FindMatches(makeStatement(10.00, date(2024, 3, 3)), []*ledger.Transaction{tx}, nil, nil)
	assert.Empty(t, tx.TransactionType)
}

func TestMatcher_EmptyInputs(t *testing.T) {
	matcher := NewMatcher(DefaultConfig())

	result := matcher.FindMatches(makeStatement(10.00, date(2024, 3, 3)), nil, nil, nil)
	assert.Equal(t, 0, result.Total())
	tier, matches := result.Best()
	assert.Empty(t, tier)
	assert.Nil(t, matches)

	assert.Equal(t, 0, matcher.FindMatches(nil, nil, nil, nil).Total())
}

func TestMatcher_CustomConfig(t *testing.T) {
	// Arrange - Custom config with tighter tolerance and no fuzzy window
	matcher := NewMatcher(Config{AmountTolerance: 0.005, FuzzyWindowDays: 0})
	statement := makeStatement(-100.00, date(2024, 3, 1))

	expenses := []*ledger.Transaction{
		makeTransaction("cent-off", 100.01, date(2024, 3, 1)),
		makeTransaction("day-off", 100.00, date(2024, 3, 2)),
	}

	result := matcher.FindMatches(statement, nil, expenses, nil)

	assert.Empty(t, result.ExactMatches)
	assert.Empty(t, result.FuzzyMatches)
	assert.Equal(t, []string{"day-off"}, ids(result.AmountMatches))
}

func TestExpectedType(t *testing.T) {
	assert.Equal(t, ledger.TypeExpenses, ExpectedType(-0.01))
	assert.Equal(t, ledger.TypeIncome, ExpectedType(0))
	assert.Equal(t, ledger.TypeIncome, ExpectedType(12.5))
}
