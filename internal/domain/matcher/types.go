package matcher

import (
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
)

// Config holds matcher configuration
type Config struct {
	AmountTolerance float64 // Default: 0.01 (1 cent)
	FuzzyWindowDays int     // Calendar days either side of the posting date (default: 3)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		AmountTolerance: 0.01,
		FuzzyWindowDays: 3,
	}
}

// MatchResult is one candidate transaction within a tier
type MatchResult struct {
	Transaction *ledger.Transaction
	DateDiff    int     // Calendar days between transaction date and posting date
	AmountDiff  float64 // Absolute difference of absolute amounts
}

// Result holds every tier for one statement. Tiers are pairwise disjoint.
type Result struct {
	ExactMatches   []MatchResult
	FuzzyMatches   []MatchResult
	AmountMatches  []MatchResult
	CommentMatches []MatchResult
}

// Best returns the highest-precedence non-empty tier and its name.
// Precedence is exact > fuzzy > amount > comment.
func (r *Result) Best() (string, []MatchResult) {
	switch {
	case len(r.ExactMatches) > 0:
		return "exact", r.ExactMatches
	case len(r.FuzzyMatches) > 0:
		return "fuzzy", r.FuzzyMatches
	case len(r.AmountMatches) > 0:
		return "amount", r.AmountMatches
	case len(r.CommentMatches) > 0:
		return "comment", r.CommentMatches
	}
	return "", nil
}

// Total returns the number of candidates across all tiers.
func (r *Result) Total() int {
	return len(r.ExactMatches) + len(r.FuzzyMatches) + len(r.AmountMatches) + len(r.CommentMatches)
}

// SelectionResult summarizes a manual multi-transaction selection
type SelectionResult struct {
	Total         decimal.Decimal // Sum of selected transaction amounts
	Discrepancy   decimal.Decimal // | |statement amount| - Total |
	AmountWarning bool            // Discrepancy exceeds the amount tolerance
	Ineligible    []Ineligible    // Selected transactions that can never match this statement
}

// Ineligible explains why a selected transaction cannot reconcile
type Ineligible struct {
	Ref    ledger.TransactionRef
	Reason string
}
