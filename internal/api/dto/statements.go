package dto

import (
	"time"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
)

// ReconciledTransactionResponse is one entry of a statement's reconciliation.
type ReconciledTransactionResponse struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Collection string  `json:"collection"`
	Amount     float64 `json:"amount"`
}

// StatementResponse represents a bank statement line in API responses.
// The legacy single-reference fields are included for older clients.
type StatementResponse struct {
	ID                        string                          `json:"id"`
	PostingDate               string                          `json:"postingDate"`
	Description               string                          `json:"description,omitempty"`
	CheckOrSlipNumber         string                          `json:"checkOrSlipNumber,omitempty"`
	Comment                   string                          `json:"comment,omitempty"`
	Amount                    float64                         `json:"amount"`
	Balance                   float64                         `json:"balance"`
	Type                      string                          `json:"type"`
	AccountType               string                          `json:"accountType"`
	IsExcluded                bool                            `json:"isExcluded"`
	IsReconciled              bool                            `json:"isReconciled"`
	ReconciledTransactions    []ReconciledTransactionResponse `json:"reconciledTransactions"`
	ReconciledTransactionIDs  []string                        `json:"reconciledTransactionIds"`
	ReconciledTransactionID   *string                         `json:"reconciledTransactionId"`
	ReconciledTransactionType *string                         `json:"reconciledTransactionType"`
	ReconciledDate            *string                         `json:"reconciledDate"`
}

// NewStatementResponse converts a statement for the API.
func NewStatementResponse(stmt *ledger.BankStatement) StatementResponse {
	resp := StatementResponse{
		ID:                       stmt.ID,
		PostingDate:              formatDate(stmt.PostingDate.IsZero(), stmt.PostingDate.String()),
		Description:              stmt.Description,
		CheckOrSlipNumber:        stmt.CheckOrSlipNumber,
		Comment:                  stmt.Comment,
		Amount:                   stmt.Amount,
		Balance:                  stmt.Balance,
		Type:                     stmt.Type,
		AccountType:              string(stmt.AccountType),
		IsExcluded:               stmt.IsExcluded,
		IsReconciled:             stmt.IsReconciled,
		ReconciledTransactions:   make([]ReconciledTransactionResponse, 0, len(stmt.ReconciledTransactions)),
		ReconciledTransactionIDs: stmt.ReconciledTransactionIDs(),
		ReconciledDate:           formatTime(stmt.ReconciledDate),
	}
	for _, rt := range stmt.ReconciledTransactions {
		resp.ReconciledTransactions = append(resp.ReconciledTransactions, ReconciledTransactionResponse{
			ID:         rt.ID,
			Type:       string(rt.Type),
			Collection: rt.Collection,
			Amount:     rt.Amount,
		})
	}
	if id := stmt.LegacyTransactionID(); id != "" {
		txType := string(stmt.LegacyTransactionType())
		resp.ReconciledTransactionID = &id
		resp.ReconciledTransactionType = &txType
	}
	return resp
}

// StatementListResponse is returned when listing statements.
type StatementListResponse struct {
	Statements []StatementResponse `json:"statements"`
	TotalCount int                 `json:"totalCount"`
}

// MatchResponse is one candidate transaction.
type MatchResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	DateDiff    int                 `json:"dateDiff"`
	AmountDiff  float64             `json:"amountDiff"`
}

// MatchesResponse is returned by GET /api/statements/{id}/matches.
type MatchesResponse struct {
	Statement      StatementResponse `json:"statement"`
	ExpectedType   string            `json:"expectedType"`
	BestTier       string            `json:"bestTier,omitempty"`
	ExactMatches   []MatchResponse   `json:"exactMatches"`
	FuzzyMatches   []MatchResponse   `json:"fuzzyMatches"`
	AmountMatches  []MatchResponse   `json:"amountMatches"`
	CommentMatches []MatchResponse   `json:"commentMatches"`
}

// SelectionWarningResponse explains why a selected transaction was unusual.
type SelectionWarningResponse struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ReconcileResponse is returned by POST /api/statements/{id}/reconcile.
type ReconcileResponse struct {
	Statement     StatementResponse          `json:"statement"`
	Transactions  []TransactionResponse      `json:"transactions"`
	Total         string                     `json:"total"`
	Discrepancy   string                     `json:"discrepancy"`
	AmountWarning bool                       `json:"amountWarning"`
	Warnings      []SelectionWarningResponse `json:"warnings,omitempty"`
}

// EditResponse is returned by the PATCH endpoints.
type EditResponse struct {
	Unreconciled bool   `json:"unreconciled"`
	Message      string `json:"message,omitempty"`
}

func formatDate(zero bool, s string) string {
	if zero {
		return ""
	}
	return s
}

func formatTime(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
