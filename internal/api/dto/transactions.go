package dto

import (
	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
)

// TransactionResponse represents an income or expense entry in API responses.
type TransactionResponse struct {
	ID                        string  `json:"id"`
	TransactionType           string  `json:"transactionType"`
	Date                      string  `json:"date"`
	Amount                    float64 `json:"amount"`
	Category                  string  `json:"category,omitempty"`
	SubCategory               string  `json:"subCategory,omitempty"`
	Description               string  `json:"description,omitempty"`
	AccountType               string  `json:"accountType"`
	MemberID                  string  `json:"memberId,omitempty"`
	MemberName                string  `json:"memberName,omitempty"`
	PayeeID                   string  `json:"payeeId,omitempty"`
	PayeeName                 string  `json:"payeeName,omitempty"`
	IsReconciled              bool    `json:"isReconciled"`
	ReconciledBankStatementID *string `json:"reconciledBankStatementId"`
	ReconciledDate            *string `json:"reconciledDate"`
}

// NewTransactionResponse converts a transaction for the API.
func NewTransactionResponse(tx *ledger.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:              tx.ID,
		TransactionType: string(tx.TransactionType),
		Date:            formatDate(tx.Date.IsZero(), tx.Date.String()),
		Amount:          tx.Amount,
		Category:        tx.Category,
		SubCategory:     tx.SubCategory,
		Description:     tx.Description,
		AccountType:     string(tx.AccountType),
		MemberID:        tx.MemberID,
		MemberName:      tx.MemberName,
		PayeeID:         tx.PayeeID,
		PayeeName:       tx.PayeeName,
		IsReconciled:    tx.IsReconciled,
		ReconciledDate:  formatTime(tx.ReconciledDate),
	}
	if tx.ReconciledBankStatementID != "" {
		id := tx.ReconciledBankStatementID
		resp.ReconciledBankStatementID = &id
	}
	return resp
}

// TransactionListResponse is returned when listing transactions.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	TotalCount   int                   `json:"totalCount"`
}
