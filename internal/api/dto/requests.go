package dto

import (
	"cloud.google.com/go/civil"

	"github.com/eshaffer321/churchbooks-backend/internal/application/reconcile"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
)

// TransactionRefRequest names one transaction in a reconcile request.
type TransactionRefRequest struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// ReconcileRequest is the body of POST /api/statements/{id}/reconcile.
type ReconcileRequest struct {
	Transactions []TransactionRefRequest `json:"transactions"`
}

// Refs converts the request into transaction refs. Unknown types are passed
// through so the coordinator can reject them.
func (r ReconcileRequest) Refs() []ledger.TransactionRef {
	refs := make([]ledger.TransactionRef, 0, len(r.Transactions))
	for _, t := range r.Transactions {
		txType, ok := ledger.ParseTransactionType(t.Type)
		if !ok {
			txType = ledger.TransactionType(t.Type)
		}
		refs = append(refs, ledger.TransactionRef{ID: t.ID, Type: txType})
	}
	return refs
}

// StatementEditRequest is the body of PATCH /api/statements/{id}.
// Absent fields are left unchanged.
type StatementEditRequest struct {
	PostingDate       *string  `json:"postingDate"`
	Amount            *float64 `json:"amount"`
	AccountType       *string  `json:"accountType"`
	Type              *string  `json:"type"`
	Balance           *float64 `json:"balance"`
	Description       *string  `json:"description"`
	Comment           *string  `json:"comment"`
	CheckOrSlipNumber *string  `json:"checkOrSlipNumber"`
}

// ToEdit converts the request. Dates use YYYY-MM-DD.
func (r StatementEditRequest) ToEdit() (reconcile.StatementEdit, error) {
	edit := reconcile.StatementEdit{
		Amount:            r.Amount,
		Type:              r.Type,
		Balance:           r.Balance,
		Description:       r.Description,
		Comment:           r.Comment,
		CheckOrSlipNumber: r.CheckOrSlipNumber,
	}
	if r.PostingDate != nil {
		d, err := civil.ParseDate(*r.PostingDate)
		if err != nil {
			return edit, err
		}
		edit.PostingDate = &d
	}
	if r.AccountType != nil {
		a := ledger.AccountType(*r.AccountType)
		edit.AccountType = &a
	}
	return edit, nil
}

// TransactionEditRequest is the body of PATCH /api/transactions/{type}/{id}.
type TransactionEditRequest struct {
	Date         *string  `json:"date"`
	Amount       *float64 `json:"amount"`
	AccountType  *string  `json:"accountType"`
	Category     *string  `json:"category"`
	SubCategory  *string  `json:"subCategory"`
	Description  *string  `json:"description"`
	IsReconciled *bool    `json:"isReconciled"`
}

// ToEdit converts the request. Dates use YYYY-MM-DD.
func (r TransactionEditRequest) ToEdit() (reconcile.TransactionEdit, error) {
	edit := reconcile.TransactionEdit{
		Amount:      r.Amount,
		Category:    r.Category,
		SubCategory: r.SubCategory,
		Description: r.Description,
		Reconciled:  r.IsReconciled,
	}
	if r.Date != nil {
		d, err := civil.ParseDate(*r.Date)
		if err != nil {
			return edit, err
		}
		edit.Date = &d
	}
	if r.AccountType != nil {
		a := ledger.AccountType(*r.AccountType)
		edit.AccountType = &a
	}
	return edit, nil
}

// ExcludedRequest is the body of PUT /api/statements/{id}/excluded.
type ExcludedRequest struct {
	Excluded *bool `json:"excluded"`
}
