package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/churchbooks-backend/internal/api/dto"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/storage"
)

// TransactionsHandler handles income and expense HTTP requests.
type TransactionsHandler struct {
	*Base
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo storage.Repository, reconciler Reconciler) *TransactionsHandler {
	return &TransactionsHandler{Base: NewBase(repo, reconciler)}
}

// List handles GET /api/transactions/{type}
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	txType, ok := h.parseType(w, r)
	if !ok {
		return
	}
	account, ok := parseAccount(r)
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("unknown account type"))
		return
	}

	txs, err := h.repo.ListTransactions(r.Context(), txType, storage.TransactionFilters{
		AccountType:      account,
		UnreconciledOnly: ParseBoolParam(r, "unreconciled", false),
	})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	resp := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(txs)),
		TotalCount:   len(txs),
	}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, dto.NewTransactionResponse(tx))
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// Update handles PATCH /api/transactions/{type}/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	txType, ok := h.parseType(w, r)
	if !ok {
		return
	}

	var req dto.TransactionEditRequest
	if err := decodeBody(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	edit, err := req.ToEdit()
	if err != nil {
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError("date must be YYYY-MM-DD"))
		return
	}

	result, err := h.reconciler.EditTransaction(r.Context(), txType, chi.URLParam(r, "id"), edit)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, editResponse(result.Unreconciled))
}

// Delete handles DELETE /api/transactions/{type}/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	txType, ok := h.parseType(w, r)
	if !ok {
		return
	}
	if err := h.reconciler.DeleteTransaction(r.Context(), txType, chi.URLParam(r, "id")); err != nil {
		h.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unreconcile handles POST /api/transactions/{type}/{id}/unreconcile.
// Only this transaction leaves the statement's reconciliation.
func (h *TransactionsHandler) Unreconcile(w http.ResponseWriter, r *http.Request) {
	txType, ok := h.parseType(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.reconciler.RemoveTransaction(r.Context(), txType, id); err != nil {
		h.WriteServiceError(w, err)
		return
	}

	tx, err := h.repo.GetTransaction(r.Context(), txType, id)
	if err != nil || tx == nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewTransactionResponse(tx))
}

func (h *TransactionsHandler) parseType(w http.ResponseWriter, r *http.Request) (ledger.TransactionType, bool) {
	txType, ok := ledger.ParseTransactionType(chi.URLParam(r, "type"))
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("transaction type must be income or expenses"))
	}
	return txType, ok
}
