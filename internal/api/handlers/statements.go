package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/churchbooks-backend/internal/api/dto"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/matcher"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/storage"
)

// StatementsHandler handles bank statement HTTP requests.
type StatementsHandler struct {
	*Base
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(repo storage.Repository, reconciler Reconciler) *StatementsHandler {
	return &StatementsHandler{Base: NewBase(repo, reconciler)}
}

// List handles GET /api/statements
func (h *StatementsHandler) List(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAccount(r)
	if !ok {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("unknown account type"))
		return
	}
	status := storage.StatementStatus(r.URL.Query().Get("status"))
	if !status.Valid() {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("status must be one of all, reconciled, unreconciled, excluded"))
		return
	}

	statements, err := h.repo.ListStatements(r.Context(), storage.StatementFilters{
		AccountType: account,
		Status:      status,
	})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	resp := dto.StatementListResponse{
		Statements: make([]dto.StatementResponse, 0, len(statements)),
		TotalCount: len(statements),
	}
	for _, stmt := range statements {
		resp.Statements = append(resp.Statements, dto.NewStatementResponse(stmt))
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/statements/{id}
func (h *StatementsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stmt, err := h.repo.GetStatement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if stmt == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("statement"))
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewStatementResponse(stmt))
}

// Matches handles GET /api/statements/{id}/matches
func (h *StatementsHandler) Matches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.reconciler.FindMatches(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	bestTier, _ := matches.Result.Best()
	h.WriteJSON(w, http.StatusOK, dto.MatchesResponse{
		Statement:      dto.NewStatementResponse(matches.Statement),
		ExpectedType:   string(matcher.ExpectedType(matches.Statement.Amount)),
		BestTier:       bestTier,
		ExactMatches:   matchResponses(matches.Result.ExactMatches),
		FuzzyMatches:   matchResponses(matches.Result.FuzzyMatches),
		AmountMatches:  matchResponses(matches.Result.AmountMatches),
		CommentMatches: matchResponses(matches.Result.CommentMatches),
	})
}

// Reconcile handles POST /api/statements/{id}/reconcile
func (h *StatementsHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := decodeBody(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	outcome, err := h.reconciler.Reconcile(r.Context(), chi.URLParam(r, "id"), req.Refs())
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	resp := dto.ReconcileResponse{
		Statement:     dto.NewStatementResponse(outcome.Statement),
		Transactions:  make([]dto.TransactionResponse, 0, len(outcome.Transactions)),
		Total:         outcome.Total.StringFixed(2),
		Discrepancy:   outcome.Discrepancy.StringFixed(2),
		AmountWarning: outcome.AmountWarning,
	}
	for _, tx := range outcome.Transactions {
		resp.Transactions = append(resp.Transactions, dto.NewTransactionResponse(tx))
	}
	for _, warn := range outcome.Warnings {
		resp.Warnings = append(resp.Warnings, dto.SelectionWarningResponse{
			ID:     warn.Ref.ID,
			Type:   string(warn.Ref.Type),
			Reason: warn.Reason,
		})
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

// Unreconcile handles POST /api/statements/{id}/unreconcile
func (h *StatementsHandler) Unreconcile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.reconciler.Unreconcile(r.Context(), id); err != nil {
		h.WriteServiceError(w, err)
		return
	}
	h.writeStatement(w, r, id)
}

// Update handles PATCH /api/statements/{id}
func (h *StatementsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.StatementEditRequest
	if err := decodeBody(r, &req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	edit, err := req.ToEdit()
	if err != nil {
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError("postingDate must be YYYY-MM-DD"))
		return
	}

	result, err := h.reconciler.EditStatement(r.Context(), chi.URLParam(r, "id"), edit)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, editResponse(result.Unreconciled))
}

// SetExcluded handles PUT /api/statements/{id}/excluded
func (h *StatementsHandler) SetExcluded(w http.ResponseWriter, r *http.Request) {
	var req dto.ExcludedRequest
	if err := decodeBody(r, &req); err != nil || req.Excluded == nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("body must be {\"excluded\": true|false}"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.reconciler.SetExcluded(r.Context(), id, *req.Excluded); err != nil {
		h.WriteServiceError(w, err)
		return
	}
	h.writeStatement(w, r, id)
}

// Delete handles DELETE /api/statements/{id}
func (h *StatementsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reconciler.DeleteStatement(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeStatement re-reads a statement after a write and returns it.
func (h *StatementsHandler) writeStatement(w http.ResponseWriter, r *http.Request, id string) {
	stmt, err := h.repo.GetStatement(r.Context(), id)
	if err != nil || stmt == nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewStatementResponse(stmt))
}

func matchResponses(results []matcher.MatchResult) []dto.MatchResponse {
	out := make([]dto.MatchResponse, 0, len(results))
	for _, m := range results {
		out = append(out, dto.MatchResponse{
			Transaction: dto.NewTransactionResponse(m.Transaction),
			DateDiff:    m.DateDiff,
			AmountDiff:  m.AmountDiff,
		})
	}
	return out
}

func editResponse(unreconciled bool) dto.EditResponse {
	resp := dto.EditResponse{Unreconciled: unreconciled}
	if unreconciled {
		resp.Message = "the edit changed reconciled figures, so the reconciliation was removed"
	}
	return resp
}
