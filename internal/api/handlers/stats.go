package handlers

import (
	"net/http"

	"github.com/eshaffer321/churchbooks-backend/internal/api/dto"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/stats"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/storage"
)

// StatsHandler handles stats-related HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{Base: NewBase(repo, nil)}
}

// Get handles GET /api/stats - reconciliation progress overall and per account.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	statements, err := h.repo.ListStatements(r.Context(), storage.StatementFilters{})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	resp := dto.StatsResponse{
		Summary:   stats.Compute(statements),
		ByAccount: make(map[string]stats.Summary),
	}
	for account, summary := range stats.ByAccount(statements) {
		resp.ByAccount[string(account)] = summary
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
