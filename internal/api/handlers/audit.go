package handlers

import (
	"net/http"
	"time"

	"github.com/eshaffer321/churchbooks-backend/internal/api/dto"
)

// AuditHandler reports drift between statements and transactions.
type AuditHandler struct {
	*Base
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(reconciler Reconciler) *AuditHandler {
	return &AuditHandler{Base: NewBase(nil, reconciler)}
}

// Get handles GET /api/audit
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.Audit(r.Context())
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	resp := dto.AuditResponse{
		Clean:          report.Clean(),
		CheckedAt:      report.CheckedAt.UTC().Format(time.RFC3339),
		Statements:     report.Statements,
		Transactions:   report.Transactions,
		PendingIntents: report.PendingIntents,
		Findings:       make([]dto.AuditFindingResponse, 0, len(report.Findings)),
	}
	for _, f := range report.Findings {
		resp.Findings = append(resp.Findings, dto.AuditFindingResponse{
			Kind:            string(f.Kind),
			StatementID:     f.StatementID,
			TransactionID:   f.TransactionID,
			TransactionType: string(f.TransactionType),
			Detail:          f.Detail,
		})
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
