package dto

import (
	"time"

	"github.com/eshaffer321/churchbooks-backend/internal/domain/stats"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a healthy status response.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// StatsResponse is returned by GET /api/stats.
type StatsResponse struct {
	stats.Summary
	ByAccount map[string]stats.Summary `json:"byAccount"`
}

// AuditFindingResponse is one reported inconsistency.
type AuditFindingResponse struct {
	Kind            string `json:"kind"`
	StatementID     string `json:"statementId,omitempty"`
	TransactionID   string `json:"transactionId,omitempty"`
	TransactionType string `json:"transactionType,omitempty"`
	Detail          string `json:"detail"`
}

// AuditResponse is returned by GET /api/audit.
type AuditResponse struct {
	Clean          bool                   `json:"clean"`
	CheckedAt      string                 `json:"checkedAt"`
	Statements     int                    `json:"statements"`
	Transactions   int                    `json:"transactions"`
	PendingIntents int                    `json:"pendingIntents"`
	Findings       []AuditFindingResponse `json:"findings"`
}
