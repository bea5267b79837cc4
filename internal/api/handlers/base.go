package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/eshaffer321/churchbooks-backend/internal/api/dto"
	"github.com/eshaffer321/churchbooks-backend/internal/application/reconcile"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/ledger"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/storage"
)

// Reconciler is the part of the reconciliation coordinator the handlers use.
type Reconciler interface {
	FindMatches(ctx context.Context, statementID string) (*reconcile.Matches, error)
	Reconcile(ctx context.Context, statementID string, refs []ledger.TransactionRef) (*reconcile.Outcome, error)
	Unreconcile(ctx context.Context, statementID string) error
	RemoveTransaction(ctx context.Context, txType ledger.TransactionType, txID string) error
	EditStatement(ctx context.Context, id string, edit reconcile.StatementEdit) (*reconcile.EditResult, error)
	EditTransaction(ctx context.Context, txType ledger.TransactionType, id string, edit reconcile.TransactionEdit) (*reconcile.EditResult, error)
	DeleteStatement(ctx context.Context, id string) error
	DeleteTransaction(ctx context.Context, txType ledger.TransactionType, id string) error
	SetExcluded(ctx context.Context, id string, excluded bool) error
	Audit(ctx context.Context) (*reconcile.AuditReport, error)
}

// Base provides shared functionality for all handlers.
type Base struct {
	repo       storage.Repository
	reconciler Reconciler
}

// NewBase creates a new base handler.
func NewBase(repo storage.Repository, reconciler Reconciler) *Base {
	return &Base{repo: repo, reconciler: reconciler}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteServiceError maps a coordinator error onto a status code.
func (b *Base) WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reconcile.ErrStatementNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("statement"))
	case errors.Is(err, reconcile.ErrTransactionNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NewAPIError(dto.ErrCodeNotFound, err.Error()))
	case errors.Is(err, reconcile.ErrNoTransactions),
		errors.Is(err, reconcile.ErrInvalidTransactionType):
		b.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
	case errors.Is(err, reconcile.ErrInvalidEdit):
		b.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError(err.Error()))
	case errors.Is(err, reconcile.ErrNotReconciled),
		errors.Is(err, reconcile.ErrAlreadyReconciled),
		errors.Is(err, reconcile.ErrReconciledExclusion):
		b.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
	default:
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ParseBoolParam parses a boolean query parameter with a default value.
func ParseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// parseAccount reads the account query parameter. Empty means all accounts.
func parseAccount(r *http.Request) (ledger.AccountType, bool) {
	account := ledger.AccountType(r.URL.Query().Get("account"))
	if account == "" {
		return "", true
	}
	return account, account.Valid()
}
