package handler

import (
	"context"
	"net/http"

	"github.com/iho/moneyledger/internal/adapter/http/dto"
	"github.com/iho/moneyledger/internal/adapter/http/middleware"
	"github.com/iho/moneyledger/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
	ReconcileUserAccounts(ctx context.Context, userID string) (*usecase.ReconciliationReport, error)
}

// ReconciliationHandler checks stored balances against posting sums.
type ReconciliationHandler struct {
	accounts AccountOwnership
	reconUC  ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(accounts AccountOwnership, reconUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{accounts: accounts, reconUC: reconUC}
}

// Account reconciles one account.
func (h *ReconciliationHandler) Account(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ownedAccountID(w, r, h.accounts)
	if !ok {
		return
	}

	result, err := h.reconUC.ReconcileAccount(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, r, "failed to reconcile account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(result))
}

// User reconciles every account of the caller.
func (h *ReconciliationHandler) User(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user", "")
		return
	}

	report, err := h.reconUC.ReconcileUserAccounts(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, "failed to reconcile accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationReportFromUseCase(report))
}
