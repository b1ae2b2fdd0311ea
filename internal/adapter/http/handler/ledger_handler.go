package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/iho/moneyledger/internal/adapter/http/dto"
	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	Post(ctx context.Context, input usecase.PostInput) (*domain.Transaction, error)
}

// LedgerHandler posts credits and debits.
type LedgerHandler struct {
	accounts AccountOwnership
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(accounts AccountOwnership, ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{accounts: accounts, ledgerUC: ledgerUC}
}

// Credit adds money to an account.
func (h *LedgerHandler) Credit(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, domain.TransactionKindCredit)
}

// Debit takes money from an account.
func (h *LedgerHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, domain.TransactionKindDebit)
}

func (h *LedgerHandler) post(w http.ResponseWriter, r *http.Request, kind domain.TransactionKind) {
	var req dto.PostTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	accountID, ok := ownedAccountID(w, r, h.accounts)
	if !ok {
		return
	}

	transaction, err := h.ledgerUC.Post(r.Context(), req.ToUseCaseInput(accountID, kind))
	if err != nil {
		writeDomainError(w, r, "failed to post transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(transaction))
}
