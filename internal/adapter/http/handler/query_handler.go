package handler

import (
	"context"
	"net/http"

	"github.com/iho/moneyledger/internal/adapter/http/dto"
	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/usecase"
)

// QueryService defines the behavior needed by QueryHandler.
type QueryService interface {
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) (*usecase.TransactionPage, error)
	AccountSummary(ctx context.Context, accountID string) (*domain.Summary, error)
	BalanceHistory(ctx context.Context, accountID string) ([]domain.BalanceHistoryPoint, error)
}

// QueryHandler serves read-only views of an account.
type QueryHandler struct {
	accounts AccountOwnership
	queryUC  QueryService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(accounts AccountOwnership, queryUC QueryService) *QueryHandler {
	return &QueryHandler{accounts: accounts, queryUC: queryUC}
}

// ListTransactions returns one page of postings, newest first.
func (h *QueryHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseIntQuery(r, "limit", domain.DefaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit", err.Error())
		return
	}
	offset, err := parseIntQuery(r, "offset", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset", err.Error())
		return
	}
	input := usecase.ListTransactionsInput{Limit: limit, Offset: offset}

	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, err := domain.ParseTransactionKind(raw)
		if err != nil {
			writeDomainError(w, r, "invalid kind", err)
			return
		}
		input.Kind = &kind
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from", err.Error())
		return
	}
	to, err := parseUpperTimeQuery(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to", err.Error())
		return
	}
	input.From, input.To = from, to

	accountID, ok := ownedAccountID(w, r, h.accounts)
	if !ok {
		return
	}
	input.AccountID = accountID

	page, err := h.queryUC.ListTransactions(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionPageFromUseCase(page))
}

// Summary returns balance and per-kind totals.
func (h *QueryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ownedAccountID(w, r, h.accounts)
	if !ok {
		return
	}

	summary, err := h.queryUC.AccountSummary(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, r, "failed to get summary", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromDomain(summary))
}

// BalanceHistory returns the running balance after every posting.
func (h *QueryHandler) BalanceHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := ownedAccountID(w, r, h.accounts)
	if !ok {
		return
	}

	points, err := h.queryUC.BalanceHistory(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, r, "failed to get balance history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceHistoryFromDomain(points))
}
