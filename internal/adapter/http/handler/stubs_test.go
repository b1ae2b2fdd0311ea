package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/moneyledger/internal/adapter/http/middleware"
	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/usecase"
)

type accountServiceStub struct {
	createFn func(ctx context.Context, userID string) (*domain.Account, error)
	getFn    func(ctx context.Context, accountID, userID string) (*domain.Account, error)
	listFn   func(ctx context.Context, userID string) ([]*domain.Account, error)
}

func (s *accountServiceStub) CreateAccount(ctx context.Context, userID string) (*domain.Account, error) {
	return s.createFn(ctx, userID)
}

func (s *accountServiceStub) GetAccountForUser(ctx context.Context, accountID, userID string) (*domain.Account, error) {
	return s.getFn(ctx, accountID, userID)
}

func (s *accountServiceStub) ListAccountsByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	return s.listFn(ctx, userID)
}

// ownerStub lets user-1 see acc-1 and nothing else.
func ownerStub() *accountServiceStub {
	return &accountServiceStub{
		getFn: func(ctx context.Context, accountID, userID string) (*domain.Account, error) {
			if accountID == "acc-1" && userID == "user-1" {
				return &domain.Account{ID: accountID, UserID: userID}, nil
			}
			return nil, domain.ErrAccountNotFound
		},
	}
}

type ledgerServiceStub struct {
	postFn func(ctx context.Context, input usecase.PostInput) (*domain.Transaction, error)
}

func (s *ledgerServiceStub) Post(ctx context.Context, input usecase.PostInput) (*domain.Transaction, error) {
	return s.postFn(ctx, input)
}

type queryServiceStub struct {
	listFn    func(ctx context.Context, input usecase.ListTransactionsInput) (*usecase.TransactionPage, error)
	summaryFn func(ctx context.Context, accountID string) (*domain.Summary, error)
	historyFn func(ctx context.Context, accountID string) ([]domain.BalanceHistoryPoint, error)
}

func (s *queryServiceStub) ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) (*usecase.TransactionPage, error) {
	return s.listFn(ctx, input)
}

func (s *queryServiceStub) AccountSummary(ctx context.Context, accountID string) (*domain.Summary, error) {
	return s.summaryFn(ctx, accountID)
}

func (s *queryServiceStub) BalanceHistory(ctx context.Context, accountID string) ([]domain.BalanceHistoryPoint, error) {
	return s.historyFn(ctx, accountID)
}

type reconciliationServiceStub struct {
	accountFn func(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
	userFn    func(ctx context.Context, userID string) (*usecase.ReconciliationReport, error)
}

func (s *reconciliationServiceStub) ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error) {
	return s.accountFn(ctx, accountID)
}

func (s *reconciliationServiceStub) ReconcileUserAccounts(ctx context.Context, userID string) (*usecase.ReconciliationReport, error) {
	return s.userFn(ctx, userID)
}

// serve routes one request through pattern so chi URL params resolve.
func serve(method, pattern, target, body, userID string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
