package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/moneyledger/internal/domain"
	"github.com/iho/moneyledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse is the account list of one user.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// TransactionResponse represents a posting in API responses.
type TransactionResponse struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description *string         `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// TransactionFromDomain converts a domain posting to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Kind:        string(t.Kind),
		Amount:      t.Amount,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
	}
}

// TransactionPageResponse is one page of postings plus the filtered total.
type TransactionPageResponse struct {
	Data   []*TransactionResponse `json:"data"`
	Total  int64                  `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// TransactionPageFromUseCase converts a page of postings to response.
func TransactionPageFromUseCase(page *usecase.TransactionPage) *TransactionPageResponse {
	data := make([]*TransactionResponse, len(page.Data))
	for i, t := range page.Data {
		data[i] = TransactionFromDomain(t)
	}
	return &TransactionPageResponse{
		Data:   data,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
}

// SummaryResponse is the derived aggregate for one account.
type SummaryResponse struct {
	Balance      decimal.Decimal `json:"balance"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	TotalDebits  decimal.Decimal `json:"totalDebits"`
}

// SummaryFromDomain converts a summary to response.
func SummaryFromDomain(s *domain.Summary) *SummaryResponse {
	return &SummaryResponse{
		Balance:      s.Balance,
		TotalCredits: s.TotalCredits,
		TotalDebits:  s.TotalDebits,
	}
}

// BalanceHistoryPointResponse is the running balance after one posting.
type BalanceHistoryPointResponse struct {
	TransactionID  string          `json:"transactionId"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// BalanceHistoryFromDomain converts history points to responses.
func BalanceHistoryFromDomain(points []domain.BalanceHistoryPoint) []*BalanceHistoryPointResponse {
	result := make([]*BalanceHistoryPointResponse, len(points))
	for i, p := range points {
		result[i] = &BalanceHistoryPointResponse{
			TransactionID:  p.TransactionID,
			Kind:           string(p.Kind),
			Amount:         p.Amount,
			RunningBalance: p.RunningBalance,
			CreatedAt:      p.CreatedAt,
		}
	}
	return result
}

// ReconciliationResponse compares the stored balance with the posting sums.
type ReconciliationResponse struct {
	AccountID         string          `json:"accountId"`
	RecordedBalance   decimal.Decimal `json:"recordedBalance"`
	CalculatedBalance decimal.Decimal `json:"calculatedBalance"`
	TotalCredits      decimal.Decimal `json:"totalCredits"`
	TotalDebits       decimal.Decimal `json:"totalDebits"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"isReconciled"`
	LastChecked       time.Time       `json:"lastChecked"`
}

// ReconciliationFromUseCase converts a reconciliation result to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:         r.AccountID,
		RecordedBalance:   r.RecordedBalance,
		CalculatedBalance: r.CalculatedBalance,
		TotalCredits:      r.TotalCredits,
		TotalDebits:       r.TotalDebits,
		Difference:        r.Difference,
		IsReconciled:      r.IsReconciled,
		LastChecked:       r.LastChecked,
	}
}

// ReconciliationReportResponse summarizes reconciliation of several accounts.
type ReconciliationReportResponse struct {
	CheckedAt          time.Time                 `json:"checkedAt"`
	TotalAccounts      int                       `json:"totalAccounts"`
	ReconciledAccounts int                       `json:"reconciledAccounts"`
	Discrepancies      []*ReconciliationResponse `json:"discrepancies"`
}

// ReconciliationReportFromUseCase converts a report to response.
func ReconciliationReportFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromUseCase(d)
	}
	return &ReconciliationReportResponse{
		CheckedAt:          r.CheckedAt,
		TotalAccounts:      r.TotalAccounts,
		ReconciledAccounts: r.ReconciledAccounts,
		Discrepancies:      discrepancies,
	}
}
