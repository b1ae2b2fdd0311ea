package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const userIDHeader = "X-User-ID"

type options struct {
	baseURL string
	userID  string
	timeout time.Duration
	output  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "moneyledger-cli",
		Short:         "MoneyLedger CLI tool",
		Long:          `A command line interface for interacting with the MoneyLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("MONEYLEDGER_URL", "http://localhost:8080"), "Base URL of the MoneyLedger API")
	rootCmd.PersistentFlags().StringVar(&opts.userID, "user", os.Getenv("MONEYLEDGER_USER"), "User ID sent with every request")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format (table|json)")

	rootCmd.AddCommand(
		accountsCmd(opts),
		postCmd(opts, "credit", "Add funds to an account"),
		postCmd(opts, "debit", "Withdraw funds from an account"),
		transactionsCmd(opts),
		summaryCmd(opts),
		historyCmd(opts),
		reconcileCmd(opts),
	)

	return rootCmd
}

func accountsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Open a new account with zero balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var account accountView
			if err := newClient(opts).do(cmd.Context(), http.MethodPost, "/api/v1/accounts", nil, "", &account); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, account, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tBALANCE\tCREATED")
				fmt.Fprintf(w, "%s\t%s\t%s\n", account.ID, account.Balance, account.CreatedAt.Format(time.RFC3339))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Accounts []accountView `json:"accounts"`
			}
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, "/api/v1/accounts", nil, "", &resp); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, resp, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tBALANCE\tCREATED")
				for _, a := range resp.Accounts {
					fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.Balance, a.CreatedAt.Format(time.RFC3339))
				}
			})
		},
	})

	return cmd
}

func postCmd(opts *options, kind, short string) *cobra.Command {
	var (
		description    string
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   kind + " <account-id> <amount>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			if !amount.IsPositive() {
				return fmt.Errorf("amount must be positive")
			}

			body := map[string]any{"amount": amount}
			if description != "" {
				body["description"] = description
			}
			if idempotencyKey == "" {
				idempotencyKey = ulid.Make().String()
			}

			var tx transactionView
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/" + kind
			if err := newClient(opts).do(cmd.Context(), http.MethodPost, path, body, idempotencyKey, &tx); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, tx, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tKIND\tAMOUNT\tCREATED")
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tx.ID, tx.Kind, tx.Amount, tx.CreatedAt.Format(time.RFC3339))
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Free-text description")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Idempotency key (generated when empty)")

	return cmd
}

func transactionsCmd(opts *options) *cobra.Command {
	var (
		kind   string
		from   string
		to     string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "transactions <account-id>",
		Short: "List postings, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("limit", fmt.Sprint(limit))
			query.Set("offset", fmt.Sprint(offset))
			if kind != "" {
				query.Set("kind", strings.ToUpper(kind))
			}
			if from != "" {
				query.Set("from", from)
			}
			if to != "" {
				query.Set("to", to)
			}

			var page struct {
				Data   []transactionView `json:"data"`
				Total  int64             `json:"total"`
				Limit  int               `json:"limit"`
				Offset int               `json:"offset"`
			}
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/transactions?" + query.Encode()
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, path, nil, "", &page); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, page, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tKIND\tAMOUNT\tDESCRIPTION\tCREATED")
				for _, tx := range page.Data {
					desc := ""
					if tx.Description != nil {
						desc = truncate(*tx.Description, 32)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.Kind, tx.Amount, desc, tx.CreatedAt.Format(time.RFC3339))
				}
				fmt.Fprintf(w, "\nshowing %d of %d (offset %d)\n", len(page.Data), page.Total, page.Offset)
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Filter by kind (credit|debit)")
	cmd.Flags().StringVar(&from, "from", "", "Only postings at or after this time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Only postings at or before this time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	return cmd
}

func summaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <account-id>",
		Short: "Show balance and totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var summary struct {
				Balance      decimal.Decimal `json:"balance"`
				TotalCredits decimal.Decimal `json:"totalCredits"`
				TotalDebits  decimal.Decimal `json:"totalDebits"`
			}
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/summary"
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, path, nil, "", &summary); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, summary, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Account:\t%s\n", args[0])
				fmt.Fprintf(w, "Balance:\t%s\n", summary.Balance)
				fmt.Fprintf(w, "Credits:\t%s\n", summary.TotalCredits)
				fmt.Fprintf(w, "Debits:\t%s\n", summary.TotalDebits)
			})
		},
	}
}

func historyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history <account-id>",
		Short: "Show the running balance after every posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var points []struct {
				TransactionID  string          `json:"transactionId"`
				Kind           string          `json:"kind"`
				Amount         decimal.Decimal `json:"amount"`
				RunningBalance decimal.Decimal `json:"runningBalance"`
				CreatedAt      time.Time       `json:"createdAt"`
			}
			path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/balance/history"
			if err := newClient(opts).do(cmd.Context(), http.MethodGet, path, nil, "", &points); err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts, points, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "CREATED\tKIND\tAMOUNT\tBALANCE")
				for _, p := range points {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.CreatedAt.Format(time.RFC3339), p.Kind, p.Amount, p.RunningBalance)
				}
			})
		},
	}
}

func reconcileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [account-id]",
		Short: "Compare stored balances with posting history",
		Long:  `Reconciles a single account, or every account of the current user when no ID is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient(opts)

			if len(args) == 1 {
				var result reconciliationView
				path := "/api/v1/accounts/" + url.PathEscape(args[0]) + "/reconciliation"
				if err := client.do(cmd.Context(), http.MethodGet, path, nil, "", &result); err != nil {
					return err
				}
				if err := render(cmd.OutOrStdout(), opts, result, func(w *tabwriter.Writer) {
					printReconciliation(w, []reconciliationView{result})
				}); err != nil {
					return err
				}
				if !result.IsReconciled {
					return fmt.Errorf("reconciliation FAILED for account %s", result.AccountID)
				}
				return nil
			}

			var report struct {
				TotalAccounts      int                  `json:"totalAccounts"`
				ReconciledAccounts int                  `json:"reconciledAccounts"`
				Discrepancies      []reconciliationView `json:"discrepancies"`
			}
			if err := client.do(cmd.Context(), http.MethodGet, "/api/v1/reconciliation", nil, "", &report); err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), opts, report, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "Reconciled %d of %d accounts\n", report.ReconciledAccounts, report.TotalAccounts)
				if len(report.Discrepancies) > 0 {
					fmt.Fprintln(w)
					printReconciliation(w, report.Discrepancies)
				}
			}); err != nil {
				return err
			}
			if len(report.Discrepancies) > 0 {
				return fmt.Errorf("reconciliation FAILED for %d account(s)", len(report.Discrepancies))
			}
			return nil
		},
	}
}

func printReconciliation(w io.Writer, results []reconciliationView) {
	fmt.Fprintln(w, "ACCOUNT\tRECORDED\tCALCULATED\tDIFFERENCE\tOK")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", r.AccountID, r.RecordedBalance, r.CalculatedBalance, r.Difference, r.IsReconciled)
	}
}

type accountView struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type transactionView struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"`
	Description *string         `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type reconciliationView struct {
	AccountID         string          `json:"accountId"`
	RecordedBalance   decimal.Decimal `json:"recordedBalance"`
	CalculatedBalance decimal.Decimal `json:"calculatedBalance"`
	Difference        decimal.Decimal `json:"difference"`
	IsReconciled      bool            `json:"isReconciled"`
}

type apiClient struct {
	opts *options
	http *http.Client
}

func newClient(opts *options) *apiClient {
	return &apiClient{opts: opts, http: &http.Client{Timeout: opts.timeout}}
}

type apiError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
	Detail  string `json:"message"`
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("request failed (status %d)", e.Status)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (c *apiClient) do(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	if c.opts.userID == "" {
		return fmt.Errorf("user ID is required (--user or MONEYLEDGER_USER)")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.opts.baseURL, "/")+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set(userIDHeader, c.opts.userID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func render(out io.Writer, opts *options, v any, table func(w *tabwriter.Writer)) error {
	if opts.output == "json" {
		return printJSON(out, v)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
