package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/iho/moneyledger/internal/adapter/http/dto"
	"github.com/iho/moneyledger/internal/domain"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/accounts?limit=50", nil)
	if got, err := parseIntQuery(req, "limit", 10); err != nil || got != 50 {
		t.Fatalf("expected limit=50, got %d %v", got, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/accounts?limit=invalid", nil)
	if _, err := parseIntQuery(req, "limit", 10); err == nil {
		t.Fatalf("expected error for malformed limit")
	}

	req.URL = &url.URL{RawQuery: ""}
	if got, err := parseIntQuery(req, "limit", 25); err != nil || got != 25 {
		t.Fatalf("expected default when missing, got %d %v", got, err)
	}
}

func TestParseTimeQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-01-02&to=2026-01-03T10:00:00Z&bad=yesterday", nil)

	from, err := parseTimeQuery(req, "from")
	if err != nil || from == nil || from.Day() != 2 || from.Hour() != 0 {
		t.Fatalf("expected date-only value to parse as start of day, got %v %v", from, err)
	}

	to, err := parseTimeQuery(req, "to")
	if err != nil || to == nil || to.Hour() != 10 {
		t.Fatalf("expected RFC 3339 value to parse, got %v %v", to, err)
	}

	if missing, err := parseTimeQuery(req, "missing"); missing != nil || err != nil {
		t.Fatalf("expected nil for missing parameter, got %v %v", missing, err)
	}

	if _, err := parseTimeQuery(req, "bad"); err == nil {
		t.Fatalf("expected error for unparseable value")
	}
}

func TestParseUpperTimeQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?to=2026-01-31&exact=2026-01-31T10:00:00Z&bad=tomorrow", nil)

	to, err := parseUpperTimeQuery(req, "to")
	if err != nil || to == nil {
		t.Fatalf("expected date-only upper bound to parse, got %v %v", to, err)
	}
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)
	if !to.Equal(want) {
		t.Fatalf("expected end of day %v, got %v", want, to)
	}

	// A posting late on the final day is still inside the range.
	evening := time.Date(2026, 1, 31, 18, 30, 0, 0, time.UTC)
	if evening.After(*to) {
		t.Fatalf("expected %v to fall within upper bound %v", evening, to)
	}

	exact, err := parseUpperTimeQuery(req, "exact")
	if err != nil || exact == nil || exact.Hour() != 10 {
		t.Fatalf("expected RFC 3339 upper bound kept as given, got %v %v", exact, err)
	}

	if missing, err := parseUpperTimeQuery(req, "missing"); missing != nil || err != nil {
		t.Fatalf("expected nil for missing parameter, got %v %v", missing, err)
	}

	if _, err := parseUpperTimeQuery(req, "bad"); err == nil {
		t.Fatalf("expected error for unparseable value")
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"invalid kind", domain.ErrInvalidKind, http.StatusBadRequest},
		{"inverted range", fmt.Errorf("query: %w", domain.ErrInvalidDateRange), http.StatusBadRequest},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"lock timeout", domain.ErrLockTimeout, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable},
		{"account limit", domain.ErrAccountLimitReached, http.StatusConflict},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteDomainErrorHidesStoreFailureDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	writeDomainError(rec, req, "failed", errors.New("pq: password authentication failed"))

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message != "" || resp.Code != string(domain.KindStoreFailure) {
		t.Fatalf("expected store failure without details, got %+v", resp)
	}
}
