package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/moneyledger/internal/adapter/http/dto"
	"github.com/iho/moneyledger/internal/adapter/http/middleware"
	"github.com/iho/moneyledger/internal/domain"
)

// AccountOwnership resolves an account only when it belongs to the user.
type AccountOwnership interface {
	GetAccountForUser(ctx context.Context, accountID, userID string) (*domain.Account, error)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError maps err to a status and writes it. Store failures are
// logged and their details withheld from the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	kind := domain.ErrorKind(err)
	status := mapDomainError(err)

	details := err.Error()
	if kind == domain.KindStoreFailure {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(message)
		details = ""
	}

	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Code:    string(kind),
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch domain.ErrorKind(err) {
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case domain.KindBusy:
		return http.StatusServiceUnavailable
	case domain.KindLimitReached:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
// A present but malformed value is an error.
func parseIntQuery(r *http.Request, key string, defaultValue int) (int, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return i, nil
}

// parseTimeQuery parses an RFC 3339 timestamp or a YYYY-MM-DD date as the
// start of that day. A missing parameter yields nil.
func parseTimeQuery(r *http.Request, key string) (*time.Time, error) {
	t, _, err := parseTimeValue(r.URL.Query().Get(key))
	return t, err
}

// parseUpperTimeQuery is parseTimeQuery for inclusive upper bounds: a bare
// date covers the whole day.
func parseUpperTimeQuery(r *http.Request, key string) (*time.Time, error) {
	t, dateOnly, err := parseTimeValue(r.URL.Query().Get(key))
	if err != nil || t == nil || !dateOnly {
		return t, err
	}
	end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &end, nil
}

func parseTimeValue(val string) (*time.Time, bool, error) {
	if val == "" {
		return nil, false, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
		return &t, false, nil
	}

	t, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return nil, false, err
	}
	return &t, true, nil
}

// ownedAccountID returns the {id} path parameter once the caller is known to
// own that account. On failure the response has already been written.
func ownedAccountID(w http.ResponseWriter, r *http.Request, accounts AccountOwnership) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing user", "")
		return "", false
	}

	accountID, ok := pathID(w, r)
	if !ok {
		return "", false
	}

	if _, err := accounts.GetAccountForUser(r.Context(), accountID, userID); err != nil {
		writeDomainError(w, r, "failed to get account", err)
		return "", false
	}

	return accountID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return "", false
	}
	return id, true
}
