package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandler(t *testing.T) {
	healthy := PingerFunc(func(ctx context.Context) error { return nil })
	broken := PingerFunc(func(ctx context.Context) error { return errors.New("down") })

	h := NewHealthHandler(map[string]Pinger{"postgres": healthy, "redis": nil})

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected liveness 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected readiness 200, got %d: %s", rec.Code, rec.Body.String())
	}

	h = NewHealthHandler(map[string]Pinger{"postgres": healthy, "redis": broken})
	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected readiness 503, got %d", rec.Code)
	}
}
