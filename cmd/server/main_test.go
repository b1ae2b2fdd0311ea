package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/moneyledger/internal/adapter/repository/memory"
	"github.com/iho/moneyledger/internal/infrastructure/config"
	"github.com/iho/moneyledger/internal/infrastructure/eventpublisher"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StoreBackend:      config.StoreBackendMemory,
		CacheBackend:      config.CacheBackendMemory,
		SummaryCacheTTL:   30 * time.Second,
		MemoryCacheSize:   128,
		LedgerLockTimeout: time.Second,
		IdempotencyTTL:    time.Hour,
		RateLimitRPS:      1000,
		RateLimitBurst:    1000,
	}
}

func TestNewAppServesMemoryLedger(t *testing.T) {
	app, err := newApp(context.Background(), memoryConfig(), zerolog.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(app.Close)

	send := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		return rec
	}

	rec := send(http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = send(http.MethodPost, "/api/v1/accounts", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var account struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))

	rec = send(http.MethodPost, "/api/v1/accounts/"+account.ID+"/credit", `{"amount":"12.34"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = send(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "moneyledger_postings_total")
}

func TestNewCachesSelectsBackend(t *testing.T) {
	cfg := memoryConfig()

	cfg.CacheBackend = config.CacheBackendNone
	cache, idem, err := newCaches(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, memory.NoopCache{}, cache)
	assert.IsType(t, &memory.IdempotencyStore{}, idem)

	cfg.CacheBackend = config.CacheBackendMemory
	cache, _, err = newCaches(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Cache{}, cache)
}

func TestNewPublisherFallsBackToLog(t *testing.T) {
	cfg := memoryConfig()
	assert.IsType(t, &eventpublisher.LogPublisher{}, newPublisher(cfg, zerolog.Nop()))

	cfg.KafkaBrokers = []string{"localhost:9092"}
	pub := newPublisher(cfg, zerolog.Nop())
	assert.IsType(t, &eventpublisher.KafkaPublisher{}, pub)
	require.NoError(t, pub.Close())
}
