package integration

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

	httpAdapter "github.com/iho/moneyledger/internal/adapter/http"
	"github.com/iho/moneyledger/internal/adapter/http/handler"
	"github.com/iho/moneyledger/internal/adapter/http/middleware"
	"github.com/iho/moneyledger/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/moneyledger/internal/adapter/repository/redis"
	"github.com/iho/moneyledger/internal/infrastructure/metrics"
	infraredis "github.com/iho/moneyledger/internal/infrastructure/redis"
	"github.com/iho/moneyledger/internal/usecase"
)

func TestHTTPAPIWithRedis(t *testing.T) {
	if redisURL() == "" {
		t.Skip("REDIS_URL not set")
	}

	f := newLedgerFixture(t)
	ctx := context.Background()
	f.db.TruncateAll(ctx)

	client, err := infraredis.NewClient(ctx, redisURL())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.FlushDB(ctx).Err())

	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	idGen := postgres.NewULIDGenerator()
	txManager := postgres.NewTxManager(f.db.Pool, 5*time.Second)
	summaries := usecase.NewSummaryCache(redisrepo.NewCache(client), 30*time.Second)

	accountUC := usecase.NewAccountUseCase(f.accountRepo, idGen, m)
	ledgerUC := usecase.NewLedgerUseCase(txManager, f.accountRepo, f.txRepo, idGen, summaries, usecase.WithLedgerMetrics(m))
	queryUC := usecase.NewQueryUseCase(f.accountRepo, f.txRepo, summaries, m, zerolog.Nop())

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(accountUC),
		LedgerHandler:         handler.NewLedgerHandler(accountUC, ledgerUC),
		QueryHandler:          handler.NewQueryHandler(accountUC, queryUC),
		ReconciliationHandler: handler.NewReconciliationHandler(accountUC, f.reconUC),
		HealthHandler: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": f.db.Pool,
			"redis": handler.PingerFunc(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}),
		}),
		IdempotencyStore: redisrepo.NewIdempotencyStore(client),
		IdempotencyTTL:   time.Hour,
		Metrics:          m,
		Logger:           zerolog.Nop(),
	})

	send := func(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(middleware.UserIDHeader, "user-1")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := send(http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = send(http.MethodPost, "/api/v1/accounts", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var account struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))

	idem := map[string]string{middleware.IdempotencyKeyHeader: "credit-1"}
	first := send(http.MethodPost, "/api/v1/accounts/"+account.ID+"/credit", `{"amount":"25"}`, idem)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	replay := send(http.MethodPost, "/api/v1/accounts/"+account.ID+"/credit", `{"amount":"25"}`, idem)
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(middleware.IdempotencyReplayHeader))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	rec = send(http.MethodPost, "/api/v1/accounts/"+account.ID+"/debit", `{"amount":"30"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = send(http.MethodGet, "/api/v1/accounts/"+account.ID+"/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance":"25","totalCredits":"25","totalDebits":"0"}`, rec.Body.String())

	rec = send(http.MethodGet, "/api/v1/accounts/"+account.ID+"/reconciliation", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isReconciled":true`)
}
