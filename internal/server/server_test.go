package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kvora49/Lead-finder-sub001/internal/engine/cache"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/provider"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/quota"
	"github.com/kvora49/Lead-finder-sub001/internal/engine/search"
	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

const testSecret = "s3cret"

// stubExecutor returns three bakeries for the first variant and nothing
// for the rest, or fails every call when err is set. With pages > 1 the
// first variant spans that many pages.
type stubExecutor struct {
	err   error
	pages int
	calls atomic.Int64
}

func (s *stubExecutor) Name() string { return "stub" }

func (s *stubExecutor) Begin(context.Context, string) (provider.Session, error) { return s, nil }

func (s *stubExecutor) Close() error { return nil }

func (s *stubExecutor) FetchPage(_ context.Context, query, token string) (provider.Page, error) {
	s.calls.Add(1)
	if s.err != nil {
		return provider.Page{}, s.err
	}
	if !strings.HasPrefix(query, "bakery shop") {
		return provider.Page{ZeroResults: true}, nil
	}
	page := len(token)
	if page > 0 {
		return provider.Page{Results: []model.RawResult{
			{PlaceID: "more" + token, Name: "More Bread " + token},
		}, NextToken: s.next(token)}, nil
	}
	return provider.Page{Results: []model.RawResult{
		{PlaceID: "p1", Name: "Sweet Crumbs", Phone: model.Ptr("020 1111")},
		{PlaceID: "p2", Name: "Daily Bread"},
		{PlaceID: "p3", Name: "Crust & Co"},
	}, NextToken: s.next(token)}, nil
}

// next hands out tokens "n", "nn", ... until pages is reached.
func (s *stubExecutor) next(token string) string {
	if len(token)+1 >= s.pages {
		return ""
	}
	return token + "n"
}

type brokenStore struct{ *cache.MemoryStore }

func (brokenStore) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, exec provider.Executor, store cache.Store, acct quota.Accountant) *httptest.Server {
	t.Helper()
	log := zaptest.NewLogger(t)
	settings := search.Settings{MaxPages: 5, MaxVariants: 6, Concurrency: 1}
	svc := search.NewService(exec, cache.NewManager(store, log), settings, log)
	srv := httptest.NewServer(New(svc, acct, testSecret, log).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, secret, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/scrape", bytes.NewBufferString(body))
	require.NoError(t, err)
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestScrape(t *testing.T) {
	srv := newTestServer(t, &stubExecutor{}, cache.NewMemoryStore(), nil)

	resp, out := post(t, srv, testSecret, `{"keyword":"bakery","location":"Pune"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.Equal(t, resp.Header.Get(RequestIDHeader), out["requestId"])
	assert.Equal(t, true, out["success"])
	assert.Equal(t, false, out["cached"])
	assert.Equal(t, float64(3), out["count"])
	assert.Equal(t, float64(1), out["apiCalls"])

	results := out["results"].([]any)
	require.Len(t, results, 3)
	first := results[0].(map[string]any)
	assert.Equal(t, "Sweet Crumbs", first["name"])
	second := results[1].(map[string]any)
	assert.Contains(t, second, "phone")
	assert.Nil(t, second["phone"])

	resp, out = post(t, srv, testSecret, `{"keyword":"Bakery","location":"pune"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["cached"])
	assert.Equal(t, float64(0), out["apiCalls"])
	assert.Equal(t, float64(3), out["count"])
}

func TestScrapeUnauthorized(t *testing.T) {
	srv := newTestServer(t, &stubExecutor{}, cache.NewMemoryStore(), nil)

	for _, secret := range []string{"", "wrong"} {
		resp, out := post(t, srv, secret, `{"keyword":"bakery","location":"Pune"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "unauthorized", out["error"])
	}
}

func TestScrapeBadRequest(t *testing.T) {
	srv := newTestServer(t, &stubExecutor{}, cache.NewMemoryStore(), nil)

	for _, body := range []string{
		`not json`,
		`{"keyword":"","location":"Pune"}`,
		`{"keyword":"bakery","location":"   "}`,
		`{"keyword":"bakery","location":"Pune","scope":"galaxy"}`,
	} {
		resp, out := post(t, srv, testSecret, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		assert.Equal(t, "invalid_request", out["error"])
		assert.NotEmpty(t, out["message"])
	}
}

func TestScrapeProviderFailure(t *testing.T) {
	exec := &stubExecutor{err: &provider.Error{Status: "OVER_QUERY_LIMIT", Message: "quota exceeded"}}
	srv := newTestServer(t, exec, cache.NewMemoryStore(), nil)

	resp, out := post(t, srv, testSecret, `{"keyword":"bakery","location":"Pune"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "scrape_failed", out["error"])
	assert.Contains(t, out["message"], "OVER_QUERY_LIMIT")
}

func newLedger(t *testing.T, balances map[string]int64) *quota.RedisLedger {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	ledger := quota.NewRedisLedger(rdb)
	for user, credits := range balances {
		require.NoError(t, ledger.SetBalance(context.Background(), user, credits))
	}
	return ledger
}

func TestScrapeCredits(t *testing.T) {
	ledger := newLedger(t, map[string]int64{"rich": 10, "broke": 0})
	exec := &stubExecutor{}
	srv := newTestServer(t, exec, cache.NewMemoryStore(), ledger)

	resp, out := post(t, srv, testSecret, `{"keyword":"bakery","location":"Pune","userId":"broke"}`)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "insufficient_credits", out["error"])
	assert.Zero(t, exec.calls.Load(), "an empty balance never reaches the provider")

	resp, out = post(t, srv, testSecret, `{"keyword":"bakery","location":"Mumbai","userId":"rich"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(9), out["remainingCredits"])

	// Results someone else paid for are served from the cache at no cost.
	resp, out = post(t, srv, testSecret, `{"keyword":"bakery","location":"Mumbai","userId":"broke"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, out["cached"])
	assert.Equal(t, float64(0), out["apiCalls"])

	// But an empty balance cannot force a refresh.
	resp, out = post(t, srv, testSecret, `{"keyword":"bakery","location":"Mumbai","userId":"broke","forceRefresh":true}`)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "insufficient_credits", out["error"])
}

func TestScrapeRetryAfterPaymentRequired(t *testing.T) {
	ledger := newLedger(t, map[string]int64{"broke": 0})
	exec := &stubExecutor{}
	srv := newTestServer(t, exec, cache.NewMemoryStore(), ledger)

	body := `{"keyword":"bakery","location":"Pune","userId":"broke"}`
	for attempt := 1; attempt <= 2; attempt++ {
		resp, out := post(t, srv, testSecret, body)
		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode, "attempt %d", attempt)
		assert.Equal(t, "insufficient_credits", out["error"])
		assert.NotContains(t, out, "results")
	}
	assert.Zero(t, exec.calls.Load())

	bal, err := ledger.Balance(context.Background(), "broke")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)
}

func TestScrapeShortBalanceIsNotServedLater(t *testing.T) {
	ledger := newLedger(t, map[string]int64{"poor": 2})
	exec := &stubExecutor{pages: 3}
	srv := newTestServer(t, exec, cache.NewMemoryStore(), ledger)

	body := `{"keyword":"bakery","location":"Pune","userId":"poor"}`
	resp, out := post(t, srv, testSecret, body)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "insufficient_credits", out["error"])
	spent := exec.calls.Load()
	assert.Positive(t, spent)

	bal, err := ledger.Balance(context.Background(), "poor")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)

	resp, out = post(t, srv, testSecret, body)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.NotContains(t, out, "results")
	assert.Equal(t, spent, exec.calls.Load())
}

func TestScrapePaginatedCost(t *testing.T) {
	ledger := newLedger(t, map[string]int64{"u1": 10})
	srv := newTestServer(t, &stubExecutor{pages: 3}, cache.NewMemoryStore(), ledger)

	resp, out := post(t, srv, testSecret, `{"keyword":"bakery","location":"Pune","userId":"u1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), out["apiCalls"])
	assert.Equal(t, float64(5), out["count"])
	assert.Equal(t, float64(7), out["remainingCredits"])
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubExecutor{}, cache.NewMemoryStore(), nil)
	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var h healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "connected", h.Store)
	assert.Equal(t, "stub", h.Provider)

	down := newTestServer(t, &stubExecutor{}, brokenStore{cache.NewMemoryStore()}, nil)
	resp, err = down.Client().Get(down.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "unreachable", h.Store)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubExecutor{}, cache.NewMemoryStore(), nil)
	post(t, srv, testSecret, `{"keyword":"bakery","location":"Nagpur"}`)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "leadfinder_searches_total")
}

func TestRun(t *testing.T) {
	log := zaptest.NewLogger(t)
	svc := search.NewService(&stubExecutor{}, cache.NewManager(cache.NewMemoryStore(), log), search.DefaultSettings(), log)
	s := New(svc, nil, testSecret, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0", 0) }()
	cancel()
	assert.NoError(t, <-done)
}
