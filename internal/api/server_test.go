package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/siteproof/linkaudit/internal/config"
	"github.com/siteproof/linkaudit/internal/locker"
)

type stubStages struct {
	mu    sync.Mutex
	calls []string
	err   error
	block chan struct{}
}

func (s *stubStages) Handle(_ context.Context, stage string) error {
	s.mu.Lock()
	s.calls = append(s.calls, stage)
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	return s.err
}

func (s *stubStages) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080, TimeoutSeconds: 10, LockWaitSeconds: 1},
		Remote: config.RemoteConfig{BaseURL: "https://api.example"},
	}
}

func newTestServer(t *testing.T, stages StageHandler, cfg config.Config) *httptest.Server {
	t.Helper()
	srv := NewServer(stages, locker.New(cfg.LockWait()), cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestWebhookSuccess(t *testing.T) {
	t.Parallel()

	stages := &stubStages{}
	ts := newTestServer(t, stages, testConfig())

	status, body := get(t, ts.URL+"/v1/webhooks/audit?stage=primary")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "OK", body)
	require.Equal(t, []string{"primary"}, stages.calls)
}

func TestWebhookRejectsUnknownStageBeforeHandling(t *testing.T) {
	t.Parallel()

	stages := &stubStages{}
	ts := newTestServer(t, stages, testConfig())

	status, body := get(t, ts.URL+"/v1/webhooks/audit?stage=tertiary")
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body, "Error:")
	require.Zero(t, stages.callCount())

	status, body = get(t, ts.URL+"/v1/webhooks/audit")
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body, "stage parameter is missing")
}

func TestWebhookStageErrorIsTextError(t *testing.T) {
	t.Parallel()

	stages := &stubStages{err: errors.New("primary report returned no rows after retries")}
	ts := newTestServer(t, stages, testConfig())

	status, body := get(t, ts.URL+"/v1/webhooks/audit?stage=primary")
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "Error: primary report returned no rows after retries", body)
}

func TestDuplicateDeliveryIsDiscarded(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	stages := &stubStages{block: block}
	cfg := testConfig()
	cfg.Server.LockWaitSeconds = 0 // locker falls back to its default; use a short one instead
	srv := NewServer(stages, locker.New(50*time.Millisecond), cfg, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	first := make(chan struct{})
	go func() {
		defer close(first)
		status, body := get(t, ts.URL+"/v1/webhooks/audit?stage=primary")
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "OK", body)
	}()

	// Wait for the first delivery to take the lock.
	require.Eventually(t, func() bool { return stages.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	// Second delivery for the same stage times out on the lock and is
	// acknowledged without running the stage again.
	status, body := get(t, ts.URL+"/v1/webhooks/audit?stage=primary")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "OK", body)
	require.Equal(t, 1, stages.callCount())

	close(block)
	<-first
}

func TestDifferentStagesDoNotContend(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	stages := &stubStages{block: block}
	srv := NewServer(stages, locker.New(time.Second), testConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	primaryDone := make(chan struct{})
	go func() {
		defer close(primaryDone)
		get(t, ts.URL+"/v1/webhooks/audit?stage=primary")
	}()
	require.Eventually(t, func() bool { return stages.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	secondaryDone := make(chan struct{})
	go func() {
		defer close(secondaryDone)
		get(t, ts.URL+"/v1/webhooks/audit?stage=secondary")
	}()
	// The secondary delivery proceeds while primary still holds its lock.
	require.Eventually(t, func() bool { return stages.callCount() == 2 },
		time.Second, 5*time.Millisecond)

	close(block)
	<-primaryDone
	<-secondaryDone
}

func TestAPIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Auth.Enabled = true
	cfg.Auth.APIKey = "hook-secret"
	stages := &stubStages{}
	ts := newTestServer(t, stages, cfg)

	status, body := get(t, ts.URL+"/v1/webhooks/audit?stage=primary")
	require.Equal(t, http.StatusForbidden, status)
	require.Contains(t, body, "unauthorized")
	require.Zero(t, stages.callCount())

	status, _ = get(t, ts.URL+"/v1/webhooks/audit?stage=primary&api_key=hook-secret")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, stages.callCount())

	// Health endpoints stay open.
	status, _ = get(t, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, status)
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &stubStages{}, testConfig())

	for _, path := range []string{"/healthz", "/readyz"} {
		status, body := get(t, ts.URL+path)
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, "OK", body)
	}

	status, body := get(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, &stubStages{}, testConfig())
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
