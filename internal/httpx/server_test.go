package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getReady(t *testing.T, cfg RouterConfig) (int, readiness) {
	t.Helper()
	srv := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var out readiness
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestReadyz_AllChecksPass(t *testing.T) {
	ok := func(context.Context) error { return nil }
	code, out := getReady(t, RouterConfig{Ready: map[string]Check{"postgres": ok, "redis": ok}})

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, map[string]string{"postgres": "ok", "redis": "ok"}, out.Checks)
	assert.Empty(t, out.Failed)
}

func TestReadyz_NoChecksIsReady(t *testing.T) {
	code, out := getReady(t, RouterConfig{})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out.Status)
}

func TestReadyz_FailedCheckIsUnavailable(t *testing.T) {
	code, out := getReady(t, RouterConfig{Ready: map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}})

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", out.Status)
	assert.Equal(t, []string{"redis"}, out.Failed)
	assert.Equal(t, "connection refused", out.Checks["redis"])
	assert.Equal(t, "ok", out.Checks["postgres"])
}

func TestReadyz_SlowCheckTimesOut(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	start := time.Now()
	code, out := getReady(t, RouterConfig{
		Ready:        map[string]Check{"kafka": slow},
		CheckTimeout: 50 * time.Millisecond,
	})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, []string{"kafka"}, out.Failed)
	assert.Equal(t, context.DeadlineExceeded.Error(), out.Checks["kafka"])
}

func TestHealthz_IgnoresDependencies(t *testing.T) {
	srv := httptest.NewServer(NewRouter(RouterConfig{
		Ready: map[string]Check{"postgres": func(context.Context) error { return errors.New("down") }},
	}))
	t.Cleanup(srv.Close)

	// liveness ignores dependencies
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
