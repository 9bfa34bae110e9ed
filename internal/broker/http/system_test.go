package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/aussiebroadwan/gamevault/pkg/brokersdk"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		live, err := f.sdk.GetLiveness(ctx)
		require.NoError(t, err)
		require.Equal(t, "ok", live.Status)
		require.Equal(t, "test", live.Version)
		require.NotEmpty(t, live.Uptime)

		ready, err := f.sdk.GetReadiness(ctx)
		require.NoError(t, err)
		require.Equal(t, "ok", ready.Status)
		require.Equal(t, map[string]string{"database": "ok", "signer": "ok", "sessions": "ok"}, ready.Checks)
	})

	t.Run("degraded", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		f.sessions.pingErr = errors.New("redis down")
		require.NoError(t, f.store.Close())

		resp, err := http.Get(f.srv.URL + "/readyz")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body brokersdk.HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "degraded", body.Status)
		require.Equal(t, "ok", body.Checks["signer"])
		require.Contains(t, body.Checks["database"], "error: ")
		require.Equal(t, "error: redis down", body.Checks["sessions"])

		_, err = f.sdk.GetReadiness(ctx)
		require.ErrorIs(t, err, brokersdk.ErrServer)
	})
}

func TestJWKSEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	jwks, err := f.sdk.GetJWKS(context.Background())
	require.NoError(t, err)
	require.Len(t, jwks.Keys, 2)
	for _, k := range jwks.Keys {
		require.Equal(t, "OKP", k.Kty)
		require.Equal(t, "Ed25519", k.Crv)
		require.NotEmpty(t, k.Kid)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.sdk.GetLiveness(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)
	require.Contains(t, body, `gamevault_http_requests_total{route="GET /livez",status="200"}`)
	require.Contains(t, body, "gamevault_http_request_duration_seconds")
	require.Contains(t, body, "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/verify-2fa", http.NoBody)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp
	}

	allowed := preflight(testAppOrigin)
	require.Equal(t, testAppOrigin, allowed.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", allowed.Header.Get("Access-Control-Allow-Credentials"))

	denied := preflight("https://evil.example")
	require.Empty(t, denied.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestIDEchoed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/livez", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-me")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "trace-me", resp.Header.Get("X-Request-ID"))
}
