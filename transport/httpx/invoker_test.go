package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"goa.design/ari-client/binder"
	"goa.design/ari-client/internal/clienterr"
	"goa.design/ari-client/transport/httpx"
)

func TestInvokeDecodesSuccessfulJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bridges/b1", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "asterisk", user)
		require.Equal(t, "secret", pass)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"b1","name":"main"}`))
	}))
	defer srv.Close()

	inv, err := httpx.New(srv.URL, "asterisk", "secret")
	require.NoError(t, err)

	plan := &binder.Plan{Method: http.MethodGet, Path: "/bridges/b1"}
	result, err := inv.Invoke(context.Background(), plan)
	require.NoError(t, err)

	body, ok := result.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "b1", body["id"])
}

func TestInvokeToleratesEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	inv, err := httpx.New(srv.URL, "", "")
	require.NoError(t, err)

	plan := &binder.Plan{Method: http.MethodDelete, Path: "/bridges/b1"}
	result, err := inv.Invoke(context.Background(), plan)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestInvokeStatusErrorUsesMessageFromBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Bridge not found"}`))
	}))
	defer srv.Close()

	inv, err := httpx.New(srv.URL, "", "")
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), &binder.Plan{Method: http.MethodGet, Path: "/bridges/missing"})
	require.Error(t, err)
	var target *clienterr.Server
	require.ErrorAs(t, err, &target)
	require.Equal(t, http.StatusNotFound, target.Status)
	require.Equal(t, "Bridge not found", target.Message)
}

func TestInvokeStatusErrorFallsBackToReasonPhrase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	inv, err := httpx.New(srv.URL, "", "")
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), &binder.Plan{Method: http.MethodGet, Path: "/bridges/b1"})
	require.Error(t, err)
	var target *clienterr.Server
	require.ErrorAs(t, err, &target)
	require.Equal(t, http.StatusText(http.StatusInternalServerError), target.Message)
}

func TestInvokeNetworkFailureYieldsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed before any request reaches it

	inv, err := httpx.New(srv.URL, "", "")
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), &binder.Plan{Method: http.MethodGet, Path: "/bridges/b1"})
	require.Error(t, err)
	var target *clienterr.Transport
	require.ErrorAs(t, err, &target)
}

func TestInvokeContextCancelledYieldsCancelledError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	inv, err := httpx.New(srv.URL, "", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = inv.Invoke(ctx, &binder.Plan{Method: http.MethodGet, Path: "/bridges/b1"})
	require.Error(t, err)
	var target *clienterr.Cancelled
	require.ErrorAs(t, err, &target)
}

func TestInvokeRateLimitDelaysSecondCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	inv, err := httpx.New(srv.URL, "", "", httpx.WithRateLimit(rate.Every(50*time.Millisecond), 1))
	require.NoError(t, err)

	plan := &binder.Plan{Method: http.MethodGet, Path: "/bridges/b1"}
	_, err = inv.Invoke(context.Background(), plan)
	require.NoError(t, err)

	start := time.Now()
	_, err = inv.Invoke(context.Background(), plan)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestHTTPClientReturnsUnderlyingClient(t *testing.T) {
	custom := &http.Client{Timeout: 7 * time.Second}
	inv, err := httpx.New("http://example.invalid", "", "", httpx.WithHTTPClient(custom))
	require.NoError(t, err)
	require.Same(t, custom, inv.HTTPClient())
}

func TestNewRejectsUnparsableBaseURL(t *testing.T) {
	_, err := httpx.New("://not-a-url", "", "")
	require.Error(t, err)
	var target *clienterr.HostUnreachable
	require.ErrorAs(t, err, &target)
}
