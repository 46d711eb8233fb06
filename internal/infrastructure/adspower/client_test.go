package adspower

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, []string{"--disable-translate"}, time.Second, nil)
}

func TestStartReturnsEndpoint(t *testing.T) {
	t.Parallel()

	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/browser/start", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "17", q.Get("serial_number"))
		assert.Equal(t, "1", q.Get("open_tabs"))
		assert.Equal(t, "1", q.Get("headless"))

		var args []string
		require.NoError(t, json.Unmarshal([]byte(q.Get("launch_args")), &args))
		assert.Equal(t, []string{"--disable-translate"}, args)

		_, _ = w.Write([]byte(`{"code":0,"msg":"success","data":{"ws":{"puppeteer":"ws://127.0.0.1:9222/devtools/browser/x"}}}`))
	})

	endpoint, err := client.Start(context.Background(), "17", true)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/x", endpoint)
}

func TestStartReportsDomainFailure(t *testing.T) {
	t.Parallel()

	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("headless"))
		_, _ = w.Write([]byte(`{"code":-1,"msg":"profile does not exist"}`))
	})

	_, err := client.Start(context.Background(), "99", false)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, -1, apiErr.Code)
	assert.Contains(t, err.Error(), "profile does not exist")
}

func TestStartReportsTransportFailure(t *testing.T) {
	t.Parallel()

	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	_, err := client.Start(context.Background(), "1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestIsActive(t *testing.T) {
	t.Parallel()

	var inactive atomic.Bool
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/browser/active", r.URL.Path)
		status := "Active"
		if inactive.Load() {
			inactive.Store(true)
		}
		_, _ = w.Write([]byte(`{"code":0,"data":{"status":"` + status + `"}}`))
	})

	active, err := client.IsActive(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, active)

	inactive.Store(true)
	active, err = client.IsActive(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestStop(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/browser/stop", r.URL.Path)
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"code":0,"msg":"success"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":1,"msg":"not running"}`))
	})

	ok, err := client.Stop(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.Stop(context.Background(), "1")
	require.Error(t, err)
	assert.False(t, ok)
}
