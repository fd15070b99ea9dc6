package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/captable-cli/internal/gateway"
	"github.com/sells-group/captable-cli/internal/model"
)

// mockBuilder implements the builder interface for handler tests.
type mockBuilder struct {
	result *model.BuildResult
	err    error
	calls  int
	force  bool
	ticker string
}

func (m *mockBuilder) Build(_ context.Context, ticker string, forceRefresh bool) (*model.BuildResult, error) {
	m.calls++
	m.ticker = ticker
	m.force = forceRefresh
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func newTestServer(t *testing.T, b builder) (*httptest.Server, gateway.Gateway) {
	t.Helper()
	gw, err := gateway.NewFS(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })

	srv := httptest.NewServer(newRouter(b, gw))
	t.Cleanup(srv.Close)
	return srv, gw
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &mockBuilder{})

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestBuildEndpoint(t *testing.T) {
	mb := &mockBuilder{
		result: &model.BuildResult{Ticker: "ACME", Status: model.StatusOK},
	}
	srv, _ := newTestServer(t, mb)

	resp, err := http.Post(srv.URL+"/api/captable/acme/build?force=true", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, mb.calls)
	assert.Equal(t, "acme", mb.ticker)
	assert.True(t, mb.force)

	var body model.BuildResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ACME", body.Ticker)
	assert.Equal(t, model.StatusOK, body.Status)
}

func TestBuildEndpointFailure(t *testing.T) {
	srv, _ := newTestServer(t, &mockBuilder{err: assert.AnError})

	resp, err := http.Post(srv.URL+"/api/captable/acme/build", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestGetCaptable(t *testing.T) {
	srv, gw := newTestServer(t, &mockBuilder{})
	ctx := context.Background()

	old := gateway.ArtifactKey("ACME", "captable", "json", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	_, err := gw.Write(ctx, old, []byte(`{"ticker":"ACME","vintage":"old"}`), "application/json")
	require.NoError(t, err)
	newest := gateway.ArtifactKey("ACME", "captable", "json", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	_, err = gw.Write(ctx, newest, []byte(`{"ticker":"ACME","vintage":"new"}`), "application/json")
	require.NoError(t, err)
	// A CSV under the same prefix must not shadow the JSON lookup.
	csvKey := gateway.ArtifactKey("ACME", "captable", "csv", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	_, err = gw.Write(ctx, csvKey, []byte("Company,ACME"), "text/csv")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/captable/acme")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "new", body["vintage"])
}

func TestGetCaptableNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &mockBuilder{})

	resp, err := http.Get(srv.URL + "/api/captable/none")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestIDPassthrough(t *testing.T) {
	srv, _ := newTestServer(t, &mockBuilder{})

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-Id", "caller-supplied")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "caller-supplied", resp.Header.Get("X-Request-Id"))
}
