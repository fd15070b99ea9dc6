package filings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/captable-cli/internal/config"
	"github.com/sells-group/captable-cli/internal/model"
	"github.com/sells-group/captable-cli/internal/resilience"
)

func newTestClient(t *testing.T, queryURL, renderURL string) *Client {
	t.Helper()
	cfg := config.FilingsConfig{
		Key:           "test-key",
		QueryBaseURL:  queryURL,
		RenderBaseURL: renderURL,
		VerifyTLS:     true,
		TimeoutSecs:   5,
		FormDelayMs:   1,
	}
	return NewClient(cfg, zap.NewNop(), WithRateLimit(rate.NewLimiter(rate.Inf, 1)))
}

func TestGetLatest(t *testing.T) {
	var gotBody queryRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"filings":[{
			"ticker": "ACME",
			"formType": "10-K",
			"filedAt": "2026-02-18T16:31:48-05:00",
			"linkToFilingDetails": "https://www.sec.gov/Archives/edgar/data/1/acme-10k.htm"
		}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	ref, err := c.GetLatest(context.Background(), "acme", model.Form10K)
	require.NoError(t, err)
	require.NotNil(t, ref)

	assert.Equal(t, "ACME", ref.Ticker)
	assert.Equal(t, model.Form10K, ref.FormType)
	assert.Equal(t, time.Date(2026, 2, 18, 21, 31, 48, 0, time.UTC), ref.FiledAt)
	assert.Equal(t, "https://www.sec.gov/Archives/edgar/data/1/acme-10k.htm", ref.SourceURL)

	assert.Contains(t, gotBody.Query, "ticker:ACME")
	assert.Contains(t, gotBody.Query, `formType:"10-K"`)
	assert.Contains(t, gotBody.Query, `NOT formType:"10-K/A"`)
	assert.Equal(t, "1", gotBody.Size)
	require.Len(t, gotBody.Sort, 1)
	assert.Equal(t, "desc", gotBody.Sort[0]["filedAt"].Order)
}

func TestGetLatestNoFilings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"filings":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	ref, err := c.GetLatest(context.Background(), "NOPE", model.Form10Q)
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestGetLatestTransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	_, err := c.GetLatest(context.Background(), "ACME", model.Form10K)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestGetLatestPermanentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	_, err := c.GetLatest(context.Background(), "ACME", model.Form10K)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestGetLatestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := newTestClient(t, srv.URL, srv.URL)
	_, err := c.GetLatest(context.Background(), "ACME", model.Form10K)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("token"))
		assert.Equal(t, "pdf", r.URL.Query().Get("type"))
		assert.Equal(t, "https://www.sec.gov/x.htm", r.URL.Query().Get("url"))

		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 rendered"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	body, contentType, err := c.Render(context.Background(), model.FilingRef{
		Ticker:    "ACME",
		FormType:  model.Form10K,
		SourceURL: "https://www.sec.gov/x.htm",
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 rendered"), body)
	assert.Equal(t, "application/pdf", contentType)
}

func TestRenderErrorRedactsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	_, _, err := c.Render(context.Background(), model.FilingRef{
		Ticker:    "ACME",
		FormType:  model.Form10K,
		SourceURL: "https://www.sec.gov/x.htm",
	})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "test-key")
	assert.Contains(t, err.Error(), "REDACTED")
}

func TestRenderMissingSourceURL(t *testing.T) {
	c := newTestClient(t, "http://unused", "http://unused")
	_, _, err := c.Render(context.Background(), model.FilingRef{Ticker: "ACME", FormType: model.Form10Q})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source url")
}

func TestFormDelayCancel(t *testing.T) {
	cfg := config.FilingsConfig{Key: "k", FormDelayMs: 60_000}
	c := NewClient(cfg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.FormDelay(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
