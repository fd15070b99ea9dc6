// Package filings resolves and downloads the latest SEC filings for a
// ticker through the sec-api.io query and filing-reader endpoints.
package filings

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/captable-cli/internal/config"
	"github.com/sells-group/captable-cli/internal/model"
	"github.com/sells-group/captable-cli/internal/resilience"
)

// Source resolves filing metadata and renders filing documents.
type Source interface {
	// GetLatest returns the most recent non-amended filing for the
	// ticker/form pair, or (nil, nil) when the company has never filed
	// that form.
	GetLatest(ctx context.Context, ticker string, formType model.FormType) (*model.FilingRef, error)
	// Render downloads the filing's rendered document bytes and
	// reports the response content type.
	Render(ctx context.Context, ref model.FilingRef) ([]byte, string, error)
	// FormDelay pauses between requests for different form types of
	// the same ticker. Honors context cancellation.
	FormDelay(ctx context.Context) error
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimit overrides the request rate limiter.
func WithRateLimit(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// Client talks to the filing query and render APIs.
type Client struct {
	key           string
	queryBaseURL  string
	renderBaseURL string
	formDelay     time.Duration
	http          *http.Client
	limiter       *rate.Limiter
	logger        *zap.Logger
}

// NewClient creates a filing source from config. TLS verification is
// controlled per client through the transport, never globally.
func NewClient(cfg config.FilingsConfig, logger *zap.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	c := &Client{
		key:           cfg.Key,
		queryBaseURL:  strings.TrimRight(cfg.QueryBaseURL, "/"),
		renderBaseURL: strings.TrimRight(cfg.RenderBaseURL, "/"),
		formDelay:     cfg.FormDelay(),
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type queryRequest struct {
	Query string      `json:"query"`
	From  string      `json:"from"`
	Size  string      `json:"size"`
	Sort  []querySort `json:"sort"`
}

type querySort map[string]sortOrder

type sortOrder struct {
	Order string `json:"order"`
}

type queryResponse struct {
	Filings []queryFiling `json:"filings"`
}

type queryFiling struct {
	Ticker              string `json:"ticker"`
	FormType            string `json:"formType"`
	FiledAt             string `json:"filedAt"`
	LinkToFilingDetails string `json:"linkToFilingDetails"`
}

// GetLatest queries for the newest filing of the given form, excluding
// amended variants (10-K/A, 10-Q/A).
func (c *Client) GetLatest(ctx context.Context, ticker string, formType model.FormType) (*model.FilingRef, error) {
	ticker = strings.ToUpper(ticker)
	q := queryRequest{
		Query: fmt.Sprintf(`ticker:%s AND formType:%q AND NOT formType:%q`,
			ticker, string(formType), string(formType)+"/A"),
		From: "0",
		Size: "1",
		Sort: []querySort{{"filedAt": {Order: "desc"}}},
	}
	body, err := json.Marshal(q)
	if err != nil {
		return nil, eris.Wrap(err, "filings: marshal query")
	}

	respBody, err := c.do(ctx, http.MethodPost, c.queryBaseURL, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}

	var parsed queryResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, eris.Wrapf(err, "filings: decode query response for %s %s", ticker, formType)
	}
	if len(parsed.Filings) == 0 {
		c.logger.Info("no filing on record",
			zap.String("ticker", ticker),
			zap.String("form_type", string(formType)))
		return nil, nil
	}

	f := parsed.Filings[0]
	filedAt, err := time.Parse(time.RFC3339, f.FiledAt)
	if err != nil {
		return nil, eris.Wrapf(err, "filings: parse filedAt %q", f.FiledAt)
	}

	return &model.FilingRef{
		Ticker:    ticker,
		FormType:  formType,
		FiledAt:   filedAt.UTC(),
		SourceURL: f.LinkToFilingDetails,
	}, nil
}

// Render fetches the rendered document for a filing through the
// filing-reader endpoint.
func (c *Client) Render(ctx context.Context, ref model.FilingRef) ([]byte, string, error) {
	if ref.SourceURL == "" {
		return nil, "", eris.Errorf("filings: %s %s has no source url", ref.Ticker, ref.FormType)
	}

	params := url.Values{}
	params.Set("token", c.key)
	params.Set("type", "pdf")
	params.Set("url", ref.SourceURL)
	renderURL := c.renderBaseURL + "?" + params.Encode()

	var contentType string
	body, err := c.doFull(ctx, http.MethodGet, renderURL, nil, "", &contentType)
	if err != nil {
		return nil, "", err
	}

	c.logger.Debug("rendered filing",
		zap.String("ticker", ref.Ticker),
		zap.String("form_type", string(ref.FormType)),
		zap.Int("bytes", len(body)),
		zap.String("content_type", contentType))
	return body, contentType, nil
}

// FormDelay waits the configured gap between form-type requests.
func (c *Client) FormDelay(ctx context.Context) error {
	if c.formDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.formDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "filings: form delay")
	case <-timer.C:
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string) ([]byte, error) {
	return c.doFull(ctx, method, rawURL, body, contentType, nil)
}

// doFull issues one rate-limited request. Network failures and
// retryable statuses come back as TransientError so callers can retry;
// other non-2xx statuses are permanent.
func (c *Client) doFull(ctx context.Context, method, rawURL string, body io.Reader, contentType string, respContentType *string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "filings: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, eris.Wrap(err, "filings: build request")
	}
	req.Header.Set("Authorization", c.key)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "filings: request failed"), 0)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "filings: read response"), resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := eris.Errorf("filings: %s returned status %d", redactToken(rawURL), resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	if respContentType != nil {
		*respContentType = resp.Header.Get("Content-Type")
	}
	return respBody, nil
}

// redactToken strips the token query parameter before an error message
// carries the URL.
func redactToken(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
