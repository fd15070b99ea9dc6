package captable

import (
	"context"
	"strings"
	"sync"

	"github.com/sells-group/captable-cli/internal/model"
	"github.com/sells-group/captable-cli/pkg/anthropic"
)

// mockSource implements filings.Source for testing.
type mockSource struct {
	mu sync.Mutex

	refs      map[model.FormType]*model.FilingRef
	latestErr error

	documents map[model.FormType][]byte
	renderErr error

	getLatestCalls int
	renderCalls    int
}

func (m *mockSource) GetLatest(_ context.Context, ticker string, formType model.FormType) (*model.FilingRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLatestCalls++
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	ref, ok := m.refs[formType]
	if !ok {
		return nil, nil
	}
	out := *ref
	out.Ticker = strings.ToUpper(ticker)
	return &out, nil
}

func (m *mockSource) Render(_ context.Context, ref model.FilingRef) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderCalls++
	if m.renderErr != nil {
		return nil, "", m.renderErr
	}
	doc, ok := m.documents[ref.FormType]
	if !ok {
		doc = []byte("<html><body>placeholder filing text</body></html>")
	}
	return doc, "text/html", nil
}

func (m *mockSource) FormDelay(_ context.Context) error {
	return nil
}

// mockLLM implements anthropic.Client, returning canned responses in
// sequence and repeating the last one.
type mockLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	lastReq   anthropic.MessageRequest
}

func (m *mockLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	m.lastReq = req

	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	text := ""
	if len(m.responses) > 0 {
		if i >= len(m.responses) {
			i = len(m.responses) - 1
		}
		text = m.responses[i]
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 200},
	}, nil
}
