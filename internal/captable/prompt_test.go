package captable

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUserContent(t *testing.T) {
	content := buildUserContent("annual text", "quarterly text")

	kIdx := strings.Index(content, "10-K FILING:")
	qIdx := strings.Index(content, "10-Q FILING:")
	require.NotEqual(t, -1, kIdx)
	require.NotEqual(t, -1, qIdx)
	assert.Less(t, kIdx, qIdx, "annual report must come first")
	assert.Contains(t, content, "annual text")
	assert.Contains(t, content, "quarterly text")
}

func TestBuildUserContentNoQuarterly(t *testing.T) {
	content := buildUserContent("annual text", "")
	assert.Contains(t, content, "10-K FILING:")
	assert.NotContains(t, content, "10-Q FILING:")
}

func TestExtractJSONPayloadFenced(t *testing.T) {
	response := "Here is the extraction:\n```json\n{\"ticker\": \"ACME\"}\n```\nLet me know if you need anything else."

	payload, err := extractJSONPayload(response)
	require.NoError(t, err)
	assert.Equal(t, `{"ticker": "ACME"}`, payload)
}

func TestExtractJSONPayloadFirstFenceWins(t *testing.T) {
	response := "```json\n{\"a\": 1}\n```\ntext\n```json\n{\"b\": 2}\n```"

	payload, err := extractJSONPayload(response)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, payload)
}

func TestExtractJSONPayloadBraces(t *testing.T) {
	response := `The result is {"ticker": "ACME", "debt": [{"type": "Notes"}]} as requested.`

	payload, err := extractJSONPayload(response)
	require.NoError(t, err)
	assert.Equal(t, `{"ticker": "ACME", "debt": [{"type": "Notes"}]}`, payload)
}

func TestExtractJSONPayloadNone(t *testing.T) {
	_, err := extractJSONPayload("I could not find a capitalization table in the provided text.")
	assert.Error(t, err)
}

func TestExtractJSONPayloadEmptyFenceFallsBack(t *testing.T) {
	payload, err := extractJSONPayload("```json\n```\n{\"ticker\": \"ACME\"}")
	require.NoError(t, err)
	assert.Equal(t, `{"ticker": "ACME"}`, payload)
}
