package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTickers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.txt")
	require.NoError(t, os.WriteFile(path, []byte(`# watchlist
acme
MSFT

msft
AAPL
`), 0o644))

	tickers, err := readTickers(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME", "MSFT", "AAPL"}, tickers)
}

func TestReadTickersMissingFile(t *testing.T) {
	_, err := readTickers(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
