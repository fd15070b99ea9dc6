// Package gateway is the persistence boundary for filings and result
// artifacts. Keys are namespaced {ticker}/{prefix}_{ticker}_{timestamp}.{ext};
// writes are append-only and reads follow latest-timestamp-wins.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound reports a missing key. Absence is not a failure mode;
// callers branch on it with errors.Is.
var ErrNotFound = errors.New("gateway: key not found")

// Entry is one listed key with its last-modified time.
type Entry struct {
	Key          string
	LastModified time.Time
}

// Gateway stores artifact bytes under namespaced keys. Delete exists only
// to serve freshness invalidation; result artifacts are never deleted.
type Gateway interface {
	Write(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]Entry, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// timestampLayout orders keys lexicographically by write time.
const timestampLayout = "20060102_150405"

// ArtifactKey builds the canonical key for a persisted artifact.
func ArtifactKey(ticker, prefix, ext string, ts time.Time) string {
	ticker = strings.ToUpper(ticker)
	return fmt.Sprintf("%s/%s_%s_%s.%s", ticker, prefix, ticker, ts.UTC().Format(timestampLayout), ext)
}

// TickerPrefix returns the listing prefix for one artifact kind of a ticker.
func TickerPrefix(ticker, prefix string) string {
	ticker = strings.ToUpper(ticker)
	return fmt.Sprintf("%s/%s_%s_", ticker, prefix, ticker)
}

// Latest returns the lexicographically greatest key among entries, which
// for canonical keys is the most recently written artifact. Empty when
// entries is empty.
func Latest(entries []Entry) string {
	var latest string
	for _, e := range entries {
		if e.Key > latest {
			latest = e.Key
		}
	}
	return latest
}
