package gateway

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// FSGateway stores artifacts as plain files under a root directory.
// The key's slash separators map directly to directories.
type FSGateway struct {
	root string
}

// NewFS creates a filesystem gateway rooted at dir, creating it if needed.
func NewFS(dir string) (*FSGateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "gateway: create root %s", dir)
	}
	return &FSGateway{root: dir}, nil
}

func (g *FSGateway) path(key string) string {
	return filepath.Join(g.root, filepath.FromSlash(key))
}

// Write stores data under key and returns the absolute file path as the
// artifact location. The content type is implied by the key's extension.
func (g *FSGateway) Write(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	p := g.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", eris.Wrapf(err, "gateway: create dir for %s", key)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "gateway: write %s", key)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p, nil
	}
	return abs, nil
}

func (g *FSGateway) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(g.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "gateway: read %s", key)
	}
	return data, nil
}

func (g *FSGateway) List(ctx context.Context, prefix string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(g.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(g.root, path)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		entries = append(entries, Entry{Key: key, LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "gateway: list %s", prefix)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (g *FSGateway) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(g.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, eris.Wrapf(err, "gateway: stat %s", key)
}

func (g *FSGateway) Delete(ctx context.Context, key string) error {
	err := os.Remove(g.path(key))
	if err != nil && !os.IsNotExist(err) {
		return eris.Wrapf(err, "gateway: delete %s", key)
	}
	return nil
}

func (g *FSGateway) Close() error { return nil }
