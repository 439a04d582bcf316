// Package storage keeps uploaded files (avatars, site logos, asset images and
// receipts) and hands back the URL they are served from.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Storage interface {
	Save(ctx context.Context, folder, name string, b []byte) (string, error)
}

// Local writes files below dir and serves them under mediaURL.
type Local struct {
	dir      string
	mediaURL string
	logger   *slog.Logger
}

func NewLocal(dir, mediaURL string, logger *slog.Logger) *Local {
	if !strings.HasSuffix(mediaURL, "/") {
		mediaURL += "/"
	}
	return &Local{dir: dir, mediaURL: mediaURL, logger: logger}
}

func (l *Local) Dir() string {
	return l.dir
}

func (l *Local) Save(ctx context.Context, folder, name string, b []byte) (string, error) {
	name = uniqueName(name)
	target := filepath.Join(l.dir, filepath.FromSlash(folder))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("create media folder: %w", err)
	}
	if err := os.WriteFile(filepath.Join(target, name), b, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	l.logger.DebugContext(ctx, "Save: stored upload", "folder", folder, "name", name, "bytes", len(b))
	return l.mediaURL + path.Join(folder, name), nil
}

// Memory keeps uploads in a map. Tests use it in place of a real backend.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{files: map[string][]byte{}}
}

func (m *Memory) Save(_ context.Context, folder, name string, b []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "/media/" + path.Join(folder, uniqueName(name))
	m.files[url] = b
	return url, nil
}

func (m *Memory) Get(url string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[url]
	return b, ok
}

// uniqueName keeps the extension of name and replaces the rest, so uploads
// never overwrite each other or carry path elements.
func uniqueName(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	return uuid.NewString() + ext
}
