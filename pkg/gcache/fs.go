package gcache

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSBlobs implements BlobStore on a local directory. It is the default
// backend so pipelines cache across runs with no external services.
type FSBlobs struct {
	dir string
}

// NewFSBlobs creates a blob store rooted at dir, creating it if needed.
func NewFSBlobs(dir string) (*FSBlobs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FSBlobs{dir: dir}, nil
}

func (s *FSBlobs) path(key string) string {
	// Keys contain "/" separators; flatten so entries stay inside dir
	return filepath.Join(s.dir, strings.ReplaceAll(key, "/", "_"))
}

// Get retrieves a blob by key.
func (s *FSBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Put stores a blob under key. The write goes to a temp file first so a
// concurrent run never observes a half-written entry.
func (s *FSBlobs) Put(_ context.Context, key string, r io.Reader) error {
	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(key))
}

// Close is a no-op.
func (s *FSBlobs) Close() error {
	return nil
}

var _ BlobStore = (*FSBlobs)(nil)
