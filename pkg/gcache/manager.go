package gcache

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/moturus/gantry/pkg/glog"
	"github.com/moturus/gantry/pkg/kv"
	"github.com/moturus/gantry/pkg/pipeline"
)

// Manager implements Store over a blob backend plus a key-value index. The
// index records which keys have been saved and when, so restores can skip the
// blob fetch on a guaranteed miss and InvalidateIndex can retire every entry
// at once without touching the blobs.
type Manager struct {
	blobs  BlobStore
	index  kv.Store
	logger *glog.Logger
	ttl    time.Duration
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithIndexTTL sets how long index entries live. Zero means no expiry.
func WithIndexTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithManagerLogger sets the logger. Defaults to a quiet logger.
func WithManagerLogger(logger *glog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the given blob backend and index.
func NewManager(blobs BlobStore, index kv.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		blobs:  blobs,
		index:  index,
		logger: glog.NewQuiet(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore returns the blob for key, or ErrNotFound when the index or the
// blob store has no entry.
func (m *Manager) Restore(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := m.index.Get(ctx, key); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m.blobs.Get(ctx, key)
}

// Save stores the blob and records the key in the index.
func (m *Manager) Save(ctx context.Context, key string, r io.Reader) error {
	if err := m.blobs.Put(ctx, key, r); err != nil {
		return err
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	return m.index.Set(ctx, key, []byte(stamp), m.ttl)
}

// InvalidateIndex drops every cache index entry.
func (m *Manager) InvalidateIndex(ctx context.Context) error {
	removed, err := m.index.DeletePrefix(ctx, keyPrefix)
	if err != nil {
		return err
	}
	m.logger.Info("cache index invalidated", "entries", removed)
	return nil
}

// Close releases both backends.
func (m *Manager) Close() error {
	blobErr := m.blobs.Close()
	idxErr := m.index.Close()
	if blobErr != nil {
		return blobErr
	}
	return idxErr
}

// RestoreAll restores every cache hint before a run. Misses and backend
// failures are logged and swallowed: a cold or unreachable cache slows the
// pipeline down, it never breaks it.
func (m *Manager) RestoreAll(ctx context.Context, specs []pipeline.CacheSpec) {
	for _, spec := range specs {
		key := Key(spec)
		blob, err := m.Restore(ctx, key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				m.logger.Debug("cache miss", "key", key)
			} else {
				m.logger.Warn("cache restore failed", "key", key, "err", err)
			}
			continue
		}
		err = unpackFolder(blob, spec.Folder)
		blob.Close()
		if err != nil {
			m.logger.Warn("cache unpack failed", "key", key, "err", err)
			continue
		}
		m.logger.Info("cache restored", "key", key, "folder", spec.Folder)
	}
}

// SaveAll saves every cache hint after a completed run. Packing streams
// through a pipe so large folders never materialize in memory.
func (m *Manager) SaveAll(ctx context.Context, specs []pipeline.CacheSpec) {
	for _, spec := range specs {
		key := Key(spec)

		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(packFolder(spec.Folder, pw))
		}()

		if err := m.Save(ctx, key, pr); err != nil {
			pr.CloseWithError(err)
			m.logger.Warn("cache save failed", "key", key, "err", err)
			continue
		}
		m.logger.Info("cache saved", "key", key, "folder", spec.Folder)
	}
}

var _ Store = (*Manager)(nil)
