// Package gcache persists build caches (dependency folders, toolchain
// components) across pipeline runs. Blobs are gzip'd tarballs addressed by a
// fingerprint of the declared input files; an index in front of the blob
// store records which keys exist so misses stay cheap and stale entries can
// be invalidated wholesale.
package gcache

import (
	"context"
	"io"
)

// Store is the cache collaborator contract the runner consumes. It is used
// around a full pipeline run, never per step, and its failures must never
// fail the pipeline.
type Store interface {
	// Restore returns the blob stored under key, or ErrNotFound.
	Restore(ctx context.Context, key string) (io.ReadCloser, error)

	// Save stores the blob under key, replacing any previous entry
	// (last-writer-wins; no corruption guarantee is required here).
	Save(ctx context.Context, key string, r io.Reader) error

	// InvalidateIndex drops every index entry so subsequent restores miss
	// until fresh saves repopulate it.
	InvalidateIndex(ctx context.Context) error

	// Close releases backend connections.
	Close() error
}

// BlobStore is the raw blob backend behind a Store.
type BlobStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader) error
	Close() error
}
