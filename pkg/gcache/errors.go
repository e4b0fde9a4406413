package gcache

import "errors"

// Common errors
var (
	ErrNotFound      = errors.New("cache entry not found")
	ErrBucketMissing = errors.New("bucket does not exist")
)
