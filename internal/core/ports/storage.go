package ports

import (
	"context"
	"io"
	"net/url"
	"time"
)

// ObjectStorage abstracts the object store holding uploaded payloads and job
// results. The ledger/job core never touches file bytes; handlers and the
// worker move opaque blobs through this interface.
type ObjectStorage interface {
	// Put stores an object under key and returns nil on success.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// PresignedGetURL returns a time-limited download URL for key.
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (*url.URL, error)

	// Remove deletes an object. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
