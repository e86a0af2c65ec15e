package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads a blob to object storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}

// BlobInfo is metadata for one stored object.
type BlobInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BlobReader retrieves blobs from object storage. The read API uses it to
// serve archived session payloads.
type BlobReader interface {
	// Get returns the object body; the caller closes it. Missing objects
	// yield ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}

// SessionArchiver preserves the raw feed payload of a processed session for
// replay and debugging.
type SessionArchiver interface {
	ArchiveSession(ctx context.Context, session Session, records []PositionRecord) (key string, err error)
}
