package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored media object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service stores uploaded article media in remote object storage and
// hands back stable URLs for embedding in articles.
type Service interface {
	// Put stores body under a generated key derived from name and returns
	// the object's public URL.
	Put(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// Presign returns a temporary GET URL, for buckets that are not
	// publicly readable.
	Presign(ctx context.Context, key string, expires time.Duration) (string, error)
}
