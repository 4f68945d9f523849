package storage

import (
	"context"
	"io"
	"path"
	"time"
)

// Package storage mirrors saved uploads to an S3-compatible object store.
// The local taxonomy store stays the source of truth; the mirror is write-only.

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; -1 lets the backend chunk.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

// Storage is the object store used by the upload mirror.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Ready reports whether the bucket is reachable.
	Ready(ctx context.Context) error
}

// ObjectKey maps a taxonomy location to an object key: category[/subcategory]/name.
func ObjectKey(category, subcategory, name string) string {
	return path.Join(category, subcategory, name)
}
