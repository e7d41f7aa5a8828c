package ports

import (
	"context"
	"io"
)

type (
	BlobObject struct {
		Key         string
		Body        io.Reader
		ContentType string
		Size        int64
		Metadata    map[string]string
	}

	BlobStore interface {
		// Put stores a publicly readable object and returns its public URL.
		Put(ctx context.Context, obj BlobObject) (string, error)
		Delete(ctx context.Context, key string) error
		GetPublicURL(key string) string
		GetBucket() string
	}
)
