package object

import (
	"context"
	"io"
)

// ObjectStore retains the original uploaded resume files. Keys are scoped
// by resume ID so deleting a resume can cascade to its stored object.
type ObjectStore interface {
	Save(ctx context.Context, resumeID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
}
