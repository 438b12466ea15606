package ports

import (
	"context"
	"io"
)

// FileStorage is the path-addressed blob store holding raw and processed
// dataset files.
type FileStorage interface {
	Store(ctx context.Context, r io.Reader, filename string) (string, error)
	GetReader(ctx context.Context, filePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, filePath string) error
	GetFileSize(filePath string) (int64, error)
	Exists(ctx context.Context, filePath string) (bool, error)
}
