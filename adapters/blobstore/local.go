package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"datalens/ports"

	"github.com/google/uuid"
)

const defaultChunkSize = 1024 * 1024

// LocalStorage implements FileStorage on the local filesystem. Files are
// written under a base directory with unique names so repeated uploads of the
// same filename never collide.
type LocalStorage struct {
	basePath  string
	chunkSize int
}

// NewLocalStorage creates a filesystem-backed blob store rooted at basePath
func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{
		basePath:  basePath,
		chunkSize: defaultChunkSize,
	}
}

var _ ports.FileStorage = (*LocalStorage)(nil)

// Store saves the reader's contents under a unique name and returns the path
func (s *LocalStorage) Store(ctx context.Context, r io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	filePath := filepath.Join(s.basePath, s.uniqueName(filename))

	destFile, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	// Copy file contents with chunking for large files
	buf := make([]byte, s.chunkSize)
	if _, err := io.CopyBuffer(destFile, r, buf); err != nil {
		os.Remove(filePath) // Clean up on failure
		return "", fmt.Errorf("failed to copy file contents: %w", err)
	}

	return filePath, nil
}

// GetReader returns a reader for the stored file
func (s *LocalStorage) GetReader(ctx context.Context, filePath string) (io.ReadCloser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes a file from storage
func (s *LocalStorage) Delete(ctx context.Context, filePath string) error {
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetFileSize returns the size of a stored file
func (s *LocalStorage) GetFileSize(filePath string) (int64, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}
	return info.Size(), nil
}

// Exists checks if a file exists in storage
func (s *LocalStorage) Exists(ctx context.Context, filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}

func (s *LocalStorage) uniqueName(filename string) string {
	ext := filepath.Ext(filename)
	baseName := filename[:len(filename)-len(ext)]
	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("%s_%s_%s%s", baseName, timestamp, uuid.New().String()[:8], ext)
}
