// internal/services/storage.go
package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStorage — хранилище блобов. Save возвращает storage path,
// по которому файл можно удалить при компенсации.
type FileStorage interface {
	Save(ctx context.Context, folder, originalName string, r io.Reader) (string, error)
	Delete(ctx context.Context, storagePath string) error
}

// DiskStorage кладет файлы на локальный диск под UUID-именами,
// отдаются они через download endpoint с проверкой статуса
type DiskStorage struct {
	Root string
}

func NewDiskStorage(root string) *DiskStorage {
	return &DiskStorage{Root: root}
}

func (s *DiskStorage) Save(ctx context.Context, folder, originalName string, r io.Reader) (string, error) {
	dir := filepath.Join(s.Root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(originalName)
	storagePath := filepath.Join(folder, name)

	f, err := os.Create(filepath.Join(s.Root, storagePath))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		// Недописанный файл не оставляем
		os.Remove(filepath.Join(s.Root, storagePath))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return storagePath, nil
}

func (s *DiskStorage) Delete(ctx context.Context, storagePath string) error {
	return os.Remove(filepath.Join(s.Root, storagePath))
}
