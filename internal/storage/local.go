// Package storage keeps candidate uploads on the local filesystem under a
// base directory. Stored names are random so user input never reaches a path.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"estekhdam/pkg/platform/sentinel"
)

// StoredFile describes a saved upload. Path is relative to the base directory
// and uses forward slashes.
type StoredFile struct {
	Path     string
	Size     int64
	Checksum string
}

type LocalStorage struct {
	basePath string
}

func NewLocal(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "./uploads"
	}
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save writes r under dir with a random name keeping ext. At most limit bytes
// are accepted; larger bodies are removed and rejected.
func (s *LocalStorage) Save(_ context.Context, dir, ext string, r io.Reader, limit int64) (StoredFile, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if strings.ContainsAny(ext, `/\.`) || strings.ContainsAny(dir, `\.`) {
		return StoredFile{}, fmt.Errorf("invalid storage name")
	}
	rel := path.Join(dir, uuid.NewString())
	if ext != "" {
		rel += "." + ext
	}
	full := filepath.Join(s.basePath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return StoredFile{}, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return StoredFile{}, fmt.Errorf("failed to create file: %w", err)
	}
	hash := sha256.New()
	n, copyErr := io.Copy(io.MultiWriter(f, hash), io.LimitReader(r, limit+1))
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil || n > limit {
		_ = os.Remove(full)
		switch {
		case copyErr != nil:
			return StoredFile{}, fmt.Errorf("failed to write file: %w", copyErr)
		case closeErr != nil:
			return StoredFile{}, fmt.Errorf("failed to close file: %w", closeErr)
		default:
			return StoredFile{}, ErrTooLarge
		}
	}
	return StoredFile{Path: rel, Size: n, Checksum: hex.EncodeToString(hash.Sum(nil))}, nil
}

// Open returns the stored file for reading.
func (s *LocalStorage) Open(_ context.Context, rel string) (*os.File, error) {
	full, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStorage) Delete(_ context.Context, rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" || strings.Contains(rel, `\`) {
		return "", sentinel.ErrNotFound
	}
	return filepath.Join(s.basePath, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
