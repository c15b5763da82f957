package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidKey is returned for keys escaping the storage root.
var ErrInvalidKey = errors.New("invalid object key")

// LocalStorage is a filesystem backed object store handing out signed URLs.
type LocalStorage struct {
	baseDir       string
	publicBaseURL string
	signer        *SignedURLSigner
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, publicBaseURL string, signer *SignedURLSigner) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, publicBaseURL: strings.TrimRight(publicBaseURL, "/"), signer: signer}, nil
}

// Put stores data under key and returns a signed download URL.
func (s *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("prepare object directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	return s.URL(key, contentType)
}

// URL returns a signed URL for an existing key.
func (s *LocalStorage) URL(key, contentType string) (string, error) {
	if s.signer == nil {
		return s.publicBaseURL + "/" + key, nil
	}
	token, _, err := s.signer.Generate(contentType, key)
	if err != nil {
		return "", fmt.Errorf("sign object url: %w", err)
	}
	return s.publicBaseURL + "/" + token, nil
}

// Delete removes a stored object if present.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// OpenSigned validates a download token and opens the referenced object.
func (s *LocalStorage) OpenSigned(token string) (*os.File, string, error) {
	if s.signer == nil {
		return nil, "", fmt.Errorf("signed urls disabled")
	}
	contentType, key, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", err
	}
	full, err := s.resolve(key)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(full)
	if err != nil {
		return nil, "", fmt.Errorf("open object %s: %w", key, err)
	}
	return file, contentType, nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + strings.TrimSpace(key))
	if clean == "/" || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
