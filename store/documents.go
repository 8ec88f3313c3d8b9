package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DocumentStore keeps uploaded files (ID proofs, rent proofs, complaint photos)
// and hands back a URL for them.
type DocumentStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// LocalDocumentStore writes files under a directory served at baseURL.
type LocalDocumentStore struct {
	dir     string
	baseURL string
}

// NewLocalDocumentStore creates the directory if needed.
func NewLocalDocumentStore(dir, baseURL string) (*LocalDocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalDocumentStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory files are written to.
func (s *LocalDocumentStore) Dir() string {
	return s.dir
}

// Save stores r under a fresh name that keeps the original extension.
func (s *LocalDocumentStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	stored := uuid.NewString() + ext

	f, err := os.Create(filepath.Join(s.dir, stored))
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.baseURL + "/" + stored, nil
}

// Delete removes a document previously returned by Save. Unknown URLs are ignored.
func (s *LocalDocumentStore) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return nil
	}
	name := path.Base(url)
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
