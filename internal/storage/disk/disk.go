// Package disk stores blobs on the local filesystem for the Postgres deployment.
package disk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jomilojuokuwobi72-oss/WorldMap/internal/domain"
)

// Blobs keeps each object as a file under Root.
type Blobs struct {
	root    string
	baseURL string
}

// New creates root if needed.
func New(root, baseURL string) (*Blobs, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Blobs{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// resolve maps a blob path to a file, refusing paths that escape the root.
func (b *Blobs) resolve(p string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimLeft(p, "/"))
	if clean == "/" {
		return "", domain.Invalid("path", "empty blob path")
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}

// Put writes data atomically via a temp file and rename.
func (b *Blobs) Put(_ context.Context, path, _ string, data []byte) error {
	full, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close blob: %w", err)
	}
	return os.Rename(tmp.Name(), full)
}

// Get reads a blob. Content type is inferred from the extension.
func (b *Blobs) Get(_ context.Context, path string) ([]byte, string, error) {
	full, err := b.resolve(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", domain.ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	ct := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(full)) {
	case ".jpg", ".jpeg":
		ct = "image/jpeg"
	case ".png":
		ct = "image/png"
	}
	return data, ct, nil
}

// Remove deletes blobs; missing files are ignored.
func (b *Blobs) Remove(_ context.Context, paths []string) error {
	for _, p := range paths {
		full, err := b.resolve(p)
		if err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// PublicURL is the URL the API serves the blob from.
func (b *Blobs) PublicURL(path string) string {
	return b.baseURL + "/" + strings.TrimLeft(path, "/")
}
