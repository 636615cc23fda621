// Package storage keeps uploaded product images and user avatars. Callers store the
// returned filename and build public URLs from it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

const (
	DirProducts = "product"
	DirAvatars  = "avatar"
)

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

type Store interface {
	Save(ctx context.Context, dir, originalName string, body io.Reader) (string, error)
	// Delete removes a saved file. Deleting a missing file is not an error.
	Delete(ctx context.Context, dir, name string) error
}

// generatedName keeps only the extension of the uploaded name.
func generatedName(originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", domain.Invalidf("unsupported image type %q", ext)
	}
	return uuid.NewString() + ext, nil
}

type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Save(ctx context.Context, dir, originalName string, body io.Reader) (string, error) {
	name, err := generatedName(originalName)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("os.MkdirAll: %w", err)
	}

	f, err := os.Create(filepath.Join(target, name))
	if err != nil {
		return "", fmt.Errorf("os.Create: %w", err)
	}

	if _, err := io.Copy(f, contextReader{ctx: ctx, r: body}); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("io.Copy: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("file.Close: %w", err)
	}

	return name, nil
}

func (s *LocalStore) Delete(_ context.Context, dir, name string) error {
	err := os.Remove(filepath.Join(s.root, dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("os.Remove: %w", err)
	}
	return nil
}

// FileSystem exposes saved files for http.FileServer. Directories are reported as missing
// so their contents cannot be listed.
func (s *LocalStore) FileSystem() http.FileSystem {
	return filesOnly{dir: http.Dir(s.root)}
}

type filesOnly struct {
	dir http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.dir.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}

	return file, nil
}

// contextReader stops a copy once the request is gone.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
