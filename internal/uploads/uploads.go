// Package uploads persists image files attached to catalog create
// requests. The catalog itself only ever stores the filename reference;
// the bytes stay on disk and are served back under /uploads/.
package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store saves uploaded files into a single flat directory.
type Store struct {
	dir string
}

// New creates the upload directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save copies the uploaded file to disk under a generated name and
// returns the stored filename. The generated name keeps the original
// extension so the file server can infer a content type.
func (s *Store) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	name := uuid.NewString() + ext

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	return name, nil
}

// Remove deletes a stored file. Missing files are not an error; cleanup
// is best effort.
func (s *Store) Remove(ref string) error {
	if ref == "" {
		return nil
	}
	// The reference must stay inside the upload dir.
	if ref != filepath.Base(ref) {
		return fmt.Errorf("invalid upload reference %q", ref)
	}
	err := os.Remove(filepath.Join(s.dir, ref))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove upload file: %w", err)
	}
	return nil
}

// Handler serves the stored files.
func (s *Store) Handler() http.Handler {
	return http.FileServer(http.Dir(s.dir))
}
