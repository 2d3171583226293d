package local

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/storage"
)

// LocalStore keeps photos in a flat directory and serves them over HTTP
// below publicURL.
type LocalStore struct {
	basePath  string
	publicURL *url.URL
}

var _ storage.PhotoStore = (*LocalStore)(nil)

func New(basePath, publicURL string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	u, err := url.Parse(publicURL)
	if err != nil {
		return nil, fmt.Errorf("parse public url: %w", err)
	}
	return &LocalStore{basePath: basePath, publicURL: u}, nil
}

func (s *LocalStore) Save(_ context.Context, photo *storage.Photo, deviceID string) (string, error) {
	if err := photo.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	if !storage.SafeID(deviceID) {
		return "", fmt.Errorf("%w: invalid device id %q", domain.ErrUploadFailed, deviceID)
	}

	name := storage.ObjectName(deviceID, photo.Extension())
	path := filepath.Join(s.basePath, name)

	// Replacing the photo under another extension must not leave the old one.
	s.removeAll(deviceID)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create file: %v", domain.ErrUploadFailed, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, photo.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: write file: %v", domain.ErrUploadFailed, err)
	}

	return s.publicURL.JoinPath(name).String(), nil
}

func (s *LocalStore) Delete(_ context.Context, deviceID string) bool {
	if !storage.SafeID(deviceID) {
		return false
	}
	return s.removeAll(deviceID) > 0
}

func (s *LocalStore) Lookup(_ context.Context, deviceID, ext string) (string, bool) {
	if !storage.SafeID(deviceID) || !storage.SafeID(storage.ObjectName("x", ext)) {
		return "", false
	}
	name := storage.ObjectName(deviceID, ext)
	if _, err := os.Stat(filepath.Join(s.basePath, name)); err != nil {
		return "", false
	}
	return s.publicURL.JoinPath(name).String(), true
}

// Handler serves stored photos. Mount it under the public URL path.
// Directory listings are not served.
func (s *LocalStore) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.basePath))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *LocalStore) removeAll(deviceID string) int {
	matches, err := filepath.Glob(filepath.Join(s.basePath, globEscape(deviceID)+".*"))
	if err != nil {
		return 0
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err == nil {
			removed++
		}
	}
	return removed
}

func globEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
