// ABOUTME: Attachment storage for uploaded photos in a flat directory
// ABOUTME: Names files with a timestamp prefix and serves them read-only

package uploads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Files stores uploaded binaries in a single directory. Stored names are
// used verbatim as the /uploads/{filename} path segment, so every
// client-supplied name is reduced to a safe base name first.
type Files struct {
	dir    string
	logger *slog.Logger
}

// New creates a Files store rooted at dir, creating the directory if needed
func New(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}

	return &Files{
		dir:    dir,
		logger: slog.Default().With("component", "uploads"),
	}, nil
}

// Dir returns the directory files are stored in
func (f *Files) Dir() string {
	return f.dir
}

// sanitize reduces a client-supplied filename to a safe base name.
// Path separators and traversal segments are stripped so the name can
// never escape the uploads directory. Returns "" for unusable names.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == ".." || name == "/" || name == "" {
		return ""
	}
	return name
}

// Save writes an uploaded file under a timestamp-prefixed name derived
// from the original filename and returns the stored name. Collisions are
// avoided by the timestamp prefix, not a content hash.
func (f *Files) Save(originalName string, r io.Reader) (string, error) {
	base := sanitize(originalName)
	if base == "" {
		base = "upload"
	}

	stored := fmt.Sprintf("%d-%s", time.Now().Unix(), base)

	dst, err := os.Create(filepath.Join(f.dir, stored))
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("writing upload file: %w", err)
	}

	f.logger.Debug("saved upload", "filename", stored)
	return stored, nil
}

// Remove deletes a stored file. A missing file is not an error; callers
// treat any other failure as a logged warning, never a request failure.
func (f *Files) Remove(name string) error {
	base := sanitize(name)
	if base == "" {
		return nil
	}

	err := os.Remove(filepath.Join(f.dir, base))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ServeHTTP serves stored files read-only. It expects to be registered
// under a "GET /uploads/{filename}" pattern; http.ServeFile handles
// byte-range requests and 404s for missing files.
func (f *Files) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	base := sanitize(r.PathValue("filename"))
	if base == "" {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filepath.Join(f.dir, base))
}
