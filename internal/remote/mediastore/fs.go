package mediastore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// validKey matches gallery keys and stored file names. Anything else is
// rejected before it can reach the filesystem.
var validKey = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// FSStore implements MediaStore on the local filesystem, one directory per
// gallery key.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed media store rooted at the given
// directory.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Put stores a file under "<galleryKey>/<unix-ms>-<token><ext>". The
// timestamp plus random token makes collisions with concurrent uploads
// practically impossible, so an upload never overwrites existing media.
func (s *FSStore) Put(_ context.Context, galleryKey, filename string, r io.Reader) (string, error) {
	if !validKey.MatchString(galleryKey) {
		return "", fmt.Errorf("invalid gallery key: %q", galleryKey)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !validExt(ext) {
		return "", fmt.Errorf("unsupported media extension: %q", ext)
	}

	dir := filepath.Join(s.root, galleryKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create gallery dir: %w", err)
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)

	// Write to temp file, then atomic rename.
	tmpFile, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write media: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename media: %w", err)
	}

	return path.Join(galleryKey, name), nil
}

// Open opens a stored file. The path must be a "<galleryKey>/<name>" pair
// produced by Put.
func (s *FSStore) Open(_ context.Context, p string) (io.ReadCloser, error) {
	key, name, err := splitPath(p)
	if err != nil {
		return nil, ErrMediaNotFound
	}

	f, err := os.Open(filepath.Join(s.root, key, name))
	if os.IsNotExist(err) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open media %s: %w", p, err)
	}
	return f, nil
}

// Delete removes a stored file.
func (s *FSStore) Delete(_ context.Context, p string) error {
	key, name, err := splitPath(p)
	if err != nil {
		return nil
	}
	err = os.Remove(filepath.Join(s.root, key, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete media %s: %w", p, err)
	}
	return nil
}

// List returns the stored paths for one gallery key, oldest first.
func (s *FSStore) List(_ context.Context, galleryKey string) ([]string, error) {
	if !validKey.MatchString(galleryKey) {
		return nil, fmt.Errorf("invalid gallery key: %q", galleryKey)
	}

	entries, err := os.ReadDir(filepath.Join(s.root, galleryKey))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list media for %s: %w", galleryKey, err)
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		out = append(out, path.Join(galleryKey, e.Name()))
	}
	return out, nil
}

func splitPath(p string) (key, name string, err error) {
	parts := strings.Split(p, "/")
	if len(parts) != 2 || !validKey.MatchString(parts[0]) || !validKey.MatchString(parts[1]) {
		return "", "", fmt.Errorf("invalid media path: %q", p)
	}
	return parts[0], parts[1], nil
}

func validExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".mp4", ".webm":
		return true
	}
	return false
}

// ContentType maps a stored name's extension to a MIME type for serving.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	}
	return "application/octet-stream"
}
