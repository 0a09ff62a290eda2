package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/campusvoice/complaint-service/internal/config"
)

// ErrFileTooLarge is returned when an upload exceeds the per-file limit.
var ErrFileTooLarge = errors.New("storage: file exceeds size limit")

// StoredFile describes a saved upload.
type StoredFile struct {
	Key      string
	URL      string
	Size     int64
	MimeType string
}

// FileStore persists complaint attachments and resolves their public URLs.
type FileStore interface {
	Save(ctx context.Context, folder, filename string, r io.Reader) (StoredFile, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// LocalStore writes files under a media directory served as static content.
type LocalStore struct {
	root    string
	baseURL string
	maxSize int64
}

// NewLocalStore builds a store rooted at cfg.MediaDir.
func NewLocalStore(cfg config.StorageConfig) *LocalStore {
	return &LocalStore{
		root:    cfg.MediaDir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxSize: cfg.MaxFileSize(),
	}
}

// Root returns the media directory.
func (s *LocalStore) Root() string {
	return s.root
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		return "file"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return base
}

// Save streams r to <root>/<folder>/<uuid>-<name>. A partially written
// file is removed when the size limit is exceeded.
func (s *LocalStore) Save(ctx context.Context, folder, filename string, r io.Reader) (StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return StoredFile{}, err
	}
	key := path.Join(sanitizeName(folder), uuid.NewString()+"-"+sanitizeName(filename))
	full := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return StoredFile{}, fmt.Errorf("storage: create dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("storage: create file: %w", err)
	}

	br := bufio.NewReader(r)
	head, _ := br.Peek(512)
	mimeType := http.DetectContentType(head)

	limit := s.maxSize
	var src io.Reader = br
	if limit > 0 {
		src = io.LimitReader(br, limit+1)
	}
	written, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr == nil && limit > 0 && written > limit {
		copyErr = ErrFileTooLarge
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(full)
		if errors.Is(copyErr, ErrFileTooLarge) {
			return StoredFile{}, copyErr
		}
		return StoredFile{}, fmt.Errorf("storage: write file: %w", copyErr)
	}

	return StoredFile{Key: key, URL: s.URL(key), Size: written, MimeType: mimeType}, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	clean := path.Clean("/" + key)
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns the public URL for key.
func (s *LocalStore) URL(key string) string {
	return s.baseURL + "/" + key
}
