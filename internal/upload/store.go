// Package upload stores event images on local disk and serves them back.
package upload

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ovaphlow/pitchfork/service-event-api/pkg/utilities"
)

const (
	DefaultDir      = "uploads"
	DefaultMaxBytes = 5 << 20
	URLPrefix       = "/uploads/"
)

var (
	ErrTooLarge        = errors.New("upload too large")
	ErrUnsupportedType = errors.New("unsupported upload type")
)

// extensions maps the sniffed content type to the stored file extension.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type Config struct {
	Dir      string
	MaxBytes int64
}

// ConfigFromEnv reads UPLOAD_DIR and UPLOAD_MAX_BYTES.
func ConfigFromEnv() Config {
	cfg := Config{Dir: os.Getenv("UPLOAD_DIR"), MaxBytes: DefaultMaxBytes}
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if v, err := strconv.ParseInt(os.Getenv("UPLOAD_MAX_BYTES"), 10, 64); err == nil && v > 0 {
		cfg.MaxBytes = v
	}
	return cfg
}

// DiskStore writes uploads under a single directory with generated names.
type DiskStore struct {
	dir      string
	maxBytes int64
}

func NewDiskStore(cfg Config) (*DiskStore, error) {
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: cfg.Dir, maxBytes: cfg.MaxBytes}, nil
}

// MaxBytes is the largest accepted upload.
func (s *DiskStore) MaxBytes() int64 { return s.maxBytes }

// Save sniffs the content type, writes the file and returns its public path.
func (s *DiskStore) Save(ctx context.Context, r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	ext, ok := extensions[http.DetectContentType(head)]
	if !ok {
		return "", ErrUnsupportedType
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(br, s.maxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if n > s.maxBytes {
		return "", ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := utilities.NewKSUID() + ext
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return URLPrefix + name, nil
}

// Owns reports whether publicPath points at a file this store wrote.
func (s *DiskStore) Owns(publicPath string) bool {
	name := strings.TrimPrefix(publicPath, URLPrefix)
	return strings.HasPrefix(publicPath, URLPrefix) && name != "" && name == filepath.Base(name)
}

// Remove deletes a stored upload. Paths not owned by the store are ignored.
func (s *DiskStore) Remove(publicPath string) error {
	if !s.Owns(publicPath) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, strings.TrimPrefix(publicPath, URLPrefix)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Handler serves stored files under URLPrefix without directory listings.
func (s *DiskStore) Handler() http.Handler {
	fs := http.StripPrefix(URLPrefix, http.FileServer(http.Dir(s.dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, URLPrefix)
		if name == "" || strings.HasSuffix(name, "/") || strings.HasPrefix(filepath.Base(name), ".") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
