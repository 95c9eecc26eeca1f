// Package receipt stores uploaded receipt files and hands back the URL the
// expense record keeps.
package receipt

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestionviaticos/viaticos/internal"
)

// Storage abstracts where receipt files live. The disk store serves small
// deployments; an object-store implementation can replace it without touching
// the expense flow.
type Storage interface {
	Save(ctx context.Context, filename string, contentType string, body io.Reader) (url string, err error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// DiskStorage keeps receipts under a base directory and serves them from a
// URL prefix mounted on the router.
type DiskStorage struct {
	baseDir   string
	urlPrefix string
}

func NewDiskStorage(baseDir, urlPrefix string) (*DiskStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create receipt dir: %w", err)
	}
	return &DiskStorage{
		baseDir:   baseDir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}, nil
}

func (s *DiskStorage) Save(ctx context.Context, filename string, contentType string, body io.Reader) (string, error) {
	if !allowedContentTypes[contentType] {
		return "", internal.NewValidationError("unsupported receipt type", internal.ErrCodeValidationFailed)
	}

	ext := filepath.Ext(filename)
	if ext == "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}

	// Date-prefixed name keeps the directory browsable and collisions
	// impossible.
	name := fmt.Sprintf("%s-%s%s", time.Now().Format("20060102"), uuid.NewString(), ext)
	path := filepath.Join(s.baseDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write receipt file: %w", err)
	}

	return s.urlPrefix + "/" + name, nil
}

func (s *DiskStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	// Reject path traversal; names are always flat.
	if strings.Contains(name, "/") || strings.Contains(name, "..") {
		return nil, internal.NewValidationError("invalid receipt name", internal.ErrCodeValidationFailed)
	}
	f, err := os.Open(filepath.Join(s.baseDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, internal.NewNotFoundError("receipt not found", internal.ErrCodeReceiptNotFound)
		}
		return nil, err
	}
	return f, nil
}
