package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"webshare-api/internal/domain/share"
)

var (
	ErrNoFile   = errors.New("file is required")
	ErrFileSize = errors.New("file too large or empty")
)

// Receiver stages uploaded parts in a temp directory under generated names.
type Receiver struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

func New(dir string, maxBytes int64, logger *zap.Logger) (*Receiver, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	return &Receiver{dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

func (r *Receiver) Receive(fh *multipart.FileHeader) (*share.UploadedFile, error) {
	if fh == nil {
		return nil, ErrNoFile
	}
	if fh.Size <= 0 || fh.Size > r.maxBytes {
		return nil, ErrFileSize
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload part: %w", err)
	}
	defer src.Close()

	name := GenerateFileName()
	path := filepath.Join(r.dir, name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(dst, io.LimitReader(src, r.maxBytes+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && (n == 0 || n > r.maxBytes) {
		err = ErrFileSize
	}
	if err != nil {
		_ = os.Remove(path)
		if errors.Is(err, ErrFileSize) {
			return nil, err
		}
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	return &share.UploadedFile{
		Path:         path,
		FileName:     name,
		OriginalName: fh.Filename,
		ContentType:  fh.Header.Get("Content-Type"),
		Size:         n,
	}, nil
}

// Discard removes the staged file. A file that is already gone is not an error.
func (r *Receiver) Discard(f *share.UploadedFile) error {
	if f == nil || f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("temp upload cleanup failed", zap.String("path", f.Path), zap.Error(err))
		return err
	}
	return nil
}

// GenerateFileName returns 32 lower-case hex characters.
func GenerateFileName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
