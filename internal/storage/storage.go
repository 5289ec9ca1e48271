package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/yukikurage/employee-admin-api/internal/constants"
)

var (
	ErrUnsupportedExtension = errors.New("unsupported image extension")
	ErrFileTooLarge         = errors.New("image exceeds maximum size")
	ErrEmptyFile            = errors.New("image is empty")
)

// Upload is an incoming file.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Validate checks the extension and size limits of a profile picture.
func (u Upload) Validate() error {
	ext := strings.ToLower(filepath.Ext(u.Filename))
	if !slices.Contains(constants.AllowedImageExtensions, ext) {
		return ErrUnsupportedExtension
	}
	if u.Size <= 0 {
		return ErrEmptyFile
	}
	if u.Size > constants.MaxImageSize {
		return ErrFileTooLarge
	}
	return nil
}

// ImageStore persists profile pictures.
type ImageStore interface {
	// SaveFile stores the upload and returns the generated file name
	SaveFile(ctx context.Context, upload Upload) (string, error)
	GetFileURL(name string) string
	DeleteFile(ctx context.Context, name string) error
}

// LocalStore keeps images in a directory and serves them under baseURL.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory the store writes to
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) SaveFile(ctx context.Context, upload Upload) (string, error) {
	if err := upload.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(upload.Filename))
	target := filepath.Join(s.dir, name)

	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	written, copyErr := io.Copy(f, io.LimitReader(upload.Content, constants.MaxImageSize+1))
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to write image file: %w", copyErr)
	case closeErr != nil:
		_ = os.Remove(target)
		return "", fmt.Errorf("failed to write image file: %w", closeErr)
	case written > constants.MaxImageSize:
		_ = os.Remove(target)
		return "", ErrFileTooLarge
	}
	return name, nil
}

func (s *LocalStore) GetFileURL(name string) string {
	if name == "" {
		return ""
	}
	return s.baseURL + "/" + path.Base(name)
}

// DeleteFile removes a stored image; a missing file is not an error.
func (s *LocalStore) DeleteFile(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}
