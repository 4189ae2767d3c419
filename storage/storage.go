package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadSize caps a single stored file.
const MaxUploadSize int64 = 5 << 20 // 5 Megabyte

var ErrTooLarge = errors.New("storage: file exceeds maximum upload size")

// Storage keeps uploaded bytes under generated keys.
type Storage interface {
	// Save stores r under a new key in folder and returns a reference for URL.
	Save(ctx context.Context, folder, filename string, r io.Reader) (string, error)
	// URL turns a reference returned by Save into a public path.
	URL(ref string) string
	// Delete removes a stored file. Missing files are not an error.
	Delete(ctx context.Context, ref string) error
}

// LocalStorage writes files below root and serves them under urlPrefix.
type LocalStorage struct {
	root      string
	urlPrefix string
}

func NewLocalStorage(root, urlPrefix string) *LocalStorage {
	return &LocalStorage{root: root, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) Save(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	ref := path.Join(folder, uuid.NewString()+ext)
	dest := filepath.Join(s.root, filepath.FromSlash(ref))

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", err
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", err
	}

	n, err := io.Copy(f, io.LimitReader(r, MaxUploadSize+1))
	closeErr := f.Close()
	if err == nil && n > MaxUploadSize {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return "", err
	}

	log.Printf("stored upload %s (%d bytes)", ref, n)
	return ref, nil
}

func (s *LocalStorage) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := path.Clean("/" + ref)
	if ref == "" || clean == "/" {
		return nil
	}

	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	log.Printf("removed upload %s", ref)
	return nil
}

func (s *LocalStorage) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s", s.urlPrefix, ref)
}
