package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
)

// FS stores blobs as files under Dir. Content types are kept in a sidecar
// file next to each blob.
type FS struct {
	Dir    string
	Signer *Signer
}

// NewFS returns an FS rooted at dir, creating it if needed.
func NewFS(dir string, signer *Signer) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &FS{Dir: dir, Signer: signer}, nil
}

func (f *FS) path(key string) string {
	return filepath.Join(f.Dir, filepath.FromSlash(key))
}

func typePath(p string) string {
	return filepath.Join(filepath.Dir(p), "."+filepath.Base(p)+".type")
}

// Put writes data atomically via a temp file + os.Rename.
func (f *FS) Put(_ context.Context, key string, data []byte, contentType string) (err error) {
	if err := ValidKey(key); err != nil {
		return err
	}
	p := f.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errmodel.E(errmodel.KindStorageUnavailable, "blob.put", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".blob-*.tmp")
	if err != nil {
		return errmodel.E(errmodel.KindStorageUnavailable, "blob.put", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errmodel.E(errmodel.KindStorageUnavailable, "blob.put", err)
	}
	if err = tmp.Close(); err != nil {
		return errmodel.E(errmodel.KindStorageUnavailable, "blob.put", err)
	}
	if err = os.WriteFile(typePath(p), []byte(contentType), 0o644); err != nil {
		return errmodel.E(errmodel.KindStorageUnavailable, "blob.put", err)
	}
	if err = os.Rename(tmpName, p); err != nil {
		return errmodel.E(errmodel.KindStorageUnavailable, "blob.put", err)
	}
	return nil
}

// Open returns the blob file with its content type and modification time.
// The caller closes the file.
func (f *FS) Open(key string) (*os.File, string, time.Time, error) {
	if err := ValidKey(key); err != nil {
		return nil, "", time.Time{}, errmodel.E(errmodel.KindNotFound, "blob.open", err)
	}
	p := f.path(key)
	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", time.Time{}, errmodel.E(errmodel.KindNotFound, "blob.open", fmt.Errorf("blob %s", key))
		}
		return nil, "", time.Time{}, errmodel.E(errmodel.KindStorageUnavailable, "blob.open", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, "", time.Time{}, errmodel.E(errmodel.KindStorageUnavailable, "blob.open", err)
	}
	ct := mime.TypeByExtension(filepath.Ext(p))
	if raw, err := os.ReadFile(typePath(p)); err == nil && len(raw) > 0 {
		ct = string(raw)
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return file, ct, info.ModTime(), nil
}

// Get reads the whole blob.
func (f *FS) Get(_ context.Context, key string) ([]byte, string, error) {
	file, ct, _, err := f.Open(key)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", errmodel.E(errmodel.KindStorageUnavailable, "blob.get", err)
	}
	return data, ct, nil
}

// Resolve returns a signed URL served by Handler.
func (f *FS) Resolve(_ context.Context, key string) (string, error) {
	if err := ValidKey(key); err != nil {
		return "", err
	}
	if f.Signer == nil {
		return "", errors.New("blob store has no signer configured")
	}
	u, _ := f.Signer.URL(key)
	return u, nil
}

// Delete removes a blob. Missing blobs are not an error.
func (f *FS) Delete(_ context.Context, key string) error {
	if err := ValidKey(key); err != nil {
		return err
	}
	p := f.path(key)
	for _, name := range []string{p, typePath(p)} {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return errmodel.E(errmodel.KindStorageUnavailable, "blob.delete", err)
		}
	}
	return nil
}
