// Package blobstore stores audio blobs by key and hands out time-limited URLs
// for reading them.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Store is the blob store collaborator.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Resolve(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ValidKey rejects keys that could escape the store root.
func ValidKey(key string) error {
	if key == "" {
		return errors.New("empty blob key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	if clean := path.Clean(key); clean != key || clean == "." || strings.HasPrefix(clean, "..") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || strings.HasPrefix(part, ".") {
			return fmt.Errorf("invalid blob key %q", key)
		}
	}
	return nil
}
