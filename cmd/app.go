package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/blobstore"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/codec"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/config"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/datastore"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/transport"
)

// backend bundles the stores a command talks to.
type backend struct {
	data      *datastore.SQLStore
	fs        *blobstore.FS // nil when blobs live on a remote server
	signer    *blobstore.Signer
	transport *transport.Transport
}

func (b *backend) Close() error { return b.data.Close() }

// openBackend opens the configured data store and blob store.
func openBackend(ctx context.Context) (*backend, error) {
	if err := os.MkdirAll(config.DataDir(), 0o755); err != nil {
		return nil, err
	}
	data, err := datastore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := data.Migrate(ctx); err != nil {
		data.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	secret, err := blobSecret()
	if err != nil {
		data.Close()
		return nil, err
	}
	signer := &blobstore.Signer{Secret: secret, BaseURL: cfg.Blob.BaseURL, Expiry: cfg.Blob.URLExpiry}

	b := &backend{data: data, signer: signer}
	var blobs blobstore.Store
	if cfg.Blob.Endpoint != "" {
		signer.BaseURL = cfg.Blob.Endpoint
		blobs = blobstore.NewHTTPClient(cfg.Blob.Endpoint, cfg.Blob.Token, signer)
	} else {
		fs, err := blobstore.NewFS(cfg.Blob.Dir, signer)
		if err != nil {
			data.Close()
			return nil, fmt.Errorf("opening blob dir: %w", err)
		}
		b.fs = fs
		blobs = fs
	}

	b.transport = transport.New(data, blobs,
		transport.WithCache(transport.NewCache(cfg.Cache.TTL)),
		transport.WithDecodeOptions(codec.Options{DurationFloor: cfg.Playback.DurationFloor}),
	)
	return b, nil
}

// blobSecret returns the configured signing secret, or a per-machine secret
// generated on first use.
func blobSecret() ([]byte, error) {
	if cfg.Blob.Secret != "" {
		return []byte(cfg.Blob.Secret), nil
	}
	path := filepath.Join(config.DataDir(), "blob.secret")
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	secret := []byte(hex.EncodeToString(raw))
	if err := os.WriteFile(path, secret, 0o600); err != nil {
		return nil, fmt.Errorf("saving blob secret: %w", err)
	}
	return secret, nil
}

// urlExpiry extracts the expiry of a signed blob URL.
func urlExpiry(raw string) (time.Time, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// clock formats milliseconds as mm:ss.
func clock(ms int64) string {
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
