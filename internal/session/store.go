package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoDraft is returned by Load when no draft with the given id exists.
var ErrNoDraft = errors.New("no such draft")

// DraftStore keeps sealed sessions on local disk until they are uploaded.
type DraftStore interface {
	Save(s *Session) error
	Load(id string) (*Session, error) // returns ErrNoDraft if none exists
	List() ([]*Session, error)
	Delete(id string) error
}

// diskStore is the concrete DraftStore that writes to the XDG data directory.
type diskStore struct {
	dir string
}

// NewDraftStore returns a DraftStore backed by the XDG data directory.
// Path: $XDG_DATA_HOME/codecast/drafts or ~/.local/share/codecast/drafts
func NewDraftStore() (DraftStore, error) {
	dir, err := dataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data directory: %w", err)
	}
	dir = filepath.Join(dir, "drafts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating drafts directory: %w", err)
	}
	return &diskStore{dir: dir}, nil
}

func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "codecast"), nil
}

func (d *diskStore) path(id string) string {
	return filepath.Join(d.dir, filepath.Base(id)+".json")
}

// Save marshals s to JSON and writes it atomically via a temp file + os.Rename.
func (d *diskStore) Save(s *Session) (err error) {
	if s.ID() == "" {
		return errors.New("failed to persist draft: session has no id")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to persist draft: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, "draft-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist draft: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist draft: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist draft: %w", err)
	}
	if err = os.Rename(tmpName, d.path(s.ID())); err != nil {
		return fmt.Errorf("failed to persist draft: %w", err)
	}
	return nil
}

// Load reads the draft with the given id.
func (d *diskStore) Load(id string) (*Session, error) {
	data, err := os.ReadFile(d.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoDraft
		}
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse draft %s: %w", id, err)
	}
	return &s, nil
}

// List returns every stored draft ordered by id.
func (d *diskStore) List() ([]*Session, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)

	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		s, err := d.Load(id)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Delete removes a draft. Missing drafts are not an error.
func (d *diskStore) Delete(id string) error {
	if err := os.Remove(d.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
