package playback

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// Source is an acquired audio location. In-memory audio is spilled to a
// temporary file which Release removes; remote audio is used as is.
type Source struct {
	location string
	release  func() error
	once     sync.Once
	err      error
}

// Acquire makes a session's audio playable. tmpDir may be empty.
func Acquire(a session.Audio, tmpDir string) (*Source, error) {
	switch v := a.(type) {
	case session.InMemory:
		f, err := os.CreateTemp(tmpDir, "codecast-*."+session.Extension(v.ContentType))
		if err != nil {
			return nil, fmt.Errorf("spill audio: %w", err)
		}
		name := f.Name()
		if _, err := f.Write(v.Data); err != nil {
			f.Close()
			os.Remove(name)
			return nil, fmt.Errorf("spill audio: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(name)
			return nil, fmt.Errorf("spill audio: %w", err)
		}
		return &Source{location: name, release: func() error { return os.Remove(name) }}, nil
	case session.Remote:
		if v.URL == "" {
			return nil, errors.New("remote audio has no url")
		}
		return &Source{location: v.URL, release: func() error { return nil }}, nil
	case nil:
		return nil, errors.New("session has no audio")
	default:
		return nil, fmt.Errorf("unknown audio variant %T", a)
	}
}

// Location is a path or URL an element can open.
func (s *Source) Location() string { return s.location }

// Release frees the location. Calls after the first are no-ops.
func (s *Source) Release() error {
	s.once.Do(func() { s.err = s.release() })
	return s.err
}
