package playback

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// Engine drives the displayed code from an element's position.
type Engine struct {
	mu        sync.Mutex
	timeline  *Timeline
	element   Element
	source    *Source
	displayed string
	err       error
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	tmpDir string
}

// WithTempDir sets where in-memory audio is spilled.
func WithTempDir(dir string) Option {
	return func(o *options) { o.tmpDir = dir }
}

// Open acquires the session's audio, opens an element on it and returns an
// engine paused at position 0.
func Open(s *session.Session, newElement ElementFactory, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	src, err := Acquire(s.Audio(), o.tmpDir)
	if err != nil {
		return nil, err
	}
	el, err := newElement(src.Location())
	if err != nil {
		src.Release()
		return nil, err
	}
	tl := NewTimeline(s)
	return &Engine{timeline: tl, element: el, source: src, displayed: tl.Initial()}, nil
}

// Play starts or resumes playback. At the end it restarts from 0.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}
	if e.positionLocked() >= e.timeline.Duration() {
		if err := e.element.Seek(0); err != nil {
			return e.failLocked(err)
		}
	}
	if err := e.element.Play(); err != nil {
		return e.failLocked(err)
	}
	return nil
}

// Pause freezes playback at the current position.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}
	if err := e.element.Pause(); err != nil {
		return e.failLocked(err)
	}
	return nil
}

// Toggle plays when paused and pauses when playing.
func (e *Engine) Toggle() error {
	if e.Playing() {
		return e.Pause()
	}
	return e.Play()
}

// Stop pauses, rewinds to 0 and shows the initial code.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}
	if err := e.element.Pause(); err != nil {
		return e.failLocked(err)
	}
	if err := e.element.Seek(0); err != nil {
		return e.failLocked(err)
	}
	e.displayed = e.timeline.Initial()
	return nil
}

// Seek moves to ms, clamped to [0, duration], and updates the displayed code
// immediately.
func (e *Engine) Seek(ms int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errClosed
	}
	ms = min(max(ms, 0), e.timeline.Duration())
	if err := e.element.Seek(time.Duration(ms) * time.Millisecond); err != nil {
		return e.failLocked(err)
	}
	e.displayed = e.timeline.CodeAt(ms)
	return nil
}

// Tick reads the clock once and returns the code for it. changed is false
// when the snapshot is the one already displayed. Tick pauses the element
// when it reaches the end.
func (e *Engine) Tick() (code string, changed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return e.displayed, false
	}
	pos := e.positionLocked()
	if pos >= e.timeline.Duration() && e.element.Playing() {
		if err := e.element.Pause(); err != nil {
			e.failLocked(err)
		}
	}
	code = e.timeline.CodeAt(pos)
	if code == e.displayed {
		return code, false
	}
	e.displayed = code
	return code, true
}

func (e *Engine) positionLocked() int64 {
	return min(e.element.Position().Milliseconds(), e.timeline.Duration())
}

// Displayed returns the code currently shown.
func (e *Engine) Displayed() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayed
}

// Position returns the current position in milliseconds.
func (e *Engine) Position() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

// Duration returns the session length in milliseconds.
func (e *Engine) Duration() int64 { return e.timeline.Duration() }

// Progress returns the position as a fraction of the duration.
func (e *Engine) Progress() float64 {
	d := e.timeline.Duration()
	if d <= 0 {
		return 0
	}
	return float64(e.Position()) / float64(d)
}

// Playing reports whether the element is advancing.
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && e.element.Playing()
}

// Err returns the last element error, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Close releases the element and the audio location exactly once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		e.closeErr = errors.Join(e.element.Close(), e.source.Release())
	})
	return e.closeErr
}

func (e *Engine) failLocked(err error) error {
	slog.Warn("playback element error", "error", err)
	e.err = err
	return err
}

var errClosed = errors.New("playback: engine closed")
