package playback

import (
	"sync"
	"time"
)

// Element is a media element that owns the playback clock.
type Element interface {
	Play() error
	Pause() error
	Seek(d time.Duration) error
	Position() time.Duration
	Playing() bool
	Close() error
}

// ElementFactory opens an element for an audio location (file path or URL).
type ElementFactory func(location string) (Element, error)

// ClockElement is a silent element that advances with wall time. It is used
// when no audio output is available and as the clock behind ProcessElement.
type ClockElement struct {
	mu        sync.Mutex
	now       func() time.Time
	offset    time.Duration
	startedAt time.Time
	playing   bool
	length    time.Duration
}

// NewClockElement returns a paused clock at position 0. A zero length means
// unbounded.
func NewClockElement(length time.Duration) *ClockElement {
	return &ClockElement{now: time.Now, length: length}
}

// SetNow overrides the time source.
func (c *ClockElement) SetNow(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *ClockElement) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		c.startedAt = c.now()
		c.playing = true
	}
	return nil
}

func (c *ClockElement) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		c.offset = c.positionLocked()
		c.playing = false
	}
	return nil
}

func (c *ClockElement) Seek(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = max(d, 0)
	if c.playing {
		c.startedAt = c.now()
	}
	return nil
}

func (c *ClockElement) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *ClockElement) positionLocked() time.Duration {
	pos := c.offset
	if c.playing {
		pos += c.now().Sub(c.startedAt)
	}
	if c.length > 0 && pos > c.length {
		pos = c.length
	}
	return pos
}

func (c *ClockElement) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *ClockElement) Close() error {
	return c.Pause()
}
