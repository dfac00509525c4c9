// Package playback replays a walkthrough against its narration. The audio
// element's position is the only clock; the displayed code is derived from it.
package playback

import (
	"sort"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// Timeline answers "what was on screen at t" for a session.
type Timeline struct {
	events   []session.CodeEvent
	initial  string
	duration int64
}

// NewTimeline indexes the code events of s.
func NewTimeline(s *session.Session) *Timeline {
	events := s.CodeEvents()
	session.SortEvents(events)
	return &Timeline{events: events, initial: s.InitialCode(), duration: s.Duration()}
}

// IndexAt returns the index of the latest event with timestamp <= ms, or -1
// if every event is later.
func (t *Timeline) IndexAt(ms int64) int {
	i := sort.Search(len(t.events), func(i int) bool { return t.events[i].Timestamp > ms })
	return i - 1
}

// CodeAt returns the snapshot in effect at ms.
func (t *Timeline) CodeAt(ms int64) string {
	i := t.IndexAt(ms)
	if i < 0 {
		return t.initial
	}
	return t.events[i].Data
}

// Len returns the number of events.
func (t *Timeline) Len() int { return len(t.events) }

// Duration is the session length in milliseconds.
func (t *Timeline) Duration() int64 { return t.duration }

// Initial returns the content shown before the first event.
func (t *Timeline) Initial() string { return t.initial }
