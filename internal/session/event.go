package session

import (
	"cmp"
	"slices"
)

// EventType describes how an editor change was classified at capture time.
// It is informational only; replay never branches on it.
type EventType string

const (
	EventKeypress EventType = "keypress"
	EventDelete   EventType = "delete"
	EventPaste    EventType = "paste"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventKeypress, EventDelete, EventPaste:
		return true
	}
	return false
}

// CodeEvent is a full snapshot of the editor content at Timestamp
// milliseconds after the session started.
type CodeEvent struct {
	Timestamp int64     `json:"timestamp"`
	Type      EventType `json:"type"`
	Data      string    `json:"data"`
	Position  *int      `json:"position,omitempty"` // cursor offset, when known
}

// AudioEventType marks a transition of the audio track.
type AudioEventType string

const (
	AudioStart  AudioEventType = "start"
	AudioPause  AudioEventType = "pause"
	AudioResume AudioEventType = "resume"
	AudioStop   AudioEventType = "stop"
)

// AudioEvent records an audio transition at Timestamp milliseconds.
type AudioEvent struct {
	Timestamp int64          `json:"timestamp"`
	Type      AudioEventType `json:"type"`
}

func byTime(a, b CodeEvent) int { return cmp.Compare(a.Timestamp, b.Timestamp) }

// Sorted reports whether events are in non-decreasing timestamp order.
func Sorted(events []CodeEvent) bool { return slices.IsSortedFunc(events, byTime) }

// SortEvents orders events by timestamp, keeping the relative order of equal
// timestamps.
func SortEvents(events []CodeEvent) {
	if !Sorted(events) {
		slices.SortStableFunc(events, byTime)
	}
}
