// Package session holds the walkthrough model: a timestamped sequence of full
// editor snapshots plus the narration recorded alongside it.
package session

import (
	"bytes"
	"cmp"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
)

// Metadata is descriptive information carried with a walkthrough.
type Metadata struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	CourseID    string    `json:"course_id,omitempty"`
	ChapterID   string    `json:"chapter_id,omitempty"`
	LessonID    string    `json:"lesson_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// Session is a sealed, immutable walkthrough. Build one with a Builder during
// capture, or with New when decoding stored data.
type Session struct {
	id          string
	meta        Metadata
	startTime   int64
	endTime     int64
	codeEvents  []CodeEvent
	audioEvents []AudioEvent
	initialCode string
	finalCode   string
	audio       Audio
}

// Params are the inputs to New.
type Params struct {
	ID          string
	Metadata    Metadata
	StartTime   int64
	EndTime     int64
	CodeEvents  []CodeEvent
	AudioEvents []AudioEvent
	InitialCode string
	Audio       Audio
}

// New validates p and returns a sealed session. Events are copied and, if out
// of order, stably sorted by timestamp. EndTime is raised to cover the last
// event.
func New(p Params) (*Session, error) {
	code := slices.Clone(p.CodeEvents)
	for i, e := range code {
		if e.Timestamp < 0 {
			return nil, errmodel.E(errmodel.KindMalformedRecord, "session.new",
				fmt.Errorf("code event %d has negative timestamp %d", i, e.Timestamp))
		}
		if e.Type == "" {
			code[i].Type = EventKeypress
		} else if !e.Type.Valid() {
			return nil, errmodel.E(errmodel.KindMalformedRecord, "session.new",
				fmt.Errorf("code event %d has unknown type %q", i, e.Type))
		}
	}
	SortEvents(code)

	audio := slices.Clone(p.AudioEvents)
	slices.SortStableFunc(audio, func(a, b AudioEvent) int { return cmp.Compare(a.Timestamp, b.Timestamp) })

	end := max(p.EndTime, p.StartTime)
	if n := len(code); n > 0 {
		end = max(end, code[n-1].Timestamp)
	}
	final := p.InitialCode
	if n := len(code); n > 0 {
		final = code[n-1].Data
	}

	return &Session{
		id:          p.ID,
		meta:        p.Metadata,
		startTime:   p.StartTime,
		endTime:     end,
		codeEvents:  code,
		audioEvents: audio,
		initialCode: p.InitialCode,
		finalCode:   final,
		audio:       cloneAudio(p.Audio),
	}, nil
}

func (s *Session) ID() string              { return s.id }
func (s *Session) Metadata() Metadata      { return s.meta }
func (s *Session) StartTime() int64        { return s.startTime }
func (s *Session) EndTime() int64          { return s.endTime }
func (s *Session) InitialCode() string     { return s.initialCode }
func (s *Session) FinalCode() string       { return s.finalCode }
func (s *Session) Audio() Audio            { return cloneAudio(s.audio) }
func (s *Session) Len() int                { return len(s.codeEvents) }
func (s *Session) Event(i int) CodeEvent   { return s.codeEvents[i] }
func (s *Session) CodeEvents() []CodeEvent { return slices.Clone(s.codeEvents) }

func (s *Session) AudioEvents() []AudioEvent { return slices.Clone(s.audioEvents) }

// Duration is the playable length of the session in milliseconds.
func (s *Session) Duration() int64 { return s.endTime - s.startTime }

// WithMetadata returns a copy of s carrying meta.
func (s *Session) WithMetadata(meta Metadata) *Session {
	c := *s
	c.meta = meta
	return &c
}

// WithID returns a copy of s with a different identifier.
func (s *Session) WithID(id string) *Session {
	c := *s
	c.id = id
	return &c
}

// WithAudio returns a copy of s with its audio replaced.
func (s *Session) WithAudio(a Audio) *Session {
	c := *s
	c.audio = cloneAudio(a)
	return &c
}

// cloneAudio copies in-memory bytes so a sealed session never shares them.
func cloneAudio(a Audio) Audio {
	if m, ok := a.(InMemory); ok {
		m.Data = bytes.Clone(m.Data)
		return m
	}
	return a
}

type audioJSON struct {
	Kind        string    `json:"kind"`
	ContentType string    `json:"content_type"`
	Data        string    `json:"data,omitempty"`
	URL         string    `json:"url,omitempty"`
	Expires     time.Time `json:"expires,omitzero"`
}

type sessionJSON struct {
	ID          string       `json:"id"`
	Metadata    Metadata     `json:"metadata"`
	StartTime   int64        `json:"start_time"`
	EndTime     int64        `json:"end_time"`
	InitialCode string       `json:"initial_code"`
	CodeEvents  []CodeEvent  `json:"code_events"`
	AudioEvents []AudioEvent `json:"audio_events"`
	Audio       *audioJSON   `json:"audio,omitempty"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{
		ID:          s.id,
		Metadata:    s.meta,
		StartTime:   s.startTime,
		EndTime:     s.endTime,
		InitialCode: s.initialCode,
		CodeEvents:  s.codeEvents,
		AudioEvents: s.audioEvents,
	}
	switch a := s.audio.(type) {
	case InMemory:
		out.Audio = &audioJSON{Kind: "memory", ContentType: a.ContentType, Data: base64.StdEncoding.EncodeToString(a.Data)}
	case Remote:
		out.Audio = &audioJSON{Kind: "remote", ContentType: a.ContentType, URL: a.URL, Expires: a.Expires}
	case nil:
	default:
		return nil, fmt.Errorf("session: unknown audio variant %T", a)
	}
	return json.Marshal(out)
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var in sessionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var audio Audio
	if in.Audio != nil {
		switch in.Audio.Kind {
		case "memory":
			raw, err := base64.StdEncoding.DecodeString(in.Audio.Data)
			if err != nil {
				return fmt.Errorf("session: decoding audio: %w", err)
			}
			audio = InMemory{Data: raw, ContentType: in.Audio.ContentType}
		case "remote":
			audio = Remote{URL: in.Audio.URL, ContentType: in.Audio.ContentType, Expires: in.Audio.Expires}
		default:
			return fmt.Errorf("session: unknown audio kind %q", in.Audio.Kind)
		}
	}
	built, err := New(Params{
		ID:          in.ID,
		Metadata:    in.Metadata,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		CodeEvents:  in.CodeEvents,
		AudioEvents: in.AudioEvents,
		InitialCode: in.InitialCode,
		Audio:       audio,
	})
	if err != nil {
		return err
	}
	*s = *built
	return nil
}
