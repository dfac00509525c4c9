package session

import (
	"errors"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
)

// Builder accumulates events during capture. It is not safe for concurrent
// use; the capture engine serializes access.
type Builder struct {
	id          string
	meta        Metadata
	initialCode string
	code        []CodeEvent
	audio       []AudioEvent
	sealed      bool
}

// NewBuilder starts an empty session with the given id and initial content.
func NewBuilder(id, initialCode string) *Builder {
	return &Builder{id: id, initialCode: initialCode}
}

// SetMetadata replaces the metadata that Seal will attach.
func (b *Builder) SetMetadata(m Metadata) { b.meta = m }

// AppendCode adds a code event. Callers append in timestamp order.
func (b *Builder) AppendCode(e CodeEvent) { b.code = append(b.code, e) }

// AppendAudio adds an audio transition.
func (b *Builder) AppendAudio(e AudioEvent) { b.audio = append(b.audio, e) }

// Len returns the number of code events appended so far.
func (b *Builder) Len() int { return len(b.code) }

// Last returns the most recent code event.
func (b *Builder) Last() (CodeEvent, bool) {
	if len(b.code) == 0 {
		return CodeEvent{}, false
	}
	return b.code[len(b.code)-1], true
}

// Seal freezes the builder into a Session. The builder cannot be used
// afterwards.
func (b *Builder) Seal(endTime int64, audio Audio) (*Session, error) {
	if b.sealed {
		return nil, errmodel.E(errmodel.KindInvalidState, "session.seal", errors.New("builder already sealed"))
	}
	s, err := New(Params{
		ID:          b.id,
		Metadata:    b.meta,
		StartTime:   0,
		EndTime:     endTime,
		CodeEvents:  b.code,
		AudioEvents: b.audio,
		InitialCode: b.initialCode,
		Audio:       audio,
	})
	if err != nil {
		return nil, err
	}
	b.sealed = true
	b.code, b.audio = nil, nil
	return s, nil
}
