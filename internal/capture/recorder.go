// Package capture records editor snapshots in lockstep with microphone audio.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

// State is the recorder lifecycle position.
type State int

const (
	Idle State = iota
	Recording
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Recorder turns editor changes into a session. Timestamps are milliseconds
// of active recording: paused intervals are excluded, matching the audio.
type Recorder struct {
	mu        sync.Mutex
	newDevice DeviceFactory
	clock     Clock
	newID     func() string

	state    State
	device   Device
	builder  *session.Builder
	started  time.Time
	pausedAt time.Time
	paused   time.Duration
	content  string // latest editor content, paused edits included
	recorded string // data of the last appended snapshot
	lastTS   int64
	result   *session.Session
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(r *Recorder) { r.clock = c } }

// WithIDFunc replaces the session id generator.
func WithIDFunc(f func() string) Option { return func(r *Recorder) { r.newID = f } }

// NewRecorder returns an idle recorder that acquires audio from newDevice.
func NewRecorder(newDevice DeviceFactory, opts ...Option) *Recorder {
	r := &Recorder{newDevice: newDevice, clock: systemClock{}, newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func invalid(op string, s State) error {
	return errmodel.E(errmodel.KindInvalidState, op, fmt.Errorf("not allowed while %s", s))
}

// Start acquires the audio device and begins recording with initialCode as
// the snapshot at t=0. On failure the recorder stays idle.
func (r *Recorder) Start(ctx context.Context, initialCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Idle {
		return invalid("capture.start", r.state)
	}

	dev, err := r.newDevice(ctx)
	if err != nil {
		return errmodel.E(errmodel.KindDeviceUnavailable, "capture.start", err)
	}

	r.device = dev
	r.started = r.clock.Now()
	r.paused = 0
	r.content = initialCode
	r.recorded = initialCode
	r.lastTS = 0
	r.builder = session.NewBuilder(r.newID(), initialCode)
	r.builder.AppendCode(session.CodeEvent{Timestamp: 0, Type: session.EventKeypress, Data: initialCode})
	r.builder.AppendAudio(session.AudioEvent{Timestamp: 0, Type: session.AudioStart})
	r.state = Recording
	slog.Info("recording started")
	return nil
}

// elapsedLocked returns active recording time in milliseconds.
func (r *Recorder) elapsedLocked() int64 {
	if r.state == Idle {
		return 0
	}
	now := r.clock.Now()
	if r.state == Paused || r.state == Stopped {
		now = r.pausedAt
	}
	return max(now.Sub(r.started)-r.paused, 0).Milliseconds()
}

// EditorChanged records content as a new snapshot. Outside Recording only the
// current content is updated; nothing is appended.
func (r *Recorder) EditorChanged(content string) {
	r.record(content, nil)
}

// EditorChangedAt is EditorChanged with a known cursor offset.
func (r *Recorder) EditorChangedAt(content string, cursor int) {
	r.record(content, &cursor)
}

func (r *Recorder) record(content string, cursor *int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = content
	if r.state != Recording || content == r.recorded {
		return
	}
	ts := max(r.elapsedLocked(), r.lastTS)
	r.builder.AppendCode(session.CodeEvent{
		Timestamp: ts,
		Type:      Classify(r.recorded, content),
		Data:      content,
		Position:  cursor,
	})
	r.recorded = content
	r.lastTS = ts
}

// Pause suspends audio and stops accepting editor changes.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Recording {
		return invalid("capture.pause", r.state)
	}
	if err := r.device.Pause(); err != nil {
		return errmodel.E(errmodel.KindDeviceUnavailable, "capture.pause", err)
	}
	ts := r.elapsedLocked()
	r.pausedAt = r.clock.Now()
	r.state = Paused
	r.builder.AppendAudio(session.AudioEvent{Timestamp: ts, Type: session.AudioPause})
	return nil
}

// Resume continues a paused recording.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Paused {
		return invalid("capture.resume", r.state)
	}
	if err := r.device.Resume(); err != nil {
		return errmodel.E(errmodel.KindDeviceUnavailable, "capture.resume", err)
	}
	r.paused += r.clock.Now().Sub(r.pausedAt)
	r.state = Recording
	r.builder.AppendAudio(session.AudioEvent{Timestamp: r.elapsedLocked(), Type: session.AudioResume})
	return nil
}

// Stop finalizes the audio and seals the session. The device is released on
// every path. If the device fails to finalize, the session is still returned
// with empty audio alongside the error so captured code is not lost.
func (r *Recorder) Stop(ctx context.Context) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != Recording && r.state != Paused {
		return nil, invalid("capture.stop", r.state)
	}

	end := r.elapsedLocked()
	if r.state == Recording {
		r.pausedAt = r.clock.Now()
	}
	r.state = Stopped

	dev := r.device
	r.device = nil
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Warn("closing audio device", "error", err)
		}
	}()

	var devErr error
	blob, err := stopWithContext(ctx, dev)
	if err != nil {
		slog.Error("audio finalization failed", "error", err)
		devErr = errmodel.E(errmodel.KindDeviceUnavailable, "capture.stop", err)
		blob = Blob{}
	}

	r.builder.AppendAudio(session.AudioEvent{Timestamp: end, Type: session.AudioStop})
	s, err := r.builder.Seal(max(end, r.lastTS), session.InMemory{Data: blob.Data, ContentType: blob.MimeType})
	if err != nil {
		return nil, errors.Join(devErr, err)
	}
	r.result = s
	slog.Info("recording stopped", "events", s.Len(), "duration_ms", s.Duration(), "audio_bytes", len(blob.Data))
	return s, devErr
}

func stopWithContext(ctx context.Context, dev Device) (Blob, error) {
	type result struct {
		blob Blob
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := dev.Stop()
		ch <- result{b, err}
	}()
	select {
	case res := <-ch:
		return res.blob, res.err
	case <-ctx.Done():
		return Blob{}, ctx.Err()
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed returns active recording time.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Duration(r.elapsedLocked()) * time.Millisecond
}

// Content returns the current editor content, including edits made while
// paused that have not been recorded.
func (r *Recorder) Content() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.content
}

// EventCount returns the number of code events captured so far.
func (r *Recorder) EventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.builder == nil {
		return 0
	}
	if r.result != nil {
		return r.result.Len()
	}
	return r.builder.Len()
}

// Session returns the sealed session once stopped.
func (r *Recorder) Session() (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.result != nil
}
