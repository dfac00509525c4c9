package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRecorder() (*Recorder, *fakeClock, *MemoryDevice) {
	clk := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	dev := NewMemoryDevice([]byte("opus"), "audio/webm")
	rec := NewRecorder(MemoryFactory(dev), WithClock(clk), WithIDFunc(func() string { return "rec-1" }))
	return rec, clk, dev
}

// Feature: codecast, Property 7: Record then replay
func TestRecordScenario(t *testing.T) {
	rec, clk, dev := newTestRecorder()
	ctx := context.Background()

	if err := rec.Start(ctx, ""); err != nil {
		t.Fatal(err)
	}
	clk.advance(1000 * time.Millisecond)
	rec.EditorChanged("h")
	clk.advance(200 * time.Millisecond)
	rec.EditorChanged("hi")
	clk.advance(1800 * time.Millisecond)

	s, err := rec.Stop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []session.CodeEvent{
		{Timestamp: 0, Type: session.EventKeypress, Data: ""},
		{Timestamp: 1000, Type: session.EventKeypress, Data: "h"},
		{Timestamp: 1200, Type: session.EventKeypress, Data: "hi"},
	}
	if s.Len() != len(want) {
		t.Fatalf("len = %d, want %d", s.Len(), len(want))
	}
	for i, w := range want {
		got := s.Event(i)
		if got.Timestamp != w.Timestamp || got.Data != w.Data || got.Type != w.Type {
			t.Errorf("event %d = %+v, want %+v", i, got, w)
		}
	}
	if s.Duration() != 3000 {
		t.Fatalf("duration = %d, want 3000", s.Duration())
	}
	if mem, ok := s.Audio().(session.InMemory); !ok || string(mem.Data) != "opus" {
		t.Fatalf("audio = %#v", s.Audio())
	}
	if !dev.Closed() {
		t.Fatal("device not released")
	}
	if rec.State() != Stopped {
		t.Fatalf("state = %s", rec.State())
	}
}

func TestPauseExcludesPausedTime(t *testing.T) {
	rec, clk, dev := newTestRecorder()
	ctx := context.Background()

	rec.Start(ctx, "x")
	clk.advance(time.Second)
	if err := rec.Pause(); err != nil {
		t.Fatal(err)
	}
	rec.EditorChanged("ignored")
	if got := rec.Content(); got != "ignored" {
		t.Fatalf("content while paused = %q, want the paused edit", got)
	}
	if rec.EventCount() != 1 {
		t.Fatalf("paused edit appended an event: count=%d", rec.EventCount())
	}
	clk.advance(10 * time.Second)
	if err := rec.Resume(); err != nil {
		t.Fatal(err)
	}
	clk.advance(500 * time.Millisecond)
	rec.EditorChanged("xy")

	s, err := rec.Stop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Fatalf("paused edit was recorded: len=%d", s.Len())
	}
	if got := s.Event(1).Timestamp; got != 1500 {
		t.Fatalf("timestamp after resume = %d, want 1500", got)
	}
	if got := s.Event(1).Type; got != session.EventKeypress {
		t.Fatalf("type after resume = %s, want keypress relative to the last recorded snapshot", got)
	}
	if dev.Pauses() != 1 {
		t.Fatalf("device pauses = %d", dev.Pauses())
	}
	types := []session.AudioEventType{}
	for _, e := range s.AudioEvents() {
		types = append(types, e.Type)
	}
	wantTypes := []session.AudioEventType{session.AudioStart, session.AudioPause, session.AudioResume, session.AudioStop}
	if len(types) != len(wantTypes) {
		t.Fatalf("audio events = %v", types)
	}
	for i := range wantTypes {
		if types[i] != wantTypes[i] {
			t.Fatalf("audio events = %v, want %v", types, wantTypes)
		}
	}
}

func TestStartFailureLeavesIdle(t *testing.T) {
	failing := func(context.Context) (Device, error) { return nil, errors.New("no microphone") }
	rec := NewRecorder(failing)
	err := rec.Start(context.Background(), "")
	if !errors.Is(err, errmodel.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if rec.State() != Idle {
		t.Fatalf("state = %s, want idle", rec.State())
	}
}

type failingStopDevice struct{ *MemoryDevice }

func (failingStopDevice) Stop() (Blob, error) { return Blob{}, errors.New("encoder crashed") }

func TestStopDeviceFailureKeepsCode(t *testing.T) {
	dev := failingStopDevice{NewMemoryDevice(nil, "audio/webm")}
	rec := NewRecorder(func(context.Context) (Device, error) { return dev, nil })
	rec.Start(context.Background(), "a")
	rec.EditorChanged("ab")

	s, err := rec.Stop(context.Background())
	if !errors.Is(err, errmodel.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if s == nil || s.FinalCode() != "ab" {
		t.Fatal("session lost on device failure")
	}
	if !dev.Closed() {
		t.Fatal("device not released after failure")
	}
}

// Feature: codecast, Property 5: Capture state machine
func TestStateMachine(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rec, clk, _ := newTestRecorder()
		ctx := context.Background()
		model := Idle

		ops := rapid.SliceOfN(rapid.SampledFrom([]string{"start", "pause", "resume", "stop", "edit"}), 1, 30).Draw(t, "ops")
		for _, op := range ops {
			clk.advance(time.Duration(rapid.IntRange(0, 500).Draw(t, "gap")) * time.Millisecond)
			var err error
			allowed := true
			next := model
			switch op {
			case "start":
				allowed, next = model == Idle, Recording
				err = rec.Start(ctx, "")
			case "pause":
				allowed, next = model == Recording, Paused
				err = rec.Pause()
			case "resume":
				allowed, next = model == Paused, Recording
				err = rec.Resume()
			case "stop":
				allowed, next = model == Recording || model == Paused, Stopped
				_, err = rec.Stop(ctx)
			case "edit":
				rec.EditorChanged(rapid.StringN(0, 4, -1).Draw(t, "content"))
				continue
			}
			if allowed {
				if err != nil {
					t.Fatalf("%s from %s: unexpected error %v", op, model, err)
				}
				model = next
			} else if !errors.Is(err, errmodel.ErrInvalidState) {
				t.Fatalf("%s from %s: expected ErrInvalidState, got %v", op, model, err)
			}
			if rec.State() != model {
				t.Fatalf("after %s: state %s, model %s", op, rec.State(), model)
			}
		}
	})
}

// Feature: codecast, Property: timestamps never decrease
func TestTimestampsNonDecreasing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rec, clk, _ := newTestRecorder()
		ctx := context.Background()
		rec.Start(ctx, "")
		n := rapid.IntRange(1, 40).Draw(t, "n")
		for i := 0; i < n; i++ {
			clk.advance(time.Duration(rapid.IntRange(0, 300).Draw(t, "gap")) * time.Millisecond)
			if rapid.IntRange(0, 9).Draw(t, "toggle") == 0 {
				if rec.State() == Recording {
					rec.Pause()
				} else {
					rec.Resume()
				}
			}
			rec.EditorChanged(rapid.StringN(0, 6, -1).Draw(t, "content"))
		}
		s, err := rec.Stop(ctx)
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i < s.Len(); i++ {
			if s.Event(i).Timestamp < s.Event(i-1).Timestamp {
				t.Fatalf("timestamp decreased at %d", i)
			}
		}
		if s.Len() > 0 && s.EndTime() < s.Event(s.Len()-1).Timestamp {
			t.Fatal("end time before last event")
		}
	})
}

func TestClassify(t *testing.T) {
	cases := []struct {
		prev, next string
		want       session.EventType
	}{
		{"", "a", session.EventKeypress},
		{"ab", "a", session.EventDelete},
		{"a", "abc", session.EventPaste},
		{"ab", "ax", session.EventKeypress},
		{"é", "éé", session.EventKeypress},
	}
	for _, c := range cases {
		if got := Classify(c.prev, c.next); got != c.want {
			t.Errorf("Classify(%q, %q) = %s, want %s", c.prev, c.next, got, c.want)
		}
	}
}
