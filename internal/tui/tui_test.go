package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/capture"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/playback"
	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/session"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func newPlayer(t *testing.T) (PlayerModel, *playback.Engine) {
	t.Helper()
	s, err := session.New(session.Params{
		ID:      "p",
		EndTime: 20_000,
		CodeEvents: []session.CodeEvent{
			{Timestamp: 0, Data: ""},
			{Timestamp: 6_000, Data: "b"},
		},
		Audio: session.InMemory{Data: []byte("audio"), ContentType: "audio/webm"},
	})
	if err != nil {
		t.Fatal(err)
	}
	clk := &fakeClock{t: time.Unix(0, 0)}
	factory := func(string) (playback.Element, error) {
		el := playback.NewClockElement(20 * time.Second)
		el.SetNow(clk.Now)
		return el, nil
	}
	eng, err := playback.Open(s, factory, playback.WithTempDir(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })

	m, _ := NewPlayer(eng, "demo").Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m.(PlayerModel), eng
}

func TestPlayerSeekKeys(t *testing.T) {
	m, eng := newPlayer(t)

	step := func(k tea.KeyMsg) {
		t.Helper()
		next, _ := m.Update(k)
		m = next.(PlayerModel)
	}

	step(tea.KeyMsg{Type: tea.KeyRight})
	if eng.Position() != 5_000 || eng.Displayed() != "" {
		t.Fatalf("after right: pos=%d code=%q", eng.Position(), eng.Displayed())
	}
	step(tea.KeyMsg{Type: tea.KeyRight})
	if eng.Position() != 10_000 || eng.Displayed() != "b" {
		t.Fatalf("after right x2: pos=%d code=%q", eng.Position(), eng.Displayed())
	}
	step(tea.KeyMsg{Type: tea.KeyEnd})
	if eng.Position() != 20_000 {
		t.Fatalf("after end: pos=%d", eng.Position())
	}
	step(tea.KeyMsg{Type: tea.KeyLeft})
	if eng.Position() != 15_000 {
		t.Fatalf("after left: pos=%d", eng.Position())
	}
	step(tea.KeyMsg{Type: tea.KeyHome})
	if eng.Position() != 0 || eng.Displayed() != "" {
		t.Fatalf("after home: pos=%d code=%q", eng.Position(), eng.Displayed())
	}
	if m.View() == "" {
		t.Fatal("empty view")
	}
}

func TestPlayerToggleStopQuit(t *testing.T) {
	m, eng := newPlayer(t)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	m = next.(PlayerModel)
	if !eng.Playing() {
		t.Fatal("space should start playback")
	}
	next, _ = m.Update(runes("s"))
	m = next.(PlayerModel)
	if eng.Playing() || eng.Position() != 0 {
		t.Fatalf("stop: playing=%v pos=%d", eng.Playing(), eng.Position())
	}
	if _, cmd := m.Update(runes("q")); !isQuit(cmd) {
		t.Fatal("q should quit")
	}
}

func TestRecorderTypingPauseAndStop(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	dev := capture.NewMemoryDevice([]byte("opus"), "audio/webm")
	rec := capture.NewRecorder(capture.MemoryFactory(dev), capture.WithClock(clk))
	if err := rec.Start(context.Background(), ""); err != nil {
		t.Fatal(err)
	}

	var m tea.Model = NewRecorder(rec, RecorderOptions{Title: "demo"})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	clk.t = clk.t.Add(time.Second)
	m, _ = m.Update(runes("h"))
	clk.t = clk.t.Add(200 * time.Millisecond)
	m, _ = m.Update(runes("i"))
	if rec.EventCount() != 3 || rec.Content() != "hi" {
		t.Fatalf("events=%d content=%q", rec.EventCount(), rec.Content())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	if rec.State() != capture.Paused {
		t.Fatalf("state = %v, want paused", rec.State())
	}
	m, _ = m.Update(runes("x"))
	if rec.EventCount() != 3 {
		t.Fatal("typing while paused must not be captured")
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	if rec.State() != capture.Recording {
		t.Fatalf("state = %v, want recording", rec.State())
	}
	if m.View() == "" {
		t.Fatal("empty view")
	}

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmd == nil {
		t.Fatal("ctrl+s should schedule stop")
	}
	m, cmd = m.Update(cmd())
	if !isQuit(cmd) {
		t.Fatal("stop should quit the program")
	}
	s, err := m.(RecorderModel).Result()
	if err != nil {
		t.Fatal(err)
	}
	if s.FinalCode() != "hi" || s.Len() != 3 || s.Event(2).Timestamp != 1200 {
		t.Fatalf("unexpected session final=%q len=%d", s.FinalCode(), s.Len())
	}
}

func TestRecorderWatchMode(t *testing.T) {
	dev := capture.NewMemoryDevice(nil, "audio/webm")
	rec := capture.NewRecorder(capture.MemoryFactory(dev))
	if err := rec.Start(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	changes := make(chan string)
	var m tea.Model = NewRecorder(rec, RecorderOptions{Initial: "a", Changes: changes, Source: "main.go"})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	m, cmd := m.Update(fileChangedMsg("ab"))
	if rec.Content() != "ab" {
		t.Fatalf("content = %q", rec.Content())
	}
	if cmd == nil {
		t.Fatal("expected to keep waiting for changes")
	}
	close(changes)
	if _, ok := cmd().(watchClosedMsg); !ok {
		t.Fatal("closed channel should report watchClosedMsg")
	}
	// Typing is ignored in watch mode.
	m.Update(runes("zzz"))
	if rec.Content() != "ab" {
		t.Fatalf("content = %q after typing in watch mode", rec.Content())
	}
}
