package playback

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProcessElement plays audio through an external player process. Position is
// tracked by an internal clock; the process is restarted at the clock's
// offset on every play or seek.
type ProcessElement struct {
	mu       sync.Mutex
	player   string
	location string
	clock    *ClockElement
	cmd      *exec.Cmd
}

var players = []string{"ffplay", "mpv"}

// FindPlayer returns the first supported player found on PATH.
func FindPlayer() (string, error) {
	for _, p := range players {
		if _, err := exec.LookPath(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(players, ", "))
}

// NewProcessElementFactory returns a factory that plays through player.
// length bounds the internal clock.
func NewProcessElementFactory(player string, length time.Duration) ElementFactory {
	return func(location string) (Element, error) {
		if _, err := exec.LookPath(player); err != nil {
			return nil, fmt.Errorf("audio player %s: %w", player, err)
		}
		return &ProcessElement{player: player, location: location, clock: NewClockElement(length)}, nil
	}
}

func (p *ProcessElement) args(offset time.Duration) []string {
	sec := strconv.FormatFloat(offset.Seconds(), 'f', 3, 64)
	switch filepath.Base(p.player) {
	case "mpv":
		return []string{"--no-video", "--really-quiet", "--start=" + sec, p.location}
	default:
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "-ss", sec, p.location}
	}
}

func (p *ProcessElement) startLocked() error {
	cmd := exec.Command(p.player, p.args(p.clock.Position())...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.player, err)
	}
	p.cmd = cmd
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Debug("audio player exited", "player", p.player, "error", err)
		}
	}()
	return nil
}

func (p *ProcessElement) stopLocked() {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	if err := p.cmd.Process.Kill(); err != nil {
		slog.Debug("failed to stop audio player", "error", err)
	}
	p.cmd = nil
}

func (p *ProcessElement) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clock.Playing() {
		return nil
	}
	if err := p.startLocked(); err != nil {
		return err
	}
	return p.clock.Play()
}

func (p *ProcessElement) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return p.clock.Pause()
}

func (p *ProcessElement) Seek(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.clock.Seek(d); err != nil {
		return err
	}
	if p.clock.Playing() {
		p.stopLocked()
		return p.startLocked()
	}
	return nil
}

func (p *ProcessElement) Position() time.Duration { return p.clock.Position() }
func (p *ProcessElement) Playing() bool           { return p.clock.Playing() }

func (p *ProcessElement) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return p.clock.Close()
}
