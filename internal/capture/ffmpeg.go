package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZohaibManzoor00/zo-lms-sub001/internal/errmodel"
)

// Raw capture format. The device records signed 16-bit little-endian mono
// PCM so a pause can drop whole sample frames without tearing a container.
const (
	sampleRate = 48000
	channels   = 1
	frameSize  = 2 * channels
)

var (
	startupGrace  = 300 * time.Millisecond
	stopTimeout   = 5 * time.Second
	encodeTimeout = 2 * time.Minute
)

// FFmpegConfig selects the input and the container written to the blob.
type FFmpegConfig struct {
	Binary string // defaults to "ffmpeg"
	Input  string // device name; platform default when empty
	Format string // "webm" | "ogg" | "wav"
}

type format struct {
	args     []string // encoder arguments; nil when the container is written in-process
	mimeType string
}

var formats = map[string]format{
	"webm": {args: []string{"-c:a", "libopus", "-f", "webm"}, mimeType: "audio/webm"},
	"ogg":  {args: []string{"-c:a", "libopus", "-f", "ogg"}, mimeType: "audio/ogg"},
	"wav":  {mimeType: "audio/wav"},
}

// pcmArgs describes the raw stream on either side of an ffmpeg pipe.
func pcmArgs() []string {
	return []string{"-f", "s16le", "-ar", strconv.Itoa(sampleRate), "-ac", strconv.Itoa(channels)}
}

// inputArgs returns the capture arguments for the current platform.
func inputArgs(input string) []string {
	switch runtime.GOOS {
	case "darwin":
		if input == "" {
			input = ":default"
		}
		return []string{"-f", "avfoundation", "-i", input}
	case "windows":
		if input == "" {
			input = "audio=default"
		}
		return []string{"-f", "dshow", "-i", input}
	default:
		if input == "" {
			input = "default"
		}
		return []string{"-f", "pulse", "-i", input}
	}
}

// FFmpegFactory returns a DeviceFactory that records the microphone with an
// ffmpeg child process streaming PCM to stdout.
func FFmpegFactory(cfg FFmpegConfig) DeviceFactory {
	return func(ctx context.Context) (Device, error) {
		return startFFmpeg(ctx, cfg)
	}
}

// FFmpegDevice buffers the PCM stream of an ffmpeg process. Frames read while
// paused are dropped; the container is built once, in Stop.
type FFmpegDevice struct {
	mu      sync.Mutex
	bin     string
	format  format
	cmd     *exec.Cmd
	pcm     bytes.Buffer
	partial []byte       // bytes of a frame split across reads
	stderr  bytes.Buffer // read only after done is closed
	paused  bool
	done    chan struct{} // closed after the process has been reaped
	waitErr error
	stopped bool
}

func startFFmpeg(ctx context.Context, cfg FFmpegConfig) (*FFmpegDevice, error) {
	bin := cfg.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, errmodel.E(errmodel.KindDeviceUnavailable, "capture.acquire", fmt.Errorf("%s not found: %w", bin, err))
	}
	f, ok := formats[cfg.Format]
	if !ok {
		f = formats["webm"]
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, inputArgs(cfg.Input)...)
	args = append(args, "-c:a", "pcm_s16le")
	args = append(args, pcmArgs()...)
	args = append(args, "pipe:1")

	d := &FFmpegDevice{bin: bin, format: f, done: make(chan struct{})}
	// The process outlives the acquiring context; Stop and Close end it.
	d.cmd = exec.Command(bin, args...)
	d.cmd.Stderr = &d.stderr
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return nil, errmodel.E(errmodel.KindDeviceUnavailable, "capture.acquire", err)
	}
	if err := d.cmd.Start(); err != nil {
		return nil, errmodel.E(errmodel.KindDeviceUnavailable, "capture.acquire", err)
	}
	slog.Debug("ffmpeg started", "args", strings.Join(args, " "))

	go d.readLoop(stdout)

	select {
	case <-d.done:
		return nil, errmodel.E(errmodel.KindDeviceUnavailable, "capture.acquire",
			fmt.Errorf("ffmpeg exited: %s", strings.TrimSpace(d.stderr.String())))
	case <-ctx.Done():
		d.Close()
		return nil, errmodel.E(errmodel.KindDeviceUnavailable, "capture.acquire", ctx.Err())
	case <-time.After(startupGrace):
	}
	return d, nil
}

// readLoop copies stdout into the PCM buffer until EOF, then reaps the process.
func (d *FFmpegDevice) readLoop(r io.Reader) {
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			d.consume(chunk[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				slog.Warn("ffmpeg read failed", "error", err)
			}
			break
		}
	}
	d.waitErr = d.cmd.Wait()
	close(d.done)
}

// consume appends whole frames to the buffer, or drops them while paused. A
// trailing partial frame waits for the next read.
func (d *FFmpegDevice) consume(p []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data := append(d.partial, p...)
	whole := len(data) - len(data)%frameSize
	if !d.paused {
		d.pcm.Write(data[:whole])
	}
	d.partial = append([]byte(nil), data[whole:]...)
}

func (d *FFmpegDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = true
	return nil
}

func (d *FFmpegDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
	return nil
}

// Stop interrupts ffmpeg, waits for it to exit and encodes everything
// recorded into the configured container.
func (d *FFmpegDevice) Stop() (Blob, error) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return Blob{}, errors.New("ffmpeg device already stopped")
	}
	d.stopped = true
	d.mu.Unlock()

	if d.cmd.Process != nil {
		if err := d.cmd.Process.Signal(os.Interrupt); err != nil {
			slog.Debug("failed to interrupt ffmpeg, killing", "error", err)
			d.cmd.Process.Kill()
		}
	}

	killed := false
	select {
	case <-d.done:
	case <-time.After(stopTimeout):
		// Raw PCM has no trailer, so what was read so far is complete.
		slog.Warn("ffmpeg did not stop in time, killing")
		d.cmd.Process.Kill()
		killed = true
		<-d.done
	}

	if !killed {
		if err := d.exitError(); err != nil {
			return Blob{}, err
		}
	}

	d.mu.Lock()
	pcm := bytes.Clone(d.pcm.Bytes())
	d.mu.Unlock()
	return d.encode(pcm), nil
}

// encode wraps pcm in the configured container. A failed encode falls back
// to WAV so the narration is not lost.
func (d *FFmpegDevice) encode(pcm []byte) Blob {
	if d.format.args == nil {
		return Blob{Data: wav(pcm), MimeType: "audio/wav"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), encodeTimeout)
	defer cancel()
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, pcmArgs()...)
	args = append(args, "-i", "pipe:0")
	args = append(args, d.format.args...)
	args = append(args, "pipe:1")

	var out, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.bin, args...)
	cmd.Stdin = bytes.NewReader(pcm)
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		slog.Warn("audio encode failed, keeping WAV", "format", d.format.mimeType,
			"error", err, "stderr", strings.TrimSpace(stderr.String()))
		return Blob{Data: wav(pcm), MimeType: "audio/wav"}
	}
	return Blob{Data: out.Bytes(), MimeType: d.format.mimeType}
}

// wav prepends a canonical 44-byte RIFF header to pcm.
func wav(pcm []byte) []byte {
	var b bytes.Buffer
	b.Grow(44 + len(pcm))
	le := func(v any) { binary.Write(&b, binary.LittleEndian, v) }
	b.WriteString("RIFF")
	le(uint32(36 + len(pcm)))
	b.WriteString("WAVEfmt ")
	le(uint32(16))
	le(uint16(1)) // PCM
	le(uint16(channels))
	le(uint32(sampleRate))
	le(uint32(sampleRate * frameSize))
	le(uint16(frameSize))
	le(uint16(16))
	b.WriteString("data")
	le(uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}

// exitError filters the exit statuses ffmpeg uses after an interrupt.
func (d *FFmpegDevice) exitError() error {
	if d.waitErr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(d.waitErr, &exitErr) {
		if exitErr.ExitCode() == 255 {
			return nil
		}
		if s := exitErr.ProcessState.String(); s == "signal: interrupt" {
			return nil
		}
	}
	slog.Debug("ffmpeg stderr", "output", d.stderr.String())
	return fmt.Errorf("ffmpeg process failed: %w", d.waitErr)
}

// Close kills the process if it is still running.
func (d *FFmpegDevice) Close() error {
	select {
	case <-d.done:
		return nil
	default:
	}
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	<-d.done
	return nil
}
