package capture

import (
	"context"
	"sync"
)

// Blob is a finished recording.
type Blob struct {
	Data     []byte
	MimeType string
}

// Device is an acquired audio input. Pause and Resume act on the recording
// itself, so paused intervals are absent from the resulting blob.
type Device interface {
	Pause() error
	Resume() error
	Stop() (Blob, error)
	Close() error
}

// DeviceFactory acquires a device. Errors are reported as device unavailable.
type DeviceFactory func(ctx context.Context) (Device, error)

// MemoryDevice is a device that records nothing. It backs --no-audio
// recordings and tests.
type MemoryDevice struct {
	mu       sync.Mutex
	data     []byte
	mimeType string
	paused   bool
	stopped  bool
	closed   bool
	pauses   int
}

// NewMemoryDevice returns a device that yields data when stopped.
func NewMemoryDevice(data []byte, mimeType string) *MemoryDevice {
	return &MemoryDevice{data: data, mimeType: mimeType}
}

// MemoryFactory returns a factory that always yields dev.
func MemoryFactory(dev *MemoryDevice) DeviceFactory {
	return func(context.Context) (Device, error) { return dev, nil }
}

func (d *MemoryDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = true
	d.pauses++
	return nil
}

func (d *MemoryDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = false
	return nil
}

func (d *MemoryDevice) Stop() (Blob, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	return Blob{Data: append([]byte(nil), d.data...), MimeType: d.mimeType}, nil
}

func (d *MemoryDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close was called.
func (d *MemoryDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Pauses returns how many times the device was paused.
func (d *MemoryDevice) Pauses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pauses
}
