package audio

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Callback fills one interleaved float32 buffer; it runs on the device's goroutine
type Callback func(buf []float32)

// OutputStream is a built stream; callbacks begin after Play and cease after Close returns
// Speaker and oto backends may deliver one final in-flight buffer during Close
type OutputStream interface {
	Play() error
	Close() error
}

// StreamErrors is implemented by streams that can fail after Play
// At most one error is delivered; callbacks have ceased by then
type StreamErrors interface {
	Errors() <-chan error
}

// Device builds output streams that pull PCM through a Callback
type Device interface {
	Name() string
	BuildOutputStream(channels, sampleRate int, cb Callback) (OutputStream, error)
}

// Backend names accepted by NewDevice
const (
	BackendNameSpeaker = "speaker"
	BackendNameOto     = "oto"
	BackendNamePipe    = "pipe"
	BackendNameNull    = "null"
)

// NewDevice returns the device for a backend name
func NewDevice(backend string, buffer time.Duration, logger *zap.Logger) (Device, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendNameSpeaker, "":
		return &SpeakerDevice{Buffer: buffer}, nil
	case BackendNameOto:
		return &OtoDevice{Buffer: buffer}, nil
	case BackendNamePipe:
		return &PipeDevice{Buffer: buffer, Logger: logger}, nil
	case BackendNameNull:
		return &NullDevice{Buffer: buffer}, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrDevice, backend)
	}
}

// bufferFrames converts a buffer duration to whole frames, at least one
func bufferFrames(sampleRate int, d time.Duration) int {
	n := int(int64(sampleRate) * int64(d) / int64(time.Second))
	if n < 1 {
		n = 1
	}
	return n
}
