package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process
var (
	otoOnce     sync.Once
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
	otoErr      error
)

// float32Bytes is the width of one float32 LE sample
const float32Bytes = 4

// OtoDevice plays float32 little-endian PCM through an oto context
type OtoDevice struct {
	Buffer time.Duration
}

// Name implements Device
func (d *OtoDevice) Name() string {
	return BackendNameOto
}

// BuildOutputStream implements Device
func (d *OtoDevice) BuildOutputStream(channels, sampleRate int, cb Callback) (OutputStream, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   d.Buffer,
		})
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
		otoRate = sampleRate
		otoChannels = channels
	})
	if otoErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, otoErr)
	}
	if otoRate != sampleRate || otoChannels != channels {
		return nil, fmt.Errorf("%w: oto context is %d Hz/%d ch, requested %d Hz/%d ch",
			ErrDevice, otoRate, otoChannels, sampleRate, channels)
	}

	r := &callbackReader{cb: cb, channels: channels}
	return &otoStream{player: otoCtx.NewPlayer(r), reader: r}, nil
}

type otoStream struct {
	player *oto.Player
	reader *callbackReader
}

func (s *otoStream) Play() error {
	if s.reader.closed.Load() {
		return ErrStreamClosed
	}
	s.player.Play()
	return nil
}

func (s *otoStream) Close() error {
	s.reader.closed.Store(true)
	return s.player.Close()
}

// callbackReader serves the callback's output as float32 LE bytes
type callbackReader struct {
	cb       Callback
	channels int
	buf      []float32
	closed   atomic.Bool
}

func (r *callbackReader) Read(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, io.EOF
	}

	n := len(p) / (float32Bytes * r.channels) * r.channels
	if n == 0 {
		return 0, nil
	}
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	buf := r.buf[:n]
	r.cb(buf)

	for i, v := range buf {
		binary.LittleEndian.PutUint32(p[i*float32Bytes:], math.Float32bits(v))
	}
	return n * float32Bytes, nil
}
