package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/tonestep/constant"
)

// NullDevice drives callbacks from a ticker and discards the output
// Used on machines without a sound card and in tests
type NullDevice struct {
	Buffer time.Duration

	buffers atomic.Uint64
}

// Name implements Device
func (d *NullDevice) Name() string {
	return BackendNameNull
}

// Buffers returns how many buffers all streams of this device have rendered
func (d *NullDevice) Buffers() uint64 {
	return d.buffers.Load()
}

// BuildOutputStream implements Device
func (d *NullDevice) BuildOutputStream(channels, sampleRate int, cb Callback) (OutputStream, error) {
	if channels < 1 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid format %d channels at %d Hz", ErrDevice, channels, sampleRate)
	}
	period := d.Buffer
	if period <= 0 {
		period = constant.NullBufferDuration
	}
	return &nullStream{
		device: d,
		cb:     cb,
		period: period,
		buf:    make([]float32, bufferFrames(sampleRate, period)*channels),
		stop:   make(chan struct{}),
	}, nil
}

type nullStream struct {
	device *NullDevice
	cb     Callback
	period time.Duration
	buf    []float32

	once    sync.Once
	stop    chan struct{}
	stopped atomic.Bool
	wg      sync.WaitGroup
}

func (s *nullStream) Play() error {
	if s.stopped.Load() {
		return ErrStreamClosed
	}
	s.once.Do(func() {
		s.wg.Add(1)
		go s.loop()
	})
	return nil
}

func (s *nullStream) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.cb(s.buf)
			s.device.buffers.Add(1)
		}
	}
}

func (s *nullStream) Close() error {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stop)
	}
	s.wg.Wait()
	return nil
}
