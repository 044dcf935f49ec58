package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/tonestep/constant"
)

// speaker can only be initialised once per process, at a single rate
var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

// SpeakerDevice plays through beep's speaker package
type SpeakerDevice struct {
	Buffer time.Duration
}

// Name implements Device
func (d *SpeakerDevice) Name() string {
	return BackendNameSpeaker
}

// BuildOutputStream implements Device
// The stream is attached to the speaker paused and unpaused by Play
func (d *SpeakerDevice) BuildOutputStream(channels, sampleRate int, cb Callback) (OutputStream, error) {
	if channels != Channels {
		return nil, fmt.Errorf("%w: speaker supports %d channels, got %d", ErrDevice, Channels, channels)
	}

	sr := beep.SampleRate(sampleRate)
	speakerOnce.Do(func() {
		buffer := d.Buffer
		if buffer <= 0 {
			buffer = constant.AudioBufferDuration
		}
		speakerRate = sr
		speakerErr = speaker.Init(sr, sr.N(buffer))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, speakerErr)
	}
	if speakerRate != sr {
		return nil, fmt.Errorf("%w: speaker initialised at %d Hz, requested %d Hz", ErrDevice, int(speakerRate), sampleRate)
	}

	ctrl := &beep.Ctrl{Streamer: &callbackStreamer{cb: cb}, Paused: true}
	speaker.Play(ctrl)
	return &speakerStream{ctrl: ctrl}, nil
}

type speakerStream struct {
	ctrl *beep.Ctrl
}

func (s *speakerStream) Play() error {
	speaker.Lock()
	defer speaker.Unlock()
	if s.ctrl.Streamer == nil {
		return ErrStreamClosed
	}
	s.ctrl.Paused = false
	return nil
}

// Close detaches the stream; the speaker mixer drops a Ctrl with no streamer
func (s *speakerStream) Close() error {
	speaker.Lock()
	s.ctrl.Paused = true
	s.ctrl.Streamer = nil
	speaker.Unlock()
	return nil
}

// callbackStreamer adapts a Callback to beep.Streamer
type callbackStreamer struct {
	cb  Callback
	buf []float32
}

func (c *callbackStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	need := len(samples) * Channels
	if cap(c.buf) < need {
		c.buf = make([]float32, need)
	}
	buf := c.buf[:need]
	c.cb(buf)
	for i := range samples {
		samples[i][0] = float64(buf[i*Channels])
		samples[i][1] = float64(buf[i*Channels+1])
	}
	return len(samples), true
}

func (c *callbackStreamer) Err() error {
	return nil
}
