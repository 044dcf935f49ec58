package audio

import (
	"math"
	"sync/atomic"

	"github.com/lixenwraith/tonestep/constant"
	"github.com/lixenwraith/tonestep/exercise"
	"github.com/lixenwraith/tonestep/metrics"
)

// Channels is the output channel count; every layer is mono, duplicated to both sides
const Channels = constant.AudioChannels

// Mix holds per-layer amplitudes of the synthesised tones
type Mix struct {
	RootAmplitude     float64 `yaml:"root_amplitude"`
	RelativeAmplitude float64 `yaml:"relative_amplitude"`
	SecondHarmonic    float64 `yaml:"second_harmonic"`
	ThirdHarmonic     float64 `yaml:"third_harmonic"`
	ToneMix           float64 `yaml:"tone_mix"`
}

// DefaultMix returns the reference amplitudes
func DefaultMix() Mix {
	return Mix{
		RootAmplitude:     constant.RootAmplitude,
		RelativeAmplitude: constant.RelativeAmplitude,
		SecondHarmonic:    constant.SecondHarmonic,
		ThirdHarmonic:     constant.ThirdHarmonic,
		ToneMix:           constant.ToneMix,
	}
}

// Renderer synthesises an exercise session into PCM
// Render and Stream must be called from one goroutine at a time; Snapshot is safe from any
type Renderer struct {
	session    *exercise.Session
	mix        Mix
	sampleRate float64

	snapshot atomic.Pointer[exercise.Snapshot]
}

// NewRenderer binds a session to an output sample rate
func NewRenderer(session *exercise.Session, sampleRate int, mix Mix) *Renderer {
	r := &Renderer{
		session:    session,
		mix:        mix,
		sampleRate: float64(sampleRate),
	}
	r.publish()
	return r
}

// Render fills an interleaved stereo buffer; a trailing partial frame is zeroed
func (r *Renderer) Render(buf []float32) {
	frames := len(buf) / Channels
	for i := 0; i < frames; i++ {
		v := float32(r.frame())
		buf[i*Channels] = v
		buf[i*Channels+1] = v
	}
	for i := frames * Channels; i < len(buf); i++ {
		buf[i] = 0
	}
	r.publish()
	metrics.BuffersRenderedTotal.Inc()
}

// Stream implements beep.Streamer; the stream never ends on its own
func (r *Renderer) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		v := r.frame()
		samples[i][0] = v
		samples[i][1] = v
	}
	r.publish()
	metrics.BuffersRenderedTotal.Inc()
	return len(samples), true
}

// Err implements beep.Streamer
func (r *Renderer) Err() error {
	return nil
}

// Snapshot returns the session state as of the last rendered buffer
func (r *Renderer) Snapshot() exercise.Snapshot {
	if s := r.snapshot.Load(); s != nil {
		return *s
	}
	return exercise.Snapshot{}
}

// frame renders one mono sample, advancing the session when its cycle is over
func (r *Renderer) frame() float64 {
	s := r.session
	cmd := s.Tick()

	phase := 2 * math.Pi * s.SampleClock() / r.sampleRate

	var root float64
	if cmd.RootGain > 0 {
		f := s.RootFrequency()
		root = r.mix.RootAmplitude * cmd.RootGain * (math.Sin(phase*f) +
			r.mix.SecondHarmonic*math.Sin(phase*2*f) +
			r.mix.ThirdHarmonic*math.Sin(phase*3*f))
	}

	var relative float64
	if cmd.RelativeGain > 0 {
		relative = r.mix.RelativeAmplitude * cmd.RelativeGain * math.Sin(phase*s.IntervalFrequency())
	}

	v := (root + relative) * r.mix.ToneMix
	if cmd.Voice {
		v += float64(s.NextVoiceSample())
	}

	if peak := math.Abs(v); peak > 1 {
		v /= peak
		metrics.FramesNormalizedTotal.Inc()
	}

	s.StepSampleClock()
	return v
}

func (r *Renderer) publish() {
	snap := r.session.Snapshot()
	r.snapshot.Store(&snap)
}
