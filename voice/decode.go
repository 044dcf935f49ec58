package voice

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep"
)

// ErrDecode is returned for malformed or unsupported WAV data
var ErrDecode = errors.New("voice: decode failed")

// WAV format tags; extensible files carry integer PCM in the go-audio decoder
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// resampleQuality is the beep interpolation window used when clip and output rates differ
const resampleQuality = 4

// Clip is a decoded mono recording normalised to [-1, 1]
type Clip struct {
	samples    []float32
	sampleRate int
}

// NewClip wraps already-normalised mono samples
func NewClip(samples []float32, sampleRate int) *Clip {
	return &Clip{samples: samples, sampleRate: sampleRate}
}

// Len returns the number of samples
func (c *Clip) Len() int {
	return len(c.samples)
}

// SampleRate returns the rate the samples are stored at
func (c *Clip) SampleRate() int {
	return c.sampleRate
}

// Decode turns WAV bytes into a mono clip
// Integer samples are divided by the bit depth's maximum positive amplitude
func Decode(data []byte) (*Clip, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return nil, fmt.Errorf("%w: invalid wav file", ErrDecode)
	}
	if f := d.WavAudioFormat; f != wavFormatPCM && f != wavFormatExtensible {
		return nil, fmt.Errorf("%w: unsupported wav format %d, only integer pcm", ErrDecode, f)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	maxAmp, offset, err := amplitudeFor(int(d.BitDepth))
	if err != nil {
		return nil, err
	}

	channels := int(d.NumChans)
	if channels < 1 {
		channels = 1
	}
	frames := len(buf.Data) / channels
	if frames == 0 {
		return nil, fmt.Errorf("%w: no pcm samples", ErrDecode)
	}

	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch]-offset) / maxAmp
		}
		samples[i] = float32(sum / float64(channels))
	}

	return &Clip{samples: samples, sampleRate: int(d.SampleRate)}, nil
}

// amplitudeFor returns the divisor and DC offset for a PCM bit depth
func amplitudeFor(bitDepth int) (float64, int, error) {
	switch bitDepth {
	case 8:
		// 8-bit wav is unsigned
		return 127, 128, nil
	case 16:
		return 32767, 0, nil
	case 24:
		return 8388607, 0, nil
	case 32:
		return 2147483647, 0, nil
	default:
		return 0, 0, fmt.Errorf("%w: unsupported bit depth %d", ErrDecode, bitDepth)
	}
}

// Resample converts the clip to rate, returning the clip unchanged when rates match
func (c *Clip) Resample(rate int) *Clip {
	if rate <= 0 || c.sampleRate <= 0 || rate == c.sampleRate || len(c.samples) == 0 {
		return c
	}

	src := &clipStreamer{samples: c.samples}
	r := beep.Resample(resampleQuality, beep.SampleRate(c.sampleRate), beep.SampleRate(rate), src)

	expected := int(float64(len(c.samples)) * float64(rate) / float64(c.sampleRate))
	out := make([]float32, 0, expected+1)
	chunk := make([][2]float64, 512)
	for {
		n, ok := r.Stream(chunk)
		for i := 0; i < n; i++ {
			out = append(out, float32(chunk[i][0]))
		}
		if !ok || n == 0 {
			break
		}
	}

	return &Clip{samples: out, sampleRate: rate}
}

// clipStreamer exposes clip samples as a mono beep.Streamer
type clipStreamer struct {
	samples []float32
	pos     int
}

func (s *clipStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	for n < len(samples) && s.pos < len(s.samples) {
		v := float64(s.samples[s.pos])
		samples[n][0] = v
		samples[n][1] = v
		n++
		s.pos++
	}
	return n, true
}

func (s *clipStreamer) Err() error { return nil }
