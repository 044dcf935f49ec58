package envelope

import "time"

// Phase is the position of a layer within its volume window
type Phase int

const (
	Silent Phase = iota
	FadeIn
	FullVolume
	FadeOut
)

func (p Phase) String() string {
	switch p {
	case Silent:
		return "silent"
	case FadeIn:
		return "fade-in"
	case FullVolume:
		return "full"
	case FadeOut:
		return "fade-out"
	default:
		return "unknown"
	}
}

// Timings holds the four non-decreasing offsets of a volume window
type Timings struct {
	FadeInStart     time.Duration
	FullVolumeStart time.Duration
	FadeOutStart    time.Duration
	End             time.Duration
}

// NewTimings lays out a window starting at start with the given ramp and hold lengths
func NewTimings(start, fadeIn, fullVolume, fadeOut time.Duration) Timings {
	fullStart := start + fadeIn
	fadeOutStart := fullStart + fullVolume
	return Timings{
		FadeInStart:     start,
		FullVolumeStart: fullStart,
		FadeOutStart:    fadeOutStart,
		End:             fadeOutStart + fadeOut,
	}
}

// PhaseFor returns the phase active at elapsed
// Intervals are closed on the lower bound and open on the upper bound
func PhaseFor(elapsed time.Duration, t Timings) Phase {
	switch {
	case elapsed < t.FadeInStart:
		return Silent
	case elapsed < t.FullVolumeStart:
		return FadeIn
	case elapsed < t.FadeOutStart:
		return FullVolume
	case elapsed < t.End:
		return FadeOut
	default:
		return Silent
	}
}

// Gain returns the linear amplitude factor for phase p at elapsed
func (t Timings) Gain(p Phase, elapsed time.Duration) float64 {
	switch p {
	case FadeIn:
		ramp := t.FullVolumeStart - t.FadeInStart
		if ramp <= 0 {
			return 1
		}
		return clamp01(float64(elapsed-t.FadeInStart) / float64(ramp))
	case FullVolume:
		return 1
	case FadeOut:
		ramp := t.End - t.FadeOutStart
		if ramp <= 0 {
			return 0
		}
		return clamp01(1 - float64(elapsed-t.FadeOutStart)/float64(ramp))
	default:
		return 0
	}
}

// RootOverride keeps the root layer sounding across a repeated-root block
// first and last report whether the current repetition opens or closes the block
func RootOverride(p Phase, first, last bool) Phase {
	if p == FadeIn && !first {
		return FullVolume
	}
	if (p == FadeOut || p == Silent) && !last {
		return FullVolume
	}
	return p
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
