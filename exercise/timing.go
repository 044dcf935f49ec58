package exercise

import (
	"fmt"
	"time"

	"github.com/lixenwraith/tonestep/constant"
	"github.com/lixenwraith/tonestep/envelope"
)

// Timing holds the tunable offsets of one exercise cycle
// Root, challenge and answer windows are derived from it with envelope.NewTimings
type Timing struct {
	FadeIn             time.Duration `yaml:"fade_in"`
	FadeOut            time.Duration `yaml:"fade_out"`
	RootStart          time.Duration `yaml:"root_start"`
	RootFullVolume     time.Duration `yaml:"root_full_volume"`
	ChallengeStart     time.Duration `yaml:"challenge_start"`
	AnswerStart        time.Duration `yaml:"answer_start"`
	RelativeFullVolume time.Duration `yaml:"relative_full_volume"`
	VoiceStart         time.Duration `yaml:"voice_start"`
}

// DefaultTiming returns the reference tuning
func DefaultTiming() Timing {
	return Timing{
		FadeIn:             constant.FadeInDuration,
		FadeOut:            constant.FadeOutDuration,
		RootStart:          constant.RootStart,
		RootFullVolume:     constant.RootFullVolume,
		ChallengeStart:     constant.ChallengeStart,
		AnswerStart:        constant.AnswerStart,
		RelativeFullVolume: constant.RelativeFullVolume,
		VoiceStart:         constant.VoiceStart,
	}
}

// Root returns the root layer window; its end is the cycle length
func (t Timing) Root() envelope.Timings {
	return envelope.NewTimings(t.RootStart, t.FadeIn, t.RootFullVolume, t.FadeOut)
}

// Challenge returns the window in which the interval is played unannounced
func (t Timing) Challenge() envelope.Timings {
	return envelope.NewTimings(t.ChallengeStart, t.FadeIn, t.RelativeFullVolume, t.FadeOut)
}

// Answer returns the window in which the interval repeats alongside the voice
func (t Timing) Answer() envelope.Timings {
	return envelope.NewTimings(t.AnswerStart, t.FadeIn, t.RelativeFullVolume, t.FadeOut)
}

// Cycle returns the elapsed time at which the session advances
func (t Timing) Cycle() time.Duration {
	return t.Root().End
}

// Validate checks offsets are non-negative and the relative windows are disjoint
func (t Timing) Validate() error {
	fields := []struct {
		name string
		d    time.Duration
	}{
		{"fade_in", t.FadeIn},
		{"fade_out", t.FadeOut},
		{"root_start", t.RootStart},
		{"root_full_volume", t.RootFullVolume},
		{"challenge_start", t.ChallengeStart},
		{"answer_start", t.AnswerStart},
		{"relative_full_volume", t.RelativeFullVolume},
		{"voice_start", t.VoiceStart},
	}
	for _, f := range fields {
		if f.d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", f.name, f.d)
		}
	}

	if t.Cycle() <= 0 {
		return fmt.Errorf("root window must have a positive length")
	}
	if c, a := t.Challenge(), t.Answer(); c.End > a.FadeInStart && a.End > c.FadeInStart {
		return fmt.Errorf("challenge window [%s,%s) overlaps answer window [%s,%s)",
			c.FadeInStart, c.End, a.FadeInStart, a.End)
	}
	return nil
}
