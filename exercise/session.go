package exercise

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/lixenwraith/tonestep/envelope"
	"github.com/lixenwraith/tonestep/note"
	"github.com/lixenwraith/tonestep/voice"
)

// ErrInvalidConfiguration is returned when a session cannot be built from its inputs
var ErrInvalidConfiguration = errors.New("exercise: invalid configuration")

// VoiceSource hands out a fresh read cursor over the answer clip for a key
type VoiceSource interface {
	Cursor(key int) *voice.Cursor
}

// Exercise is one (root, relative) pairing
// Interval is the relative degree measured from the root; it selects the pitch and the voice clip
type Exercise struct {
	Root     note.Note
	Relative note.Note
	Interval note.Note
}

func newExercise(root, relative note.Note) Exercise {
	return Exercise{
		Root:     root,
		Relative: relative,
		Interval: note.RelativeToAbsolute(root, relative),
	}
}

// VoiceKey returns the voice store key of the spoken answer
func (e Exercise) VoiceKey() int {
	return e.Interval.Key()
}

// Command is the per-tick layer state derived from elapsed time
type Command struct {
	Root      envelope.Phase
	Challenge envelope.Phase
	Answer    envelope.Phase
	Voice     bool

	RootGain     float64
	RelativeGain float64
}

// Option configures a Session
type Option func(*Session)

// WithClock replaces the wall clock used to measure elapsed time
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithRand replaces the random source used to pick notes
func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

// WithTiming replaces the reference tuning
func WithTiming(t Timing) Option {
	return func(s *Session) { s.timing = t }
}

// WithVoices attaches the answer recordings
func WithVoices(v VoiceSource) Option {
	return func(s *Session) { s.voices = v }
}

// WithPhaseWrap wraps the oscillator sample clock modulo sampleRate; zero disables wrapping
func WithPhaseWrap(sampleRate int) Option {
	return func(s *Session) { s.wrap = float64(sampleRate) }
}

// OnAdvance registers a callback invoked on the session's goroutine after every advance
func OnAdvance(fn func(prev, next Exercise, repetition int)) Option {
	return func(s *Session) { s.onAdvance = fn }
}

// Session is the exercise state machine driven by the render loop
// Not safe for concurrent use; the render goroutine owns it after start
type Session struct {
	notes       []note.Note
	repetitions int
	repetition  int
	current     Exercise
	voice       *voice.Cursor

	timing    Timing
	root      envelope.Timings
	challenge envelope.Timings
	answer    envelope.Timings

	now     func() time.Time
	started time.Time
	rng     *rand.Rand
	voices  VoiceSource

	sampleClock float64
	wrap        float64

	onAdvance func(prev, next Exercise, repetition int)
}

// New builds a session over the allowed relative notes
// The first exercise is picked immediately and the clock starts at construction
func New(allowed note.Set, repetitions int, opts ...Option) (*Session, error) {
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: allowed note set is empty", ErrInvalidConfiguration)
	}
	if repetitions < 1 {
		return nil, fmt.Errorf("%w: repetitions must be at least 1, got %d", ErrInvalidConfiguration, repetitions)
	}
	notes := allowed.Sorted()
	for _, n := range notes {
		if !n.Valid() {
			return nil, fmt.Errorf("%w: %s is not a scale degree", ErrInvalidConfiguration, n)
		}
	}

	s := &Session{
		notes:       notes,
		repetitions: repetitions,
		repetition:  1,
		timing:      DefaultTiming(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.timing.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s.root = s.timing.Root()
	s.challenge = s.timing.Challenge()
	s.answer = s.timing.Answer()

	root := note.FromIndex(s.rng.IntN(note.Count))
	relative := s.notes[s.rng.IntN(len(s.notes))]
	s.setExercise(newExercise(root, relative))

	return s, nil
}

// Exercise returns the current pairing
func (s *Session) Exercise() Exercise {
	return s.current
}

// Repetition returns the 1-based repetition of the current root
func (s *Session) Repetition() int {
	return s.repetition
}

// Repetitions returns the configured repetitions per root
func (s *Session) Repetitions() int {
	return s.repetitions
}

// Notes returns the allowed relative notes in keyboard order
func (s *Session) Notes() []note.Note {
	out := make([]note.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Timing returns the session tuning
func (s *Session) Timing() Timing {
	return s.timing
}

// Elapsed returns time since the last advance
func (s *Session) Elapsed() time.Duration {
	return s.now().Sub(s.started)
}

// CommandAt evaluates the three layer windows and the voice flag at elapsed
func (s *Session) CommandAt(elapsed time.Duration) Command {
	first := s.repetition == 1
	last := s.repetition == s.repetitions

	cmd := Command{
		Root:      envelope.RootOverride(envelope.PhaseFor(elapsed, s.root), first, last),
		Challenge: envelope.PhaseFor(elapsed, s.challenge),
		Answer:    envelope.PhaseFor(elapsed, s.answer),
		Voice:     elapsed >= s.timing.VoiceStart,
	}

	cmd.RootGain = s.root.Gain(cmd.Root, elapsed)
	if cmd.Challenge != envelope.Silent {
		cmd.RelativeGain = s.challenge.Gain(cmd.Challenge, elapsed)
	} else {
		cmd.RelativeGain = s.answer.Gain(cmd.Answer, elapsed)
	}
	return cmd
}

// Command evaluates the current command without advancing
func (s *Session) Command() Command {
	return s.CommandAt(s.Elapsed())
}

// AdvanceIfDue advances when elapsed has reached the end of the root window
func (s *Session) AdvanceIfDue(elapsed time.Duration) bool {
	if elapsed < s.root.End {
		return false
	}
	s.Advance()
	return true
}

// Tick advances if the cycle is over and returns the command for now
func (s *Session) Tick() Command {
	elapsed := s.Elapsed()
	if s.AdvanceIfDue(elapsed) {
		elapsed = s.Elapsed()
	}
	return s.CommandAt(elapsed)
}

// Advance moves to the next exercise and resets the clock
// A finished block rolls a new root; otherwise the root repeats with a new relative
func (s *Session) Advance() {
	prev := s.current

	var next Exercise
	if s.repetition >= s.repetitions {
		root := s.pickExcluding(note.All(), prev.Root)
		relative := s.pickExcluding(s.notes, prev.Relative)
		next = newExercise(root, relative)
		s.repetition = 1
	} else {
		relative := s.pickExcluding(s.notes, prev.Relative)
		next = newExercise(prev.Root, relative)
		s.repetition++
	}
	s.setExercise(next)

	if s.onAdvance != nil {
		s.onAdvance(prev, next, s.repetition)
	}
}

// pickExcluding draws uniformly from candidates, rejecting current while more than one candidate exists
// Terminates with probability 1: at least one candidate differs from current
func (s *Session) pickExcluding(candidates []note.Note, current note.Note) note.Note {
	if len(candidates) == 1 {
		return candidates[0]
	}
	for {
		n := candidates[s.rng.IntN(len(candidates))]
		if n != current {
			return n
		}
	}
}

func (s *Session) setExercise(e Exercise) {
	s.current = e
	if s.voices != nil {
		s.voice = s.voices.Cursor(e.VoiceKey())
	} else {
		s.voice = nil
	}
	s.started = s.now()
}

// NextVoiceSample returns the next sample of the current answer clip, 0 once exhausted
func (s *Session) NextVoiceSample() float32 {
	v, _ := s.voice.Next()
	return v
}

// RootFrequency returns the root tone fundamental
func (s *Session) RootFrequency() float64 {
	return note.RootFrequency(s.current.Root)
}

// IntervalFrequency returns the relative tone frequency
func (s *Session) IntervalFrequency() float64 {
	return note.RelativeFrequency(s.current.Interval)
}

// SampleClock returns the oscillator position in samples
func (s *Session) SampleClock() float64 {
	return s.sampleClock
}

// StepSampleClock advances the oscillator by one sample
func (s *Session) StepSampleClock() {
	s.sampleClock++
	if s.wrap > 0 {
		s.sampleClock = math.Mod(s.sampleClock, s.wrap)
	}
}

// Snapshot is a read-only view of a session for hosts
type Snapshot struct {
	Exercise    Exercise
	Repetition  int
	Repetitions int
	Elapsed     time.Duration
	Command     Command
}

// Snapshot captures the session state at the current time
func (s *Session) Snapshot() Snapshot {
	elapsed := s.Elapsed()
	return Snapshot{
		Exercise:    s.current,
		Repetition:  s.repetition,
		Repetitions: s.repetitions,
		Elapsed:     elapsed,
		Command:     s.CommandAt(elapsed),
	}
}
