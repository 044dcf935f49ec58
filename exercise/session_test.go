package exercise

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/lixenwraith/tonestep/envelope"
	"github.com/lixenwraith/tonestep/note"
	"github.com/lixenwraith/tonestep/voice"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestSession(t *testing.T, allowed note.Set, repetitions int, opts ...Option) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	opts = append([]Option{
		WithClock(clock.Now),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, opts...)

	s, err := New(allowed, repetitions, opts...)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return s, clock
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	cases := []struct {
		name        string
		allowed     note.Set
		repetitions int
	}{
		{"empty set", note.NewSet(), 1},
		{"nil set", nil, 1},
		{"zero repetitions", note.NewSet(note.Two), 0},
		{"invalid degree", note.NewSet(note.Note(40)), 1},
	}
	for _, tc := range cases {
		_, err := New(tc.allowed, tc.repetitions)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("%s: expected ErrInvalidConfiguration, got %v", tc.name, err)
		}
	}

	bad := DefaultTiming()
	bad.AnswerStart = 5 * time.Second
	if _, err := New(note.NewSet(note.Two), 1, WithTiming(bad)); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("Expected overlapping windows to be rejected, got %v", err)
	}
}

func TestCommandSingleRepetition(t *testing.T) {
	s, _ := newTestSession(t, note.NewSet(note.Two), 1)

	cases := []struct {
		at        time.Duration
		root      envelope.Phase
		challenge envelope.Phase
		answer    envelope.Phase
		voice     bool
	}{
		{0, envelope.FadeIn, envelope.Silent, envelope.Silent, false},
		{1 * time.Second, envelope.FadeIn, envelope.Silent, envelope.Silent, false},
		{2 * time.Second, envelope.FullVolume, envelope.FadeIn, envelope.Silent, false},
		{4 * time.Second, envelope.FullVolume, envelope.FullVolume, envelope.Silent, false},
		{8 * time.Second, envelope.FullVolume, envelope.FadeOut, envelope.Silent, false},
		{10 * time.Second, envelope.FullVolume, envelope.Silent, envelope.Silent, false},
		{12*time.Second - time.Nanosecond, envelope.FullVolume, envelope.Silent, envelope.Silent, false},
		{12 * time.Second, envelope.FullVolume, envelope.Silent, envelope.FadeIn, true},
		{14 * time.Second, envelope.FullVolume, envelope.Silent, envelope.FullVolume, true},
		{18 * time.Second, envelope.FadeOut, envelope.Silent, envelope.FadeOut, true},
		{20*time.Second - time.Nanosecond, envelope.FadeOut, envelope.Silent, envelope.FadeOut, true},
		{20 * time.Second, envelope.Silent, envelope.Silent, envelope.Silent, true},
	}
	for _, tc := range cases {
		cmd := s.CommandAt(tc.at)
		if cmd.Root != tc.root || cmd.Challenge != tc.challenge || cmd.Answer != tc.answer || cmd.Voice != tc.voice {
			t.Errorf("At %s: expected (%s %s %s %v), got (%s %s %s %v)",
				tc.at, tc.root, tc.challenge, tc.answer, tc.voice,
				cmd.Root, cmd.Challenge, cmd.Answer, cmd.Voice)
		}
	}
}

func TestRootOverrideAcrossBlock(t *testing.T) {
	s, _ := newTestSession(t, note.NewSet(note.Two, note.Three), 3)

	// repetition 1 of 3: fades in, never fades out
	if got := s.CommandAt(0).Root; got != envelope.FadeIn {
		t.Errorf("First repetition at 0: expected FadeIn, got %s", got)
	}
	if got := s.CommandAt(18 * time.Second).Root; got != envelope.FullVolume {
		t.Errorf("First repetition at 18s: expected FullVolume, got %s", got)
	}

	// repetition 2 of 3: no fades anywhere
	s.Advance()
	for _, at := range []time.Duration{0, time.Second, 18 * time.Second, 19 * time.Second, 20 * time.Second} {
		if got := s.CommandAt(at).Root; got != envelope.FullVolume {
			t.Errorf("Middle repetition at %s: expected FullVolume, got %s", at, got)
		}
	}

	// repetition 3 of 3: fades out, never fades in
	s.Advance()
	if s.Repetition() != 3 {
		t.Fatalf("Expected repetition 3, got %d", s.Repetition())
	}
	if got := s.CommandAt(0).Root; got != envelope.FullVolume {
		t.Errorf("Last repetition at 0: expected FullVolume, got %s", got)
	}
	if got := s.CommandAt(18 * time.Second).Root; got != envelope.FadeOut {
		t.Errorf("Last repetition at 18s: expected FadeOut, got %s", got)
	}
}

func TestCommandGains(t *testing.T) {
	s, _ := newTestSession(t, note.NewSet(note.Five), 1)

	cases := []struct {
		at       time.Duration
		root     float64
		relative float64
	}{
		{0, 0, 0},
		{1 * time.Second, 0.5, 0},
		{3 * time.Second, 1, 0.5},
		{6 * time.Second, 1, 1},
		{9 * time.Second, 1, 0.5},
		{11 * time.Second, 1, 0},
		{13 * time.Second, 1, 0.5},
		{19 * time.Second, 0.5, 0.5},
	}
	for _, tc := range cases {
		cmd := s.CommandAt(tc.at)
		if math.Abs(cmd.RootGain-tc.root) > 1e-9 {
			t.Errorf("At %s: expected root gain %f, got %f", tc.at, tc.root, cmd.RootGain)
		}
		if math.Abs(cmd.RelativeGain-tc.relative) > 1e-9 {
			t.Errorf("At %s: expected relative gain %f, got %f", tc.at, tc.relative, cmd.RelativeGain)
		}
	}
}

func TestSingleNoteScenario(t *testing.T) {
	s, clock := newTestSession(t, note.NewSet(note.Two), 1)

	if s.Exercise().Relative != note.Two {
		t.Errorf("Expected relative Two, got %s", s.Exercise().Relative)
	}
	if cmd := s.Tick(); cmd.Root != envelope.FadeIn {
		t.Errorf("Expected root FadeIn at start, got %s", cmd.Root)
	}

	prev := s.Exercise()
	clock.Advance(s.Timing().Cycle())
	s.Tick()

	next := s.Exercise()
	if next.Root == prev.Root {
		t.Errorf("Expected root to change from %s", prev.Root)
	}
	if next.Relative != note.Two {
		t.Errorf("Expected relative to stay Two, got %s", next.Relative)
	}
	if s.Elapsed() != 0 {
		t.Errorf("Expected clock reset, got %s", s.Elapsed())
	}
	if s.Repetition() != 1 {
		t.Errorf("Expected repetition 1, got %d", s.Repetition())
	}
}

func TestRepeatedRootScenario(t *testing.T) {
	s, clock := newTestSession(t, note.NewSet(note.Two, note.Three), 2)
	start := s.Exercise()

	clock.Advance(s.Timing().Cycle())
	if !s.AdvanceIfDue(s.Elapsed()) {
		t.Fatal("Expected advance at cycle end")
	}
	second := s.Exercise()
	if second.Root != start.Root {
		t.Errorf("Expected root %s to repeat, got %s", start.Root, second.Root)
	}
	if second.Relative == start.Relative {
		t.Errorf("Expected relative to change from %s", start.Relative)
	}
	if s.Repetition() != 2 {
		t.Errorf("Expected repetition 2, got %d", s.Repetition())
	}

	clock.Advance(s.Timing().Cycle() + time.Millisecond)
	s.Tick()
	third := s.Exercise()
	if third.Root == second.Root {
		t.Errorf("Expected root to change from %s", second.Root)
	}
	if s.Repetition() != 1 {
		t.Errorf("Expected repetition 1, got %d", s.Repetition())
	}
}

func TestAdvanceIfDueBeforeCycleEnd(t *testing.T) {
	s, _ := newTestSession(t, note.NewSet(note.Two, note.Six), 1)
	before := s.Exercise()

	if s.AdvanceIfDue(s.Timing().Cycle() - time.Nanosecond) {
		t.Error("Expected no advance before cycle end")
	}
	if s.Exercise() != before {
		t.Error("Expected exercise unchanged")
	}
}

func TestAdvanceProperties(t *testing.T) {
	s, _ := newTestSession(t, note.NewSet(note.All()...), 3)

	for i := 0; i < 2000; i++ {
		prev := s.Exercise()
		prevRep := s.Repetition()
		s.Advance()
		next := s.Exercise()

		if next.Relative == prev.Relative {
			t.Fatalf("Step %d: relative %s repeated", i, next.Relative)
		}
		if prevRep < 3 {
			if next.Root != prev.Root {
				t.Fatalf("Step %d: root changed mid-block at repetition %d", i, prevRep)
			}
			if s.Repetition() != prevRep+1 {
				t.Fatalf("Step %d: expected repetition %d, got %d", i, prevRep+1, s.Repetition())
			}
		} else {
			if next.Root == prev.Root {
				t.Fatalf("Step %d: root %s repeated across blocks", i, next.Root)
			}
			if s.Repetition() != 1 {
				t.Fatalf("Step %d: expected repetition 1, got %d", i, s.Repetition())
			}
		}
		if next.Interval != note.RelativeToAbsolute(next.Root, next.Relative) {
			t.Fatalf("Step %d: interval %s does not match pair", i, next.Interval)
		}
	}
}

func TestSingleMemberSetTerminates(t *testing.T) {
	s, _ := newTestSession(t, note.NewSet(note.Seven), 4)
	for i := 0; i < 100; i++ {
		s.Advance()
		if s.Exercise().Relative != note.Seven {
			t.Fatalf("Expected relative Seven, got %s", s.Exercise().Relative)
		}
	}
}

func TestVoiceCursorRestartsPerExercise(t *testing.T) {
	store := voice.NewStore(0, nil)
	for key := voice.MinKey; key <= voice.MaxKey; key++ {
		store.Put(key, voice.NewClip([]float32{float32(key), float32(key)}, 48000))
	}

	s, _ := newTestSession(t, note.NewSet(note.Two), 2, WithVoices(store))

	want := float32(s.Exercise().VoiceKey())
	if v := s.NextVoiceSample(); v != want {
		t.Errorf("Expected %f, got %f", want, v)
	}
	s.NextVoiceSample()
	if v := s.NextVoiceSample(); v != 0 {
		t.Errorf("Expected exhausted clip to be silent, got %f", v)
	}

	s.Advance()
	want = float32(s.Exercise().VoiceKey())
	if v := s.NextVoiceSample(); v != want {
		t.Errorf("Expected fresh clip after advance, got %f want %f", v, want)
	}
}

func TestVoiceWithoutSourceIsSilent(t *testing.T) {
	s, _ := newTestSession(t, note.NewSet(note.Two), 1)
	if v := s.NextVoiceSample(); v != 0 {
		t.Errorf("Expected silence, got %f", v)
	}
}

func TestOnAdvanceCallback(t *testing.T) {
	var calls []int
	s, _ := newTestSession(t, note.NewSet(note.Two, note.Four), 2,
		OnAdvance(func(prev, next Exercise, repetition int) {
			calls = append(calls, repetition)
		}))

	s.Advance()
	s.Advance()
	s.Advance()

	expected := []int{2, 1, 2}
	if len(calls) != len(expected) {
		t.Fatalf("Expected %d calls, got %d", len(expected), len(calls))
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("Call %d: expected repetition %d, got %d", i, expected[i], calls[i])
		}
	}
}

func TestSampleClockWrap(t *testing.T) {
	s, _ := newTestSession(t, note.NewSet(note.Two), 1, WithPhaseWrap(4))
	for i := 0; i < 5; i++ {
		s.StepSampleClock()
	}
	if s.SampleClock() != 1 {
		t.Errorf("Expected wrapped clock 1, got %f", s.SampleClock())
	}

	unwrapped, _ := newTestSession(t, note.NewSet(note.Two), 1)
	for i := 0; i < 5; i++ {
		unwrapped.StepSampleClock()
	}
	if unwrapped.SampleClock() != 5 {
		t.Errorf("Expected unwrapped clock 5, got %f", unwrapped.SampleClock())
	}
}

func TestSampleClockSurvivesAdvance(t *testing.T) {
	s, _ := newTestSession(t, note.NewSet(note.Two), 1)
	s.StepSampleClock()
	s.StepSampleClock()
	s.Advance()
	if s.SampleClock() != 2 {
		t.Errorf("Expected sample clock untouched by advance, got %f", s.SampleClock())
	}
}

func TestFrequencies(t *testing.T) {
	s, _ := newTestSession(t, note.NewSet(note.Two), 1)
	e := s.Exercise()
	if s.RootFrequency() != note.RootFrequency(e.Root) {
		t.Errorf("Expected root frequency of %s", e.Root)
	}
	if s.IntervalFrequency() != note.RelativeFrequency(e.Interval) {
		t.Errorf("Expected interval frequency of %s", e.Interval)
	}
}
