package exercise

import (
	"testing"
	"time"
)

func TestDefaultTimingLayout(t *testing.T) {
	tm := DefaultTiming()
	if err := tm.Validate(); err != nil {
		t.Fatalf("Expected default timing to validate: %v", err)
	}
	if tm.Cycle() != 20*time.Second {
		t.Errorf("Expected 20s cycle, got %s", tm.Cycle())
	}

	c := tm.Challenge()
	if c.FadeInStart != 2*time.Second || c.End != 10*time.Second {
		t.Errorf("Expected challenge [2s,10s), got [%s,%s)", c.FadeInStart, c.End)
	}
	a := tm.Answer()
	if a.FadeInStart != 12*time.Second || a.End != 20*time.Second {
		t.Errorf("Expected answer [12s,20s), got [%s,%s)", a.FadeInStart, a.End)
	}
}

func TestTimingValidate(t *testing.T) {
	neg := DefaultTiming()
	neg.FadeIn = -time.Second
	if err := neg.Validate(); err == nil {
		t.Error("Expected negative duration to fail")
	}

	empty := Timing{}
	if err := empty.Validate(); err == nil {
		t.Error("Expected zero-length cycle to fail")
	}

	overlap := DefaultTiming()
	overlap.ChallengeStart = 13 * time.Second
	if err := overlap.Validate(); err == nil {
		t.Error("Expected overlapping relative windows to fail")
	}

	adjacent := DefaultTiming()
	adjacent.AnswerStart = 10 * time.Second
	if err := adjacent.Validate(); err != nil {
		t.Errorf("Expected adjacent windows to pass: %v", err)
	}
}
