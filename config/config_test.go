package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lixenwraith/tonestep/note"
)

const validYAML = `
audio:
  backend: "null"
  sample_rate: 44100
  buffer: 50ms
  wrap_phase: false
timing:
  voice_start: 13s
mix:
  tone_mix: 0.4
exercise:
  notes: ["1", "b3", "5"]
  repetitions: 3
voices:
  dir: "/srv/voices"
log:
  level: "debug"
  development: true
server:
  listen: ":9000"
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads over the defaults
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.Backend != "null" {
		t.Errorf("audio.backend = %q, want %q", cfg.Audio.Backend, "null")
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("audio.sample_rate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Buffer != 50*time.Millisecond {
		t.Errorf("audio.buffer = %s, want 50ms", cfg.Audio.Buffer)
	}
	if cfg.Audio.WrapPhase {
		t.Error("audio.wrap_phase = true, want false")
	}
	if cfg.Timing.VoiceStart != 13*time.Second {
		t.Errorf("timing.voice_start = %s, want 13s", cfg.Timing.VoiceStart)
	}
	// Unset timing fields keep their defaults
	if cfg.Timing.AnswerStart != 12*time.Second {
		t.Errorf("timing.answer_start = %s, want 12s", cfg.Timing.AnswerStart)
	}
	if cfg.Mix.ToneMix != 0.4 {
		t.Errorf("mix.tone_mix = %f, want 0.4", cfg.Mix.ToneMix)
	}
	if cfg.Mix.RootAmplitude != 0.8 {
		t.Errorf("mix.root_amplitude = %f, want default 0.8", cfg.Mix.RootAmplitude)
	}
	if cfg.Exercise.Repetitions != 3 {
		t.Errorf("exercise.repetitions = %d, want 3", cfg.Exercise.Repetitions)
	}
	set, err := cfg.Exercise.NoteSet()
	if err != nil {
		t.Fatalf("unexpected note error: %v", err)
	}
	if len(set) != 3 || !set.Contains(note.One) || !set.Contains(note.FlatThree) || !set.Contains(note.Five) {
		t.Errorf("exercise.notes = %v, want [1 b3 5]", set.Labels())
	}
	if cfg.Voices.Dir != "/srv/voices" {
		t.Errorf("voices.dir = %q, want %q", cfg.Voices.Dir, "/srv/voices")
	}
	if cfg.Log.Level != "debug" || !cfg.Log.Development {
		t.Errorf("log = %+v, want debug development", cfg.Log)
	}
	if cfg.Server.Listen != ":9000" {
		t.Errorf("server.listen = %q, want %q", cfg.Server.Listen, ":9000")
	}
}

// TestLoadDefaults verifies an empty path yields the reference tuning
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("audio.sample_rate = %d, want 48000", cfg.Audio.SampleRate)
	}
	if !cfg.Audio.WrapPhase {
		t.Error("audio.wrap_phase = false, want true")
	}
	if len(cfg.Exercise.Notes) != note.Count {
		t.Errorf("exercise.notes has %d entries, want %d", len(cfg.Exercise.Notes), note.Count)
	}
	if cfg.Timing.Cycle() != 20*time.Second {
		t.Errorf("cycle = %s, want 20s", cfg.Timing.Cycle())
	}
}

// TestEnvOverride verifies that TONESTEP_ env vars take precedence over YAML values
func TestEnvOverride(t *testing.T) {
	t.Setenv("TONESTEP_BACKEND", "pipe")
	t.Setenv("TONESTEP_SAMPLE_RATE", "22050")
	t.Setenv("TONESTEP_NOTES", "2, 3 ,,#4")
	t.Setenv("TONESTEP_REPETITIONS", "2")
	t.Setenv("TONESTEP_VOICES_DIR", "/tmp/v")
	t.Setenv("TONESTEP_LOG_LEVEL", "warn")
	t.Setenv("TONESTEP_LISTEN", ":7000")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.Backend != "pipe" {
		t.Errorf("audio.backend = %q, want %q", cfg.Audio.Backend, "pipe")
	}
	if cfg.Audio.SampleRate != 22050 {
		t.Errorf("audio.sample_rate = %d, want 22050", cfg.Audio.SampleRate)
	}
	if got := strings.Join(cfg.Exercise.Notes, " "); got != "2 3 #4" {
		t.Errorf("exercise.notes = %q, want %q", got, "2 3 #4")
	}
	if cfg.Exercise.Repetitions != 2 {
		t.Errorf("exercise.repetitions = %d, want 2", cfg.Exercise.Repetitions)
	}
	if cfg.Voices.Dir != "/tmp/v" {
		t.Errorf("voices.dir = %q, want %q", cfg.Voices.Dir, "/tmp/v")
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want %q", cfg.Log.Level, "warn")
	}
	if cfg.Server.Listen != ":7000" {
		t.Errorf("server.listen = %q, want %q", cfg.Server.Listen, ":7000")
	}
	// Unchanged fields should keep YAML values
	if cfg.Audio.Buffer != 50*time.Millisecond {
		t.Errorf("audio.buffer = %s, want 50ms", cfg.Audio.Buffer)
	}
}

// TestValidation verifies that invalid settings are rejected
func TestValidation(t *testing.T) {
	cases := map[string]string{
		"unknown backend":  "audio:\n  backend: jack\n",
		"low sample rate":  "audio:\n  sample_rate: 100\n",
		"zero buffer":      "audio:\n  buffer: 0s\n",
		"overlapping":      "timing:\n  challenge_start: 13s\n",
		"negative mix":     "mix:\n  tone_mix: -1\n",
		"empty notes":      "exercise:\n  notes: []\n",
		"bad note":         "exercise:\n  notes: [\"9\"]\n",
		"zero repetitions": "exercise:\n  repetitions: 0\n",
		"huge repetitions": "exercise:\n  repetitions: 300\n",
		"missing listen":   "server:\n  listen: \"\"\n",
	}
	for name, content := range cases {
		_, err := Load(writeTemp(t, content))
		if err == nil {
			t.Errorf("%s: expected validation error", name)
			continue
		}
		if !strings.Contains(err.Error(), "config validation") {
			t.Errorf("%s: expected config validation error, got %v", name, err)
		}
	}
}

// TestLoadErrors verifies file and parse failures are reported
func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeTemp(t, "audio: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
