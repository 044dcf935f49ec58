package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/tonestep/audio"
	"github.com/lixenwraith/tonestep/constant"
	"github.com/lixenwraith/tonestep/exercise"
	"github.com/lixenwraith/tonestep/note"
)

type Config struct {
	Audio    AudioConfig     `yaml:"audio"`
	Timing   exercise.Timing `yaml:"timing"`
	Mix      audio.Mix       `yaml:"mix"`
	Exercise ExerciseConfig  `yaml:"exercise"`
	Voices   VoicesConfig    `yaml:"voices"`
	Log      LogConfig       `yaml:"log"`
	Server   ServerConfig    `yaml:"server"`
}

type AudioConfig struct {
	Backend    string        `yaml:"backend"`
	SampleRate int           `yaml:"sample_rate"`
	Buffer     time.Duration `yaml:"buffer"`
	WrapPhase  bool          `yaml:"wrap_phase"`
}

type ExerciseConfig struct {
	Notes       []string `yaml:"notes"`
	Repetitions int      `yaml:"repetitions"`
}

type VoicesConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// NoteSet parses the configured labels
func (e ExerciseConfig) NoteSet() (note.Set, error) {
	return note.ParseSet(e.Notes)
}

// Default returns the reference configuration
func Default() *Config {
	labels := make([]string, 0, note.Count)
	for _, n := range note.All() {
		labels = append(labels, n.String())
	}

	return &Config{
		Audio: AudioConfig{
			Backend:    audio.BackendNameSpeaker,
			SampleRate: constant.AudioSampleRate,
			Buffer:     constant.AudioBufferDuration,
			WrapPhase:  true,
		},
		Timing: exercise.DefaultTiming(),
		Mix:    audio.DefaultMix(),
		Exercise: ExerciseConfig{
			Notes:       labels,
			Repetitions: constant.MinRepetitions,
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Listen: constant.DefaultListen,
		},
	}
}

// Load reads config from a YAML file over the defaults, then applies environment variable overrides.
// An empty path skips the file. Env vars use the prefix TONESTEP_:
//
//	TONESTEP_BACKEND, TONESTEP_SAMPLE_RATE, TONESTEP_NOTES (comma separated),
//	TONESTEP_REPETITIONS, TONESTEP_VOICES_DIR, TONESTEP_LOG_LEVEL, TONESTEP_LISTEN
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TONESTEP_BACKEND"); v != "" {
		cfg.Audio.Backend = v
	}
	if v := os.Getenv("TONESTEP_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil {
			cfg.Audio.SampleRate = rate
		}
	}
	if v := os.Getenv("TONESTEP_NOTES"); v != "" {
		parts := strings.Split(v, ",")
		notes := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				notes = append(notes, p)
			}
		}
		cfg.Exercise.Notes = notes
	}
	if v := os.Getenv("TONESTEP_REPETITIONS"); v != "" {
		if reps, err := strconv.Atoi(v); err == nil {
			cfg.Exercise.Repetitions = reps
		}
	}
	if v := os.Getenv("TONESTEP_VOICES_DIR"); v != "" {
		cfg.Voices.Dir = v
	}
	if v := os.Getenv("TONESTEP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TONESTEP_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Audio.Backend) {
	case audio.BackendNameSpeaker, audio.BackendNameOto, audio.BackendNamePipe, audio.BackendNameNull:
	default:
		return fmt.Errorf("audio.backend %q is not one of speaker, oto, pipe, null", c.Audio.Backend)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("audio.sample_rate must be within 8000-192000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Buffer <= 0 {
		return fmt.Errorf("audio.buffer must be positive")
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("timing: %w", err)
	}
	if c.Mix.RootAmplitude < 0 || c.Mix.RelativeAmplitude < 0 || c.Mix.ToneMix < 0 {
		return fmt.Errorf("mix amplitudes must not be negative")
	}
	if len(c.Exercise.Notes) == 0 {
		return fmt.Errorf("exercise.notes is required")
	}
	if _, err := c.Exercise.NoteSet(); err != nil {
		return fmt.Errorf("exercise.notes: %w", err)
	}
	if c.Exercise.Repetitions < constant.MinRepetitions || c.Exercise.Repetitions > constant.MaxRepetitions {
		return fmt.Errorf("exercise.repetitions must be within %d-%d, got %d",
			constant.MinRepetitions, constant.MaxRepetitions, c.Exercise.Repetitions)
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	return nil
}
