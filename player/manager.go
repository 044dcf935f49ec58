package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lixenwraith/tonestep/audio"
	"github.com/lixenwraith/tonestep/constant"
	"github.com/lixenwraith/tonestep/exercise"
	"github.com/lixenwraith/tonestep/metrics"
	"github.com/lixenwraith/tonestep/note"
	"github.com/lixenwraith/tonestep/voice"
)

// Options configures sessions started by a Manager
type Options struct {
	Device     audio.Device
	SampleRate int
	Timing     exercise.Timing
	Mix        audio.Mix
	WrapPhase  bool
	Voices     *voice.Store
	Logger     *zap.Logger
}

// Manager owns at most one running session
type Manager struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	current *Handle
}

// NewManager creates a manager; nil Device falls back to the null device
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Device == nil {
		opts.Device = &audio.NullDevice{}
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = constant.AudioSampleRate
	}
	if opts.Timing == (exercise.Timing{}) {
		opts.Timing = exercise.DefaultTiming()
	}
	if opts.Mix == (audio.Mix{}) {
		opts.Mix = audio.DefaultMix()
	}
	if opts.Voices == nil {
		opts.Voices = voice.NewStore(opts.SampleRate, opts.Logger)
	}
	return &Manager{opts: opts, logger: opts.Logger}
}

// Voices returns the store sessions read answer clips from
func (m *Manager) Voices() *voice.Store {
	return m.opts.Voices
}

// LoadVoiceSamples bulk-loads answer clips, skipping entries that fail to decode
func (m *Manager) LoadVoiceSamples(samples map[int][]byte) int {
	return m.opts.Voices.LoadAll(samples)
}

// Start stops any running session, waits for it to exit, then starts a new one
// Configuration and device errors leave no session running
func (m *Manager) Start(notes note.Set, repetitions int) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.Stop()
		m.current = nil
	}

	id := uuid.NewString()
	logger := m.logger.With(zap.String("session", id))

	opts := []exercise.Option{
		exercise.WithTiming(m.opts.Timing),
		exercise.WithVoices(m.opts.Voices),
		exercise.OnAdvance(func(prev, next exercise.Exercise, repetition int) {
			change := metrics.ChangeRelative
			if next.Root != prev.Root {
				change = metrics.ChangeRoot
			}
			metrics.ExercisesTotal.WithLabelValues(change).Inc()
			logger.Debug("exercise advanced",
				zap.Stringer("root", next.Root),
				zap.Stringer("relative", next.Relative),
				zap.Stringer("interval", next.Interval),
				zap.Int("repetition", repetition))
		}),
	}
	if m.opts.WrapPhase {
		opts = append(opts, exercise.WithPhaseWrap(m.opts.SampleRate))
	}

	session, err := exercise.New(notes, repetitions, opts...)
	if err != nil {
		metrics.SessionStartFailuresTotal.Inc()
		return nil, err
	}

	h := &Handle{
		id:          id,
		notes:       session.Notes(),
		repetitions: repetitions,
		started:     time.Now(),
		renderer:    audio.NewRenderer(session, m.opts.SampleRate, m.opts.Mix),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger,
	}

	ready := make(chan error, 1)
	go h.run(m.opts.Device, m.opts.SampleRate, ready)
	if err := <-ready; err != nil {
		<-h.done
		metrics.SessionStartFailuresTotal.Inc()
		logger.Error("session failed to start", zap.String("device", m.opts.Device.Name()), zap.Error(err))
		return nil, err
	}

	m.current = h
	metrics.SessionsStartedTotal.Inc()
	logger.Info("session started",
		zap.Strings("notes", note.NewSet(h.notes...).Labels()),
		zap.Int("repetitions", repetitions),
		zap.String("device", m.opts.Device.Name()))
	return h, nil
}

// Stop stops the running session, if any, and waits for it to exit
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.Stop()
		m.current = nil
	}
}

// LastError returns the stream failure that ended the most recent session, if any
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	return m.current.Err()
}

// Current returns the running session, nil when none is running
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil || !m.current.Running() {
		return nil
	}
	return m.current
}

// Handle controls one running session
type Handle struct {
	id          string
	notes       []note.Note
	repetitions int
	started     time.Time
	renderer    *audio.Renderer
	logger      *zap.Logger

	once sync.Once
	stop chan struct{}
	done chan struct{}

	// err is written by run before done closes
	err error
}

// run owns the output stream for the session's lifetime
// ready receives nil once audio is flowing, or the build/play error
func (h *Handle) run(dev audio.Device, sampleRate int, ready chan<- error) {
	defer close(h.done)

	stream, err := dev.BuildOutputStream(audio.Channels, sampleRate, h.renderer.Render)
	if err != nil {
		metrics.DeviceErrorsTotal.WithLabelValues(dev.Name()).Inc()
		if !errors.Is(err, audio.ErrDevice) {
			err = fmt.Errorf("%w: %w", audio.ErrDevice, err)
		}
		ready <- fmt.Errorf("build output stream: %w", err)
		return
	}
	if err := stream.Play(); err != nil {
		stream.Close()
		metrics.DeviceErrorsTotal.WithLabelValues(dev.Name()).Inc()
		ready <- fmt.Errorf("%w: play: %v", audio.ErrDevice, err)
		return
	}

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()
	ready <- nil

	var streamErr <-chan error
	if r, ok := stream.(audio.StreamErrors); ok {
		streamErr = r.Errors()
	}

	select {
	case <-h.stop:
	case err := <-streamErr:
		h.err = err
		h.logger.Error("output stream failed, ending session", zap.Error(err))
	}

	if err := stream.Close(); err != nil {
		h.logger.Warn("output stream close failed", zap.Error(err))
	}
	h.logger.Info("session stopped", zap.Duration("uptime", time.Since(h.started)))
}

// ID returns the session identifier
func (h *Handle) ID() string {
	return h.id
}

// Notes returns the allowed relative notes
func (h *Handle) Notes() []note.Note {
	out := make([]note.Note, len(h.notes))
	copy(out, h.notes)
	return out
}

// Repetitions returns the repetitions per root
func (h *Handle) Repetitions() int {
	return h.repetitions
}

// Stop signals the session and waits for its stream to close; safe to call repeatedly
func (h *Handle) Stop() {
	h.once.Do(func() { close(h.stop) })
	<-h.done
}

// Done is closed once the session has fully stopped
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the stream failure that ended the session, nil while running or after Stop
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Running reports whether the session is still producing audio
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Snapshot returns the exercise state as of the last rendered buffer
func (h *Handle) Snapshot() exercise.Snapshot {
	return h.renderer.Snapshot()
}
