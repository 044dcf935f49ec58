package voice

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/lixenwraith/tonestep/metrics"
)

// Key range used by the answer recordings, one per scale degree
const (
	MinKey = 1
	MaxKey = 12
)

// Cursor reads a clip from the start exactly once
// A cursor is owned by a single reader and is not safe for concurrent use
type Cursor struct {
	samples []float32
	pos     int
}

// Next returns the next sample, false once the clip is exhausted
func (c *Cursor) Next() (float32, bool) {
	if c == nil || c.pos >= len(c.samples) {
		return 0, false
	}
	s := c.samples[c.pos]
	c.pos++
	return s, true
}

// Remaining returns the number of unread samples
func (c *Cursor) Remaining() int {
	if c == nil {
		return 0
	}
	return len(c.samples) - c.pos
}

// Store holds decoded answer recordings keyed by scale degree
// Clips are immutable once loaded; each key also carries a store-owned cursor read by Next
type Store struct {
	mu         sync.RWMutex
	clips      map[int]*Clip
	cursors    map[int]*Cursor
	sampleRate int
	logger     *zap.Logger
}

// NewStore creates an empty store; clips are resampled to sampleRate when it is positive
func NewStore(sampleRate int, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		clips:      make(map[int]*Clip),
		cursors:    make(map[int]*Cursor),
		sampleRate: sampleRate,
		logger:     logger,
	}
}

// Load decodes data and inserts or replaces the clip for key
func (s *Store) Load(key int, data []byte) error {
	clip, err := Decode(data)
	if err != nil {
		return fmt.Errorf("voice key %d: %w", key, err)
	}
	s.Put(key, clip)
	return nil
}

// Put inserts an already decoded clip, resetting the key's cursor
func (s *Store) Put(key int, clip *Clip) {
	clip = clip.Resample(s.sampleRate)

	s.mu.Lock()
	s.clips[key] = clip
	s.cursors[key] = &Cursor{samples: clip.samples}
	s.mu.Unlock()
}

// LoadAll loads every entry, skipping and logging the ones that fail to decode
// Returns the number of clips loaded
func (s *Store) LoadAll(data map[int][]byte) int {
	keys := make([]int, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	loaded := 0
	for _, key := range keys {
		if err := s.Load(key, data[key]); err != nil {
			metrics.VoiceDecodeErrorsTotal.Inc()
			s.logger.Warn("skipping voice sample", zap.Int("key", key), zap.Error(err))
			continue
		}
		loaded++
	}
	return loaded
}

// LoadSequence loads clips keyed by position, the first entry becoming key 1
func (s *Store) LoadSequence(data [][]byte) int {
	m := make(map[int][]byte, len(data))
	for i, d := range data {
		m[i+1] = d
	}
	return s.LoadAll(m)
}

// LoadDir loads 1.wav through 12.wav from dir; missing files are logged and skipped
func (s *Store) LoadDir(dir string) int {
	data := make(map[int][]byte, MaxKey)
	for key := MinKey; key <= MaxKey; key++ {
		path := filepath.Join(dir, fmt.Sprintf("%d.wav", key))
		b, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("voice sample unavailable", zap.String("path", path), zap.Error(err))
			continue
		}
		data[key] = b
	}
	return s.LoadAll(data)
}

// Next returns the next sample of key's store-owned cursor
// This is the per-key read API for hosts; sessions read through Cursor so each exercise restarts its clip
// Exhaustion is permanent until the key is loaded again
func (s *Store) Next(key int) (float32, bool) {
	s.mu.Lock()
	c := s.cursors[key]
	v, ok := c.Next()
	s.mu.Unlock()
	return v, ok
}

// Cursor returns a fresh cursor over key's clip
// An empty cursor is returned for keys without a clip, so playback stays silent
func (s *Store) Cursor(key int) *Cursor {
	s.mu.RLock()
	clip := s.clips[key]
	s.mu.RUnlock()
	if clip == nil {
		return &Cursor{}
	}
	return &Cursor{samples: clip.samples}
}

// Has reports whether a clip is loaded for key
func (s *Store) Has(key int) bool {
	s.mu.RLock()
	_, ok := s.clips[key]
	s.mu.RUnlock()
	return ok
}

// Keys returns the loaded keys in ascending order
func (s *Store) Keys() []int {
	s.mu.RLock()
	keys := make([]int, 0, len(s.clips))
	for k := range s.clips {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Ints(keys)
	return keys
}

// SampleRate returns the rate clips are stored at, 0 when clips keep their own rate
func (s *Store) SampleRate() int {
	return s.sampleRate
}
