package voice

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/lixenwraith/tonestep/service"
)

// Service loads answer recordings from a directory when the hub starts
// A missing or empty directory leaves answers silent and marks the service degraded
type Service struct {
	store  *Store
	dir    string
	logger *zap.Logger
	loaded atomic.Int64
}

// NewService creates a voice service filling store from dir
func NewService(store *Store, dir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, dir: dir, logger: logger}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "voices"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return nil
}

// Start implements service.Service
func (s *Service) Start(ctx context.Context) error {
	if s.dir == "" {
		s.logger.Info("no voice directory configured, answers will be silent")
		return nil
	}
	n := s.store.LoadDir(s.dir)
	s.loaded.Store(int64(n))
	s.logger.Info("voice samples loaded", zap.String("dir", s.dir), zap.Int("count", n))
	return nil
}

// Stop implements service.Service
func (s *Service) Stop() error {
	return nil
}

// Status implements service.Service
// Clips uploaded after start count toward the total
func (s *Service) Status() service.Status {
	keys := len(s.store.Keys())
	switch {
	case keys > 0:
		return service.Status{State: service.StateRunning, Detail: fmt.Sprintf("%d of %d clips", keys, MaxKey)}
	case s.dir == "":
		return service.Status{State: service.StateRunning, Detail: "no voice directory"}
	default:
		return service.Status{State: service.StateDegraded, Detail: "no clips found in " + s.dir}
	}
}

// Loaded returns how many clips were loaded from the directory at start
func (s *Service) Loaded() int {
	return int(s.loaded.Load())
}
