package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lixenwraith/tonestep/audio"
	"github.com/lixenwraith/tonestep/note"
	"github.com/lixenwraith/tonestep/service"
)

// Service runs the Manager inside a service.Hub
// Device failures at autostart degrade the service instead of failing startup
type Service struct {
	manager     *Manager
	notes       note.Set
	repetitions int
	autostart   bool

	mu        sync.Mutex
	deviceErr error
}

// NewService creates a player service; autostart begins a session on Start
func NewService(manager *Manager, notes note.Set, repetitions int, autostart bool) *Service {
	return &Service{
		manager:     manager,
		notes:       notes,
		repetitions: repetitions,
		autostart:   autostart,
	}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "player"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return []string{"voices"}
}

// Start implements service.Service; bad configuration is returned, device errors are kept for Status
func (s *Service) Start(ctx context.Context) error {
	if !s.autostart {
		return nil
	}
	_, err := s.manager.Start(s.notes, s.repetitions)
	if errors.Is(err, audio.ErrDevice) {
		s.mu.Lock()
		s.deviceErr = err
		s.mu.Unlock()
		return nil
	}
	return err
}

// Stop implements service.Service
func (s *Service) Stop() error {
	s.manager.Stop()
	return nil
}

// Status implements service.Service
func (s *Service) Status() service.Status {
	if h := s.manager.Current(); h != nil {
		return service.Status{State: service.StateRunning, Detail: "session " + h.ID()}
	}
	if err := s.manager.LastError(); err != nil {
		return service.Status{State: service.StateDegraded, Detail: fmt.Sprintf("session ended: %v", err)}
	}
	if err := s.DeviceError(); err != nil {
		return service.Status{State: service.StateDegraded, Detail: err.Error()}
	}
	return service.Status{State: service.StateRunning, Detail: "idle"}
}

// DeviceError returns the device failure seen at autostart, if any
func (s *Service) DeviceError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceErr
}
