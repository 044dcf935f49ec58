package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/tonestep/service"
)

// shutdownTimeout bounds graceful HTTP shutdown
const shutdownTimeout = 5 * time.Second

// Service runs a Server on a listen address as a service.Service
type Service struct {
	server *Server
	listen string
	log    *zap.Logger

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewService creates the HTTP bridge service
func NewService(server *Server, listen string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{server: server, listen: listen, log: log}
}

// Name implements service.Service
func (s *Service) Name() string {
	return "server"
}

// Dependencies implements service.Service
func (s *Service) Dependencies() []string {
	return []string{"player"}
}

// Start implements service.Service
// The listener is bound synchronously so address errors surface here
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http != nil {
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.listen)
	if err != nil {
		return err
	}

	s.listener = ln
	s.http = &http.Server{Handler: s.server, ReadHeaderTimeout: 10 * time.Second}
	s.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server failed", zap.Error(err))
		}
	}(s.http, s.done)

	s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, empty before Start
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Status implements service.Service
func (s *Service) Status() service.Status {
	addr := s.Addr()
	if addr == "" {
		return service.Status{State: service.StateStopped}
	}
	return service.Status{State: service.StateRunning, Detail: "listening on " + addr}
}

// Stop implements service.Service
func (s *Service) Stop() error {
	s.mu.Lock()
	srv, done := s.http, s.done
	s.http, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	<-done
	return err
}
