package service

import "context"

// State is the health of one service as reported to hosts
type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StateDegraded State = "degraded"
	StateFailed   State = "failed"
	StateStopped  State = "stopped"
)

// Status is a service's name, state and a short human readable detail
type Status struct {
	Name   string `json:"name"`
	State  State  `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// Service is a long-lived part of a tonestep process: the voice store, the player, the HTTP bridge
// Start runs after every dependency has started; Stop runs in reverse order and must be idempotent
type Service interface {
	Name() string
	Dependencies() []string
	Start(ctx context.Context) error
	Stop() error

	// Status is only consulted while the service is started
	Status() Status
}
