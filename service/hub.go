package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// Hub starts services in dependency order and reports their health
type Hub struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	logger  *zap.Logger
}

type entry struct {
	svc   Service
	state State
	err   error
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{entries: make(map[string]*entry), logger: logger}
}

// Register adds a service; names must be unique and registration closes once Start has run
func (h *Hub) Register(svc Service) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.order != nil {
		return fmt.Errorf("register %s: hub already started", svc.Name())
	}
	if _, dup := h.entries[svc.Name()]; dup {
		return fmt.Errorf("register %s: duplicate service name", svc.Name())
	}
	h.entries[svc.Name()] = &entry{svc: svc, state: StatePending}
	return nil
}

// Start resolves the dependency graph and starts every service
// A failing service stops the ones already running and the error is returned
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.order != nil {
		return fmt.Errorf("hub already started")
	}
	order, err := h.resolve()
	if err != nil {
		return err
	}
	h.order = order

	for i, name := range order {
		if err := ctx.Err(); err != nil {
			h.rollback(order[:i])
			return err
		}

		e := h.entries[name]
		if err := e.svc.Start(ctx); err != nil {
			e.state, e.err = StateFailed, err
			h.logger.Error("service failed to start", zap.String("service", name), zap.Error(err))
			h.rollback(order[:i])
			return fmt.Errorf("start %s: %w", name, err)
		}
		e.state = StateRunning
		h.logger.Debug("service started", zap.String("service", name))
	}
	return nil
}

// Stop stops running services in reverse start order; stop errors are logged
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rollback(h.order)
}

func (h *Hub) rollback(started []string) {
	for i := len(started) - 1; i >= 0; i-- {
		e := h.entries[started[i]]
		if e.state != StateRunning {
			continue
		}
		if err := e.svc.Stop(); err != nil {
			h.logger.Warn("service stop failed", zap.String("service", started[i]), zap.Error(err))
		}
		e.state = StateStopped
	}
}

// Health returns every service's status in start order, or by name before Start
// Running services report for themselves; the hub's own state is used otherwise
func (h *Hub) Health() []Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := h.order
	if names == nil {
		names = h.sortedNames()
	}

	out := make([]Status, 0, len(names))
	for _, name := range names {
		e := h.entries[name]
		if e.state == StateRunning {
			st := e.svc.Status()
			st.Name = name
			out = append(out, st)
			continue
		}
		st := Status{Name: name, State: e.state}
		if e.err != nil {
			st.Detail = e.err.Error()
		}
		out = append(out, st)
	}
	return out
}

// Healthy reports whether no service is failed or degraded
func Healthy(statuses []Status) bool {
	for _, st := range statuses {
		if st.State == StateFailed || st.State == StateDegraded {
			return false
		}
	}
	return true
}

// resolve orders services depth-first so each follows its dependencies
// Siblings are visited by name for a stable order
func (h *Hub) resolve() ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	mark := make(map[string]int, len(h.entries))
	order := make([]string, 0, len(h.entries))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch mark[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle: %v", append(path, name))
		}
		mark[name] = visiting

		deps := slices.Clone(h.entries[name].svc.Dependencies())
		slices.Sort(deps)
		for _, dep := range deps {
			if _, ok := h.entries[dep]; !ok {
				return fmt.Errorf("%s depends on unregistered service %s", name, dep)
			}
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}

		mark[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range h.sortedNames() {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (h *Hub) sortedNames() []string {
	names := make([]string, 0, len(h.entries))
	for name := range h.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
