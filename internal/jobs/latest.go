package jobs

import (
	"context"
	"sync"
	"sync/atomic"

	"reawwise/internal/services"
)

// Latest tracks the newest job of one kind. Each Begin supersedes and
// cancels the previous job; only the newest generation is current.
type Latest struct {
	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	inFlight bool
}

// Begin starts a new generation and returns a context for its job.
func (l *Latest) Begin(ctx context.Context) (context.Context, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.gen++
	jobCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.inFlight = true
	return jobCtx, l.gen
}

// Invalidate supersedes the current generation without starting a job.
func (l *Latest) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	l.inFlight = false
}

// Finish reports whether gen is still current and, if so, marks it done.
// Results from a generation that is no longer current should be discarded.
func (l *Latest) Finish(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return false
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.inFlight = false
	return true
}

// InFlight reports whether the current generation has not finished.
func (l *Latest) InFlight() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// Gate admits one job at a time.
type Gate struct {
	busy atomic.Bool
	name string
}

// NewGate names the guarded job for error messages.
func NewGate(name string) *Gate {
	return &Gate{name: name}
}

// Enter claims the gate or returns an ErrBusy error.
func (g *Gate) Enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return services.Wrap(services.ErrBusy, "jobs", g.name, g.name+" already in progress", nil)
	}
	return nil
}

// Leave releases the gate.
func (g *Gate) Leave() { g.busy.Store(false) }

// Busy reports whether the gate is held.
func (g *Gate) Busy() bool { return g.busy.Load() }
