package orchestrator

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrAlreadyRunning = errors.New("evaluation is already running")
	ErrShuttingDown   = errors.New("orchestrator is shutting down")
)

// Registry owns the goroutines running evaluations, one per id at most.
type Registry struct {
	mu       sync.Mutex
	running  map[uuid.UUID]chan struct{}
	wg       sync.WaitGroup
	draining bool
}

func NewRegistry() *Registry {
	return &Registry{running: make(map[uuid.UUID]chan struct{})}
}

// Go runs fn in its own goroutine under id. It refuses a second run for an id
// which is still live.
func (r *Registry) Go(id uuid.UUID, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.draining {
		return ErrShuttingDown
	}
	if _, found := r.running[id]; found {
		return ErrAlreadyRunning
	}

	done := make(chan struct{})
	r.running[id] = done
	r.wg.Add(1)

	go func() {
		defer func() {
			r.mu.Lock()
			delete(r.running, id)
			r.mu.Unlock()
			close(done)
			r.wg.Done()
		}()
		fn()
	}()

	return nil
}

// Done returns a channel closed when the run of id is over. The channel is
// already closed when nothing runs under id.
func (r *Registry) Done(id uuid.UUID) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	if done, found := r.running[id]; found {
		return done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Wait blocks until the run of id is over or ctx is done.
func (r *Registry) Wait(ctx context.Context, id uuid.UUID) error {
	select {
	case <-r.Done(id):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) Running(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, found := r.running[id]
	return found
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// Shutdown refuses new runs and waits for the live ones until ctx is done.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.draining = true
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
