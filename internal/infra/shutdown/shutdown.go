package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Hook is a cleanup step. It should give up when ctx is done.
type Hook func(context.Context) error

type namedHook struct {
	name string
	fn   Hook
}

// Handler collects cleanup hooks and runs them once, newest first.
type Handler struct {
	timeout time.Duration
	mu      sync.Mutex
	hooks   []namedHook
	once    sync.Once
	err     error
	done    chan struct{}
}

// NewHandler creates a handler whose hooks share a budget of timeout.
func NewHandler(timeout time.Duration) *Handler {
	return &Handler{
		timeout: timeout,
		hooks:   make([]namedHook, 0),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a hook. Hooks are called in reverse order of
// registration, so resources close before what they depend on.
func (h *Handler) OnShutdown(name string, hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, namedHook{name: name, fn: hook})
}

// OnClose registers a plain Close method as a hook.
func (h *Handler) OnClose(name string, closeFn func() error) {
	h.OnShutdown(name, func(context.Context) error { return closeFn() })
}

// Run executes the hooks. Only the first call does any work; later calls
// return the same result. Every hook runs even if an earlier one fails.
func (h *Handler) Run() error {
	h.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		h.mu.Lock()
		hooks := make([]namedHook, len(h.hooks))
		copy(hooks, h.hooks)
		h.mu.Unlock()

		var errs []error
		for i := len(hooks) - 1; i >= 0; i-- {
			if err := hooks[i].fn(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", hooks[i].name, err))
			}
		}
		h.err = errors.Join(errs...)
		close(h.done)
	})
	return h.err
}

// Wait blocks until SIGINT, SIGTERM or the end of ctx, then runs the hooks.
func (h *Handler) Wait(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-ctx.Done():
	case <-h.done:
	}
	return h.Run()
}

// Done is closed once the hooks have run.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}
