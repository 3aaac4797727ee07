// Package bootstrap runs a long lived process until it is signalled to stop.
package bootstrap

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const defaultShutdownTimeout = 10 * time.Second

// App runs a function and calls the registered shutdown hooks when the
// process is interrupted or the function returns.
type App struct {
	shutdownTimeout time.Duration
	signals         []os.Signal

	mu    sync.Mutex
	hooks []func(ctx context.Context) error
	done  bool
}

// New returns an App that stops on SIGINT or SIGTERM. A zero shutdownTimeout
// means 10 seconds.
func New(shutdownTimeout time.Duration) *App {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &App{
		shutdownTimeout: shutdownTimeout,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// AddShutdownHook registers fn. Hooks run once, last registered first.
func (a *App) AddShutdownHook(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Run calls run and shuts down when ctx is done, a signal arrives or run
// returns. The error of run is joined with the errors of the hooks.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, a.signals...)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancelShutdown()
	return errors.Join(runErr, a.shutdown(shutdownCtx))
}

func (a *App) shutdown(ctx context.Context) error {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return nil
	}
	a.done = true
	hooks := a.hooks
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
