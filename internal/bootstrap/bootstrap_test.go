package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_Run(t *testing.T) {
	t.Run("hooks run after run returns", func(t *testing.T) {
		app := New(0)
		called := false
		app.AddShutdownHook(func(ctx context.Context) error {
			called = true
			return nil
		})
		err := app.Run(context.Background(), func(ctx context.Context) error {
			return nil
		})
		assert.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("run error is joined with hook errors", func(t *testing.T) {
		app := New(time.Second)
		runErr := errors.New("run failed")
		hookErr := errors.New("close failed")
		app.AddShutdownHook(func(ctx context.Context) error {
			return hookErr
		})
		err := app.Run(context.Background(), func(ctx context.Context) error {
			return runErr
		})
		assert.ErrorIs(t, err, runErr)
		assert.ErrorIs(t, err, hookErr)
	})

	t.Run("hooks run in reverse order on cancel", func(t *testing.T) {
		app := New(time.Second)
		var mu sync.Mutex
		var order []string
		for _, name := range []string{"database", "manager", "server"} {
			app.AddShutdownHook(func(ctx context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, name)
				return nil
			})
		}

		ctx, cancel := context.WithCancel(context.Background())
		err := app.Run(ctx, func(ctx context.Context) error {
			cancel()
			<-ctx.Done()
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"server", "manager", "database"}, order)
	})

	t.Run("hooks get a live context with a deadline", func(t *testing.T) {
		app := New(time.Minute)
		app.AddShutdownHook(func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return ctx.Err()
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := app.Run(ctx, func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		})
		assert.NoError(t, err)
	})

	t.Run("hooks run once", func(t *testing.T) {
		app := New(time.Second)
		calls := 0
		app.AddShutdownHook(func(ctx context.Context) error {
			calls++
			return nil
		})
		for range 2 {
			require.NoError(t, app.Run(context.Background(), func(ctx context.Context) error { return nil }))
		}
		assert.Equal(t, 1, calls)
	})
}
