// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) hook(event string, err error) HookFunc {
	return func(context.Context) error {
		r.record(event)
		return err
	}
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestWithLifecycle(t *testing.T) {
	t.Run("will run post run hooks in order after the runtime", func(t *testing.T) {
		rec := &recorder{}
		builder := WithLifecycle(func(ctx context.Context, lc *Lifecycle) (Runtime, error) {
			lc.OnPostRun(rec.hook("post 1", nil))
			lc.OnPostRun(rec.hook("post 2", nil))
			return RuntimeFunc(func(ctx context.Context) error {
				rec.record("run")
				return nil
			}), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		err = rt.Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"run", "post 1", "post 2"}, rec.Events())
	})

	t.Run("will run shutdown hooks before the runtime observes cancellation", func(t *testing.T) {
		rec := &recorder{}
		builder := WithLifecycle(func(ctx context.Context, lc *Lifecycle) (Runtime, error) {
			lc.OnShutdown(rec.hook("shutdown", nil))
			lc.OnPostRun(rec.hook("post", nil))
			return RuntimeFunc(func(ctx context.Context) error {
				rec.record("running")
				<-ctx.Done()
				rec.record("stopping")
				return nil
			}), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			errCh <- rt.Run(ctx)
		}()

		require.Eventually(t, func() bool {
			return len(rec.Events()) == 1
		}, time.Second, 5*time.Millisecond)

		cancel()
		require.NoError(t, <-errCh)
		require.Equal(t, []string{"running", "shutdown", "stopping", "post"}, rec.Events())
	})

	t.Run("will skip shutdown hooks if the runtime returns on its own", func(t *testing.T) {
		rec := &recorder{}
		builder := WithLifecycle(func(ctx context.Context, lc *Lifecycle) (Runtime, error) {
			lc.OnShutdown(rec.hook("shutdown", nil))
			return RuntimeFunc(func(ctx context.Context) error {
				rec.record("run")
				return nil
			}), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		err = rt.Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"run"}, rec.Events())
	})

	t.Run("will run every hook and join all errors", func(t *testing.T) {
		runErr := errors.New("run failed")
		hook1Err := errors.New("hook 1 failed")
		hook2Err := errors.New("hook 2 failed")

		rec := &recorder{}
		builder := WithLifecycle(func(ctx context.Context, lc *Lifecycle) (Runtime, error) {
			lc.OnPostRun(rec.hook("post 1", hook1Err))
			lc.OnPostRun(rec.hook("post 2", nil))
			lc.OnPostRun(rec.hook("post 3", hook2Err))
			return RuntimeFunc(func(ctx context.Context) error {
				return runErr
			}), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		err = rt.Run(context.Background())
		require.ErrorIs(t, err, runErr)
		require.ErrorIs(t, err, hook1Err)
		require.ErrorIs(t, err, hook2Err)
		require.Equal(t, []string{"post 1", "post 2", "post 3"}, rec.Events())
	})

	t.Run("will give hooks a context which is not cancelled", func(t *testing.T) {
		type ctxKey struct{}

		var hookErr error
		var value any
		builder := WithLifecycle(func(ctx context.Context, lc *Lifecycle) (Runtime, error) {
			lc.OnPostRun(func(ctx context.Context) error {
				hookErr = ctx.Err()
				value = ctx.Value(ctxKey{})
				return nil
			})
			return RuntimeFunc(func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			}), nil
		})

		rt, err := builder.Build(context.Background())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "value"))
		cancel()

		err = rt.Run(ctx)
		require.NoError(t, err)
		require.NoError(t, hookErr)
		require.Equal(t, "value", value)
	})

	t.Run("will return the build error", func(t *testing.T) {
		buildErr := errors.New("build failed")
		builder := WithLifecycle(func(ctx context.Context, lc *Lifecycle) (Runtime, error) {
			return nil, buildErr
		})

		_, err := builder.Build(context.Background())
		require.ErrorIs(t, err, buildErr)
	})
}
