package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerwatch/routerwatch/pkg/logger"
)

type fakeService struct {
	startErr error
	stopErr  error
	stopped  atomic.Bool
}

func (s *fakeService) Start(ctx context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}

	<-ctx.Done()

	return ctx.Err()
}

func (s *fakeService) Stop(context.Context) error {
	s.stopped.Store(true)

	return s.stopErr
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	svc := &fakeService{}
	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, &Options{
			ServiceName: "test",
			Service:     svc,
			Logger:      logger.NewTestLogger(),
		})
	}()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.True(t, svc.stopped.Load())
}

func TestRunReturnsStartError(t *testing.T) {
	startErr := errors.New("listener failed")
	svc := &fakeService{startErr: startErr}

	err := Run(context.Background(), &Options{
		ServiceName: "test",
		Service:     svc,
		Logger:      logger.NewTestLogger(),
	})

	require.ErrorIs(t, err, startErr)
	assert.True(t, svc.stopped.Load(), "Stop still runs after a failed Start")
}

func TestRunReturnsStopError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stopErr := errors.New("shutdown failed")
	svc := &fakeService{stopErr: stopErr}

	err := Run(ctx, &Options{
		ServiceName: "test",
		Service:     svc,
		Logger:      logger.NewTestLogger(),
	})

	require.ErrorIs(t, err, stopErr)
}
