package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bloomwatch/backend/internal/domain"
)

func TestGate_RejectsSecondCallerWhileBusy(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := NewGate(1)
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- g.Do(context.Background(), func(context.Context) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	called := false
	err := g.Do(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrGateBusy)
	assert.False(t, called)

	close(release)
	require.NoError(t, <-done)

	assert.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestGate_ReleasesAfterErrorAndPanic(t *testing.T) {
	g := NewGate(1)
	boom := errors.New("boom")

	err := g.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = g.Do(context.Background(), func(context.Context) error { panic("kaboom") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	assert.NoError(t, g.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestGate_LimitFloor(t *testing.T) {
	assert.Equal(t, int64(1), NewGate(0).Limit())
	assert.Equal(t, int64(3), NewGate(3).Limit())
}
