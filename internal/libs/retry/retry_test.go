package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cryptopulse/signalpipe/internal/libs/circuitbreaker"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/stretchr/testify/assert"
)

func TestDoSucceedsAfterRetries(t *testing.T) {
	log := logger.NewDev()

	attempts := 0
	err := Do(context.Background(), log, "test-op", Policy{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Base:         1,
		MaxDelay:     10 * time.Millisecond,
	}, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoReraisesFinalError(t *testing.T) {
	log := logger.NewDev()
	boom := errors.New("boom")

	err := Do(context.Background(), log, "test-op", Policy{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		Base:         1,
		MaxDelay:     5 * time.Millisecond,
	}, func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
}

func TestDoNeverRetriesCircuitOpen(t *testing.T) {
	log := logger.NewDev()

	calls := 0
	err := Do(context.Background(), log, "test-op", Policy{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		Base:         1,
		MaxDelay:     5 * time.Millisecond,
	}, func(ctx context.Context) error {
		calls++
		return circuitbreaker.ErrOpen
	})

	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 1, calls)
}
