package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 3, FailureWindow: time.Minute, RecoveryTimeout: 50 * time.Millisecond})

	for i := 0; i < 3; i++ {
		assert.True(t, b.Allow())
		b.Failure()
	}

	assert.Equal(t, Open, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerHalfOpenRecovers(t *testing.T) {
	b := New(Config{FailureThreshold: 1, FailureWindow: time.Minute, RecoveryTimeout: 10 * time.Millisecond})

	b.Allow()
	b.Failure()
	assert.Equal(t, Open, b.State())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow())
	assert.Equal(t, HalfOpen, b.State())

	b.Success()
	assert.Equal(t, Closed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New(Config{FailureThreshold: 1, FailureWindow: time.Minute, RecoveryTimeout: 10 * time.Millisecond})

	b.Allow()
	b.Failure()
	time.Sleep(20 * time.Millisecond)
	b.Allow()
	b.Failure()

	assert.Equal(t, Open, b.State())
}

func TestCallReturnsErrOpen(t *testing.T) {
	b := New(Config{FailureThreshold: 1, FailureWindow: time.Minute, RecoveryTimeout: time.Minute})

	err := b.Call(func() error { return errors.New("boom") })
	assert.Error(t, err)

	err = b.Call(func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestRegistryIsolatesByName(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, FailureWindow: time.Minute, RecoveryTimeout: time.Minute})

	binance := r.Get("binance")
	binance.Allow()
	binance.Failure()

	cmc := r.Get("cmc")
	assert.Equal(t, Open, binance.State())
	assert.Equal(t, Closed, cmc.State())
}
