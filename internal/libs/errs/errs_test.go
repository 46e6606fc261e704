package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseErrorKeepsChain(t *testing.T) {
	inner := errors.New("duplicate key")
	err := &DatabaseError{Op: "insert", Collection: "signals", Err: inner}

	assert.Contains(t, err.Error(), "insert")
	assert.Contains(t, err.Error(), "signals")
	assert.ErrorIs(t, err, inner)
}

func TestIsRetryableClientErrorsNotRetried(t *testing.T) {
	assert.False(t, IsRetryable(&ExternalAPIError{API: "binance", StatusCode: 404}))
	assert.False(t, IsRetryable(&ExternalAPIError{API: "cmc", StatusCode: 401}))
}

func TestIsRetryableServerAndFloodErrorsRetried(t *testing.T) {
	assert.True(t, IsRetryable(&ExternalAPIError{API: "binance", StatusCode: 500}))
	assert.True(t, IsRetryable(&ExternalAPIError{API: "telegram", StatusCode: 429}))
	assert.True(t, IsRetryable(errors.New("dial tcp: timeout")))
}

func TestIsRetryableSeesWrappedAPIError(t *testing.T) {
	wrapped := fmt.Errorf("fetch price: %w", &ExternalAPIError{API: "binance", StatusCode: 400})
	assert.False(t, IsRetryable(wrapped))
}
