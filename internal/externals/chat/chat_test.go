package chat

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tb "gopkg.in/telebot.v3"
)

func TestFloodWait_ExtractsRetryAfter(t *testing.T) {
	err := &tb.FloodError{RetryAfter: 5}

	wait, ok := floodWait(err)
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, wait)
}

func TestFloodWait_WrappedError(t *testing.T) {
	err := fmt.Errorf("chat send: %w", &tb.FloodError{RetryAfter: 2})

	wait, ok := floodWait(err)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, wait)
}

func TestFloodWait_OrdinaryErrorIsNotFloodWait(t *testing.T) {
	wait, ok := floodWait(errors.New("boom"))
	assert.False(t, ok)
	assert.Zero(t, wait)
}
