package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterAllowsUpToLimit(t *testing.T) {
	l := New(3, 100*time.Millisecond)

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestLimiterRecoversAfterWindow(t *testing.T) {
	l := New(1, 30*time.Millisecond)

	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	time.Sleep(40 * time.Millisecond)
	assert.True(t, l.Allow())
}

func TestWaitReportsZeroWhenAvailable(t *testing.T) {
	l := New(2, time.Second)
	assert.Equal(t, time.Duration(0), l.Wait())
}
