package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriceWindow_TrimsOldSamples(t *testing.T) {
	w := newPriceWindow()
	base := time.Now()

	w.add(base, 100, 15*time.Minute)
	w.add(base.Add(10*time.Minute), 101, 15*time.Minute)
	w.add(base.Add(20*time.Minute), 102, 15*time.Minute)

	assert.Len(t, w.samples, 2)
	assert.Equal(t, 101.0, w.samples[0].price)
}

func TestPriceWindow_ChangeSince(t *testing.T) {
	w := newPriceWindow()
	base := time.Now()

	w.add(base, 100, 15*time.Minute)
	w.add(base.Add(5*time.Minute), 103, 15*time.Minute)

	pct, ok := w.changeSince(base.Add(5*time.Minute), 5*time.Minute)
	assert.True(t, ok)
	assert.InDelta(t, 0.03, pct, 0.0001)
}

func TestPriceWindow_ChangeSince_InsufficientHistory(t *testing.T) {
	w := newPriceWindow()
	now := time.Now()
	w.add(now, 100, 15*time.Minute)

	_, ok := w.changeSince(now, 5*time.Minute)
	assert.False(t, ok)
}

func TestPriceWindow_Latest(t *testing.T) {
	w := newPriceWindow()
	now := time.Now()
	w.add(now, 50, time.Minute)
	w.add(now.Add(time.Second), 55, time.Minute)

	latest, ok := w.latest()
	assert.True(t, ok)
	assert.Equal(t, 55.0, latest)
}

func TestPriceWindow_LatestEmpty(t *testing.T) {
	w := newPriceWindow()
	_, ok := w.latest()
	assert.False(t, ok)
}
