package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logdev "github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/stretchr/testify/assert"
)

func TestWorkerProcessesJobs(t *testing.T) {
	log := logdev.NewDev()

	var processed int32

	w, err := New(log, &PoolConfig{NumProcess: 4})
	assert.NoError(t, err)

	w.WithProcess(func(ctx context.Context, message interface{}) error {
		atomic.AddInt32(&processed, 1)
		return nil
	})
	assert.NoError(t, w.Start())

	for i := 0; i < 100; i++ {
		w.SendJob(context.Background(), i)
	}

	time.Sleep(200 * time.Millisecond)
	w.Stop()

	assert.Equal(t, int32(100), atomic.LoadInt32(&processed))
}

func TestWorkerPolling(t *testing.T) {
	log := logdev.NewDev()

	var ticks int32

	w, err := New(log, &PoolConfig{NumPolling: 1, PollingBackoff: 10 * time.Millisecond})
	assert.NoError(t, err)

	w.WithPolling(func(ctx context.Context, idx int32) error {
		atomic.AddInt32(&ticks, 1)
		return nil
	})
	assert.NoError(t, w.Start())

	time.Sleep(50 * time.Millisecond)
	w.Stop()

	assert.Greater(t, atomic.LoadInt32(&ticks), int32(0))
}
