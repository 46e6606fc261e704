// Package worker is a small fixed-size job pool used by the Ingestor to
// fan the per-cycle price and candle fetches out across goroutines instead
// of walking the coin/interval matrix serially. It also exposes a generic
// polling half, for any future fixed-interval side-fetch, though this
// repo only exercises the process half.
package worker

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cryptopulse/signalpipe/internal/libs/logger"
)

// Polling is invoked on a fixed-interval ticker by each polling goroutine.
type Polling func(ctx context.Context, idx int32) error

// Process handles one job pulled off the shared channel.
type Process func(ctx context.Context, message interface{}) error

// PoolConfig sizes the pool. JobTimeout bounds a single Process/Polling
// invocation; it defaults to 30s when unset.
type PoolConfig struct {
	NumProcess     int32
	NumPolling     int32
	PollingBackoff time.Duration
	JobTimeout     time.Duration
}

// Worker is a fixed-size pool of job-processing goroutines plus an
// optional set of fixed-interval pollers, both drained cleanly on Stop.
type Worker struct {
	log     *logger.Logger
	process Process
	polling Polling
	message chan interface{}
	quit    chan struct{}
	wait    sync.WaitGroup
	config  *PoolConfig
}

func New(log *logger.Logger, config *PoolConfig) (*Worker, error) {
	if config == nil {
		return nil, errors.New("worker: config invalid")
	}
	if config.NumPolling == 0 && config.NumProcess == 0 {
		return nil, errors.New("worker: no process")
	}
	if config.PollingBackoff == 0 {
		config.PollingBackoff = time.Second
	}
	if config.JobTimeout == 0 {
		config.JobTimeout = 30 * time.Second
	}

	buffer := config.NumProcess
	if buffer < 1 {
		buffer = 1
	}

	return &Worker{
		log:     log,
		message: make(chan interface{}, buffer),
		quit:    make(chan struct{}),
		config:  config,
	}, nil
}

func (w *Worker) WithPolling(polling Polling) *Worker {
	w.polling = polling
	return w
}

func (w *Worker) WithProcess(process Process) *Worker {
	w.process = process
	return w
}

// Start launches NumProcess job consumers and NumPolling fixed-interval
// pollers. A panicking job or poller is recovered and logged rather than
// taking down the whole pool — one bad fetch shouldn't abort the cycle.
func (w *Worker) Start() error {
	for i := int32(0); i < w.config.NumProcess; i++ {
		w.wait.Add(1)
		go w.runConsumer()
	}

	for i := int32(0); i < w.config.NumPolling; i++ {
		w.wait.Add(1)
		go w.runPoller(i)
	}

	return nil
}

func (w *Worker) runConsumer() {
	defer w.wait.Done()
	defer w.recoverPanic("process")

	for {
		select {
		case msg, ok := <-w.message:
			if ok {
				w.runProcess(msg)
			}
		case <-w.quit:
			if len(w.message) == 0 {
				return
			}
		}
	}
}

func (w *Worker) runPoller(idx int32) {
	defer w.wait.Done()
	defer w.recoverPanic("poll")

	ticker := time.NewTicker(w.config.PollingBackoff)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runPolling(idx)
		case <-w.quit:
			return
		}
	}
}

func (w *Worker) recoverPanic(stage string) {
	if r := recover(); r != nil {
		w.log.Error("worker pool recovered from panic",
			zap.String("stage", stage), zap.Any("panic", r), zap.String("stacktrace", string(debug.Stack())))
	}
}

// Stop signals all consumers/pollers to drain and wait for them to exit.
func (w *Worker) Stop() {
	close(w.quit)
	w.wait.Wait()
	close(w.message)
}

// SendJob enqueues message for a consumer goroutine to pick up.
func (w *Worker) SendJob(ctx context.Context, message interface{}) {
	select {
	case w.message <- message:
	case <-ctx.Done():
	}
}

func (w *Worker) runProcess(message interface{}) {
	if w.process == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.config.JobTimeout)
	defer cancel()

	if err := w.process(ctx, message); err != nil {
		w.log.Warn("worker job failed", zap.Error(err))
	}
}

func (w *Worker) runPolling(idx int32) {
	if w.polling == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.config.JobTimeout)
	defer cancel()

	if err := w.polling(ctx, idx); err != nil {
		w.log.Warn("worker poll failed", zap.Int32("idx", idx), zap.Error(err))
	}
}
