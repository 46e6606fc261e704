package dispatcher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cryptopulse/signalpipe/internal/config"
	"github.com/cryptopulse/signalpipe/internal/kernel"
	"github.com/cryptopulse/signalpipe/internal/libs/circuitbreaker"
	"github.com/cryptopulse/signalpipe/internal/libs/eventbus"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/cryptopulse/signalpipe/internal/libs/ratelimit"
	"github.com/cryptopulse/signalpipe/internal/libs/retry"
	"github.com/cryptopulse/signalpipe/internal/models"
)

type fakeSender struct {
	sent []string
	fail bool
}

func (f *fakeSender) Send(_ context.Context, chatID int64, message string) error {
	if f.fail {
		return assert.AnError
	}
	f.sent = append(f.sent, message)
	return nil
}

func (f *fakeSender) Stop() {}

func testDispatcher(sender *fakeSender) *Service {
	return &Service{
		cfg:          config.DispatcherConfig{ChatRateLimit: 30, ChatRateLimitWindow: time.Second, USDTDominanceConflictThreshold: 8},
		priceChatID:  1,
		signalChatID: 2,
		log:          logger.NewDev(),
		metrics:      kernel.NewMetrics("dispatcher-test"),
		sender:       sender,
		breakers:     circuitbreaker.NewRegistry(circuitbreaker.Config{FailureThreshold: 5, FailureWindow: time.Minute, RecoveryTimeout: time.Second}),
		retryPolicy:  retry.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond, Base: 2, MaxDelay: time.Millisecond},
		limiter:      ratelimit.New(30, time.Second),
		location:     time.UTC,
	}
}

func TestHandlePriceUpdate_SendsFormattedLine(t *testing.T) {
	sender := &fakeSender{}
	s := testDispatcher(sender)

	payload := models.PriceUpdateReadyPayload{Timestamp: time.Now().Unix(), Prices: map[string]float64{"BTCUSDT": 65000}}
	data, _ := json.Marshal(payload)

	err := s.handlePriceUpdate(context.Background(), &eventbus.Message{Event: models.EventPriceUpdateReady, Data: data})
	assert.NoError(t, err)
	assert.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "BTCUSDT:65000")
}

func TestHandleSignal_SendsFormattedMessage(t *testing.T) {
	sender := &fakeSender{}
	s := testDispatcher(sender)

	sig := models.Signal{Asset: "BTCUSDT", Type: models.SignalLong, Score: 80, Confidence: models.ConfidenceHigh}
	data, _ := json.Marshal(sig)

	err := s.handleSignal(context.Background(), &eventbus.Message{Event: models.EventSignalGenerated, Data: data})
	assert.NoError(t, err)
	assert.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "BTCUSDT LONG")
}

func TestHandlePriceUpdate_MalformedPayloadIsSwallowed(t *testing.T) {
	sender := &fakeSender{}
	s := testDispatcher(sender)

	err := s.handlePriceUpdate(context.Background(), &eventbus.Message{Event: models.EventPriceUpdateReady, Data: []byte("not json")})
	assert.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestSend_PropagatesSenderFailure(t *testing.T) {
	sender := &fakeSender{fail: true}
	s := testDispatcher(sender)

	err := s.send(context.Background(), 1, "hello")
	assert.Error(t, err)
}
