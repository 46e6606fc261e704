package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cryptopulse/signalpipe/internal/config"
	"github.com/cryptopulse/signalpipe/internal/models"
)

func TestClassify_Pump(t *testing.T) {
	v := classify("ETHUSDT", models.Timeframe5m, 0.04, 0.03)
	assert.NotNil(t, v)
	assert.Equal(t, models.VolatilityPump, v.Type)
	assert.InDelta(t, 4.0, v.ChangePct, 0.0001)
}

func TestClassify_Dump(t *testing.T) {
	v := classify("ETHUSDT", models.Timeframe5m, -0.05, 0.03)
	assert.NotNil(t, v)
	assert.Equal(t, models.VolatilityDump, v.Type)
}

func TestClassify_BelowThreshold(t *testing.T) {
	v := classify("ETHUSDT", models.Timeframe5m, 0.01, 0.03)
	assert.Nil(t, v)
}

func TestPickBTC_Present(t *testing.T) {
	assert.Equal(t, "BTCUSDT", pickBTC([]string{"ETHUSDT", "BTCUSDT"}))
}

func TestPickBTC_FallsBackToFirst(t *testing.T) {
	assert.Equal(t, "ETHUSDT", pickBTC([]string{"ETHUSDT", "SOLUSDT"}))
}

func TestSummaryMessage_NoVolatility(t *testing.T) {
	assert.Equal(t, "no significant price movement", summaryMessage(nil))
}

func TestSummaryMessage_JoinsEntries(t *testing.T) {
	msg := summaryMessage([]*models.Volatility{
		{Type: models.VolatilityPump, Symbol: "ETHUSDT"},
		{Type: models.VolatilityDump, Symbol: "SOLUSDT"},
	})
	assert.Equal(t, "pump ETHUSDT; dump SOLUSDT", msg)
}

func TestDetect_BTCUsesOwnThreshold(t *testing.T) {
	s := &Service{
		cfg: config.MonitorConfig{
			RingWindow:       15 * time.Minute,
			Pump5mThreshold:  0.03,
			Pump15mThreshold: 0.05,
			BTC15mThreshold:  0.005,
		},
		btcCoin: "BTCUSDT",
	}

	w := newPriceWindow()
	now := time.Now()
	w.add(now.Add(-15*time.Minute), 100, s.cfg.RingWindow)
	w.add(now, 100.6, s.cfg.RingWindow)

	vols := s.detect("BTCUSDT", w, now)
	assert.Len(t, vols, 1)
	assert.Equal(t, models.VolatilityBTCMovement, vols[0].Type)
}
