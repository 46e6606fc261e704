package dispatcher

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cryptopulse/signalpipe/internal/models"
)

func TestFormatPriceLine_SortedAndTimestamped(t *testing.T) {
	prices := map[string]float64{"ETHUSDT": 2500.5, "BTCUSDT": 65000}
	at := time.Date(2026, 7, 31, 14, 5, 0, 0, time.UTC)

	line := formatPriceLine(prices, at, time.UTC)
	assert.Equal(t, "BTCUSDT:65000|ETHUSDT:2500.5 @ 14:05:00", line)
}

func TestFormatPrice_TrimsTrailingZeros(t *testing.T) {
	assert.Equal(t, "100", formatPrice(100.0))
	assert.Equal(t, "100.25", formatPrice(100.25))
}

func TestFormatSignalMessage_IncludesCoreFields(t *testing.T) {
	sig := &models.Signal{
		Asset:      "BTCUSDT",
		Type:       models.SignalLong,
		Score:      92,
		Confidence: models.ConfidenceHigh,
		EntryRange: models.EntryRange{Min: 64000, Max: 64500},
		TakeProfit: []float64{66000, 68000},
		StopLoss:   62000,
		Reasons:    map[string][]string{"trend": {"primary aligned"}},
		TimeframeAlignment: &models.TimeframeAlignment{Primary: true, Secondary: true, Minor: true},
	}

	msg := formatSignalMessage(sig)
	assert.Contains(t, msg, "BTCUSDT LONG")
	assert.Contains(t, msg, "Score: 92 (HIGH)")
	assert.Contains(t, msg, "Trend: primary aligned")
	assert.True(t, strings.Contains(msg, "Alignment: primary=true"))
}

func TestFormatOutlookMessage_Unavailable(t *testing.T) {
	msg := formatOutlookMessage(outlookInput{available: false}, 8)
	assert.Contains(t, msg, "unavailable")
	assert.NotContains(t, msg, "Recent signals")
}

func TestFormatOutlookMessage_ListsRecentSignals(t *testing.T) {
	in := outlookInput{
		available:     true,
		sentiment:     models.SentimentNeutral,
		trendStrength: 10,
		recent: []models.Signal{
			{Asset: "BTCUSDT", Type: models.SignalLong, Score: 92},
			{Asset: "SOLUSDT", Type: models.SignalShort, Score: 64},
		},
	}
	msg := formatOutlookMessage(in, 8)
	assert.Contains(t, msg, "Recent signals: BTCUSDT LONG (92), SOLUSDT SHORT (64)")
}

func TestFormatOutlookMessage_UnavailableStillListsRecentSignals(t *testing.T) {
	in := outlookInput{
		available: false,
		recent:    []models.Signal{{Asset: "ETHUSDT", Type: models.SignalLong, Score: 78}},
	}
	msg := formatOutlookMessage(in, 8)
	assert.Contains(t, msg, "unavailable")
	assert.Contains(t, msg, "ETHUSDT LONG (78)")
}

func TestFormatOutlookMessage_FlagsConflict(t *testing.T) {
	usdt := 8.5
	in := outlookInput{
		available:     true,
		sentiment:     models.SentimentBullish,
		trendStrength: 70,
		usdtDominance: &usdt,
		interp:        &models.DominanceInterpretation{USDTDom: models.DominanceUSDTStableFalling},
	}
	msg := formatOutlookMessage(in, 8)
	assert.Contains(t, msg, "Note: USDT.D above")
}

func TestFormatOutlookMessage_NoConflictWhenAlreadyFlagged(t *testing.T) {
	usdt := 9.0
	in := outlookInput{
		available:     true,
		usdtDominance: &usdt,
		interp:        &models.DominanceInterpretation{USDTDom: models.DominanceUSDTRisingRiskOff},
	}
	msg := formatOutlookMessage(in, 8)
	assert.NotContains(t, msg, "Note: USDT.D above")
}
