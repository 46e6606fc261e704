package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cryptopulse/signalpipe/internal/models"
)

func f(v float64) *float64 { return &v }

func TestGuardrail_LongBlockedByUSDTDominance(t *testing.T) {
	dominance := &models.DominanceInterpretation{USDTDom: models.DominanceUSDTRisingRiskOff}
	assert.True(t, guardrailTrips("ETHUSDT", "BTCUSDT", models.SignalLong, dominance))
}

func TestGuardrail_AltLongBlockedByBTCDominance(t *testing.T) {
	dominance := &models.DominanceInterpretation{BTCDom: models.DominanceBTCRisingAltsWeaken, USDTDom: models.DominanceUSDTStableFalling}
	assert.True(t, guardrailTrips("SOLUSDT", "BTCUSDT", models.SignalLong, dominance))
}

func TestGuardrail_BTCLongNotBlockedByBTCDominance(t *testing.T) {
	dominance := &models.DominanceInterpretation{BTCDom: models.DominanceBTCRisingAltsWeaken, USDTDom: models.DominanceUSDTStableFalling}
	assert.False(t, guardrailTrips("BTCUSDT", "BTCUSDT", models.SignalLong, dominance))
}

func TestGuardrail_ShortNeverBlocked(t *testing.T) {
	dominance := &models.DominanceInterpretation{BTCDom: models.DominanceBTCRisingAltsWeaken, USDTDom: models.DominanceUSDTRisingRiskOff}
	assert.False(t, guardrailTrips("SOLUSDT", "BTCUSDT", models.SignalShort, dominance))
}

func bullishBTCAnalyses() map[string]*models.TimeframeAnalysis {
	return map[string]*models.TimeframeAnalysis{
		"1d": {Dow: &models.DowResult{Trend: models.TrendBullish}},
		"3d": {Dow: &models.DowResult{Trend: models.TrendBullish}},
		"1w": {Dow: &models.DowResult{Trend: models.TrendBullish}},
		"4h": {
			Dow:          &models.DowResult{Trend: models.TrendBullish},
			Wyckoff:      &models.WyckoffResult{Phase: models.WyckoffMarkup, SOS: true},
			Indicators:   &models.IndicatorSet{RSI: f(58), MACD: &models.MACD{Histogram: f(1.2)}, EMA20: 100, EMA50: 95, VolumeSpike: true},
			CurrentPrice: 105,
		},
		"1h": {Dow: &models.DowResult{Trend: models.TrendBullish, BOSUp: true}},
	}
}

func TestScoreCandidate_BTCLongHighConfidence(t *testing.T) {
	dominance := &models.DominanceInterpretation{BTCDom: models.DominanceBTCFallingGoodAlts, USDTDom: models.DominanceUSDTStableFalling}

	score, reasons, ok := scoreCandidate("BTCUSDT", "BTCUSDT", models.SignalLong, bullishBTCAnalyses(), dominance, DefaultSafetyCheck)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, score, 75)
	assert.NotEmpty(t, reasons["trend"])
	assert.NotEmpty(t, reasons["wyckoff"])

	confidence, ok := confidenceFor(score)
	assert.True(t, ok)
	assert.Equal(t, models.ConfidenceHigh, confidence)
}

func TestScoreCandidate_AllNeutralScoresBelowFloor(t *testing.T) {
	analyses := map[string]*models.TimeframeAnalysis{
		"4h": {
			Indicators:   &models.IndicatorSet{RSI: f(51)},
			CurrentPrice: 100,
		},
	}
	score, _, ok := scoreCandidate("ETHUSDT", "BTCUSDT", models.SignalLong, analyses, &models.DominanceInterpretation{}, DefaultSafetyCheck)
	assert.True(t, ok)
	assert.Less(t, score, 60)

	_, hasConfidence := confidenceFor(score)
	assert.False(t, hasConfidence)
}

func TestScoreWyckoff_LongMatchesOnSpring(t *testing.T) {
	analyses := map[string]*models.TimeframeAnalysis{
		"4h": {Wyckoff: &models.WyckoffResult{Spring: true}},
	}
	result := scoreWyckoff(models.SignalLong, analyses)
	assert.Equal(t, 15, result.score)
}

func TestScoreWyckoff_AbsentIntervalScoresZero(t *testing.T) {
	result := scoreWyckoff(models.SignalLong, map[string]*models.TimeframeAnalysis{})
	assert.Equal(t, 0, result.score)
}

func TestScoreIndicators_FullCredit(t *testing.T) {
	analyses := map[string]*models.TimeframeAnalysis{
		"4h": {
			Indicators:   &models.IndicatorSet{RSI: f(60), MACD: &models.MACD{Histogram: f(0.5)}, EMA20: 10, EMA50: 9},
			CurrentPrice: 11,
		},
	}
	result := scoreIndicators(models.SignalLong, analyses)
	assert.Equal(t, 20, result.score)
}

func TestScoreIndicators_PartialRSICredit(t *testing.T) {
	analyses := map[string]*models.TimeframeAnalysis{
		"4h": {Indicators: &models.IndicatorSet{RSI: f(52)}},
	}
	result := scoreIndicators(models.SignalLong, analyses)
	assert.Equal(t, 4, result.score)
}

func TestScoreDominance_AltLong(t *testing.T) {
	dominance := &models.DominanceInterpretation{BTCDom: models.DominanceBTCFallingGoodAlts, USDTDom: models.DominanceUSDTStableFalling}
	result := scoreDominance("SOLUSDT", "BTCUSDT", models.SignalLong, dominance)
	assert.Equal(t, 15, result.score)
}

func TestScoreDominance_AltShort(t *testing.T) {
	dominance := &models.DominanceInterpretation{BTCDom: models.DominanceBTCRisingAltsWeaken, USDTDom: models.DominanceUSDTRisingRiskOff}
	result := scoreDominance("SOLUSDT", "BTCUSDT", models.SignalShort, dominance)
	assert.Equal(t, 15, result.score)
}

func TestCurrentPriceFor_Prefers4h(t *testing.T) {
	analyses := map[string]*models.TimeframeAnalysis{
		"4h": {CurrentPrice: 50},
		"1h": {CurrentPrice: 49},
	}
	price, ok := currentPriceFor(analyses)
	assert.True(t, ok)
	assert.Equal(t, 50.0, price)
}

func TestCurrentPriceFor_FallsBackTo1h(t *testing.T) {
	analyses := map[string]*models.TimeframeAnalysis{
		"1h": {CurrentPrice: 49},
	}
	price, ok := currentPriceFor(analyses)
	assert.True(t, ok)
	assert.Equal(t, 49.0, price)
}

func TestCurrentPriceFor_Absent(t *testing.T) {
	_, ok := currentPriceFor(map[string]*models.TimeframeAnalysis{})
	assert.False(t, ok)
}

func TestBuildSignalLevels_Long(t *testing.T) {
	entry, tp, sl := buildSignalLevels(models.SignalLong, 100)
	assert.InDelta(t, 99.5, entry.Min, 0.001)
	assert.InDelta(t, 100.5, entry.Max, 0.001)
	assert.InDelta(t, 102.0, tp[0], 0.001)
	assert.InDelta(t, 105.0, tp[1], 0.001)
	assert.InDelta(t, 98.0, sl, 0.001)
}

func TestBuildSignalLevels_Short(t *testing.T) {
	entry, tp, sl := buildSignalLevels(models.SignalShort, 100)
	assert.InDelta(t, 99.5, entry.Min, 0.001)
	assert.InDelta(t, 100.5, entry.Max, 0.001)
	assert.InDelta(t, 98.0, tp[0], 0.001)
	assert.InDelta(t, 95.0, tp[1], 0.001)
	assert.InDelta(t, 102.0, sl, 0.001)
}

func TestDefaultSafetyCheck_AlwaysFullCredit(t *testing.T) {
	score, note := DefaultSafetyCheck("BTCUSDT", models.SignalLong, nil)
	assert.Equal(t, 10, score)
	assert.NotEmpty(t, note)
}
