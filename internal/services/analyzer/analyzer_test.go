package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cryptopulse/signalpipe/internal/config"
	"github.com/cryptopulse/signalpipe/internal/models"
)

func testService() *Service {
	return &Service{cfg: config.AnalyzerConfig{
		USDTDominanceRisingThreshold: 5,
		BTCDominanceRisingThreshold:  55,
		BTCDominanceFallingThreshold: 45,
	}}
}

func ptr(f float64) *float64 { return &f }

func TestInterpretDominance_NoMetrics(t *testing.T) {
	s := testService()
	da := s.interpretDominance(&models.MarketSnapshot{})
	assert.Equal(t, models.DominanceBTCStable, da.Interpretation.BTCDom)
	assert.Equal(t, models.DominanceUSDTStableFalling, da.Interpretation.USDTDom)
}

func TestInterpretDominance_RisingBTCAndUSDT(t *testing.T) {
	s := testService()
	da := s.interpretDominance(&models.MarketSnapshot{Metrics: &models.MacroMetrics{
		BTCDominance:  ptr(60),
		USDTDominance: ptr(6),
	}})
	assert.Equal(t, models.DominanceBTCRisingAltsWeaken, da.Interpretation.BTCDom)
	assert.Equal(t, models.DominanceUSDTRisingRiskOff, da.Interpretation.USDTDom)
}

func TestInterpretDominance_FallingBTC(t *testing.T) {
	s := testService()
	da := s.interpretDominance(&models.MarketSnapshot{Metrics: &models.MacroMetrics{
		BTCDominance: ptr(40),
	}})
	assert.Equal(t, models.DominanceBTCFallingGoodAlts, da.Interpretation.BTCDom)
}

func TestComputeSentiment_AllBullish(t *testing.T) {
	s := testService()
	analyses := map[string]*models.TimeframeAnalysis{
		"1h": {
			Dow:        &models.DowResult{Trend: models.TrendBullish},
			Wyckoff:    &models.WyckoffResult{Phase: models.WyckoffMarkup},
			Indicators: &models.IndicatorSet{RSI: ptr(65), MACD: &models.MACD{Histogram: ptr(1.5)}},
		},
	}
	sentiment, strength, details := s.computeSentiment(analyses, &models.DominanceInterpretation{BTCDom: models.DominanceBTCFallingGoodAlts})
	assert.Equal(t, models.SentimentBullish, sentiment)
	assert.Equal(t, 100, strength)
	assert.Equal(t, 5, details["bullish_signals"])
	assert.Equal(t, 0, details["bearish_signals"])
}

func TestComputeSentiment_AllBearish(t *testing.T) {
	s := testService()
	analyses := map[string]*models.TimeframeAnalysis{
		"1h": {
			Dow:        &models.DowResult{Trend: models.TrendBearish},
			Wyckoff:    &models.WyckoffResult{Phase: models.WyckoffDistribution},
			Indicators: &models.IndicatorSet{RSI: ptr(35), MACD: &models.MACD{Histogram: ptr(-1.5)}},
		},
	}
	sentiment, strength, _ := s.computeSentiment(analyses, &models.DominanceInterpretation{BTCDom: models.DominanceBTCRisingAltsWeaken})
	assert.Equal(t, models.SentimentBearish, sentiment)
	assert.Equal(t, 100, strength)
}

func TestComputeSentiment_Mixed(t *testing.T) {
	s := testService()
	analyses := map[string]*models.TimeframeAnalysis{
		"1h": {
			Dow:        &models.DowResult{Trend: models.TrendBullish},
			Indicators: &models.IndicatorSet{RSI: ptr(48)},
		},
	}
	sentiment, _, details := s.computeSentiment(analyses, nil)
	assert.Equal(t, models.SentimentNeutral, sentiment)
	assert.Equal(t, 2, details["total_signals"])
}

func TestComputeSentiment_NoEvidence(t *testing.T) {
	s := testService()
	sentiment, strength, details := s.computeSentiment(nil, nil)
	assert.Equal(t, models.SentimentNeutral, sentiment)
	assert.Equal(t, 0, strength)
	assert.Equal(t, 0.0, details["bullish_ratio"])
}

func TestBtcSymbolIn_PrefersBTCUSDT(t *testing.T) {
	analyses := map[string]map[string]*models.TimeframeAnalysis{
		"ETHUSDT": {},
		"BTCUSDT": {},
	}
	assert.Equal(t, "BTCUSDT", btcSymbolIn(analyses))
}

func TestBtcSymbolIn_FallsBackToAnyKey(t *testing.T) {
	analyses := map[string]map[string]*models.TimeframeAnalysis{
		"ETHUSDT": {},
	}
	assert.Equal(t, "ETHUSDT", btcSymbolIn(analyses))
}

func TestBtcSymbolIn_EmptyDefaultsBTCUSDT(t *testing.T) {
	assert.Equal(t, "BTCUSDT", btcSymbolIn(map[string]map[string]*models.TimeframeAnalysis{}))
}

func TestCorrelationIDFromPayload(t *testing.T) {
	data := []byte(`{"correlation_id":"abc-123"}`)
	assert.Equal(t, "abc-123", correlationIDFromPayload(data))
}

func TestCorrelationIDFromPayload_Invalid(t *testing.T) {
	assert.Equal(t, "", correlationIDFromPayload([]byte(`not json`)))
}
