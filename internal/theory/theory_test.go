package theory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cryptopulse/signalpipe/internal/models"
)

func makeCandles(closes []float64) []*models.Candle {
	out := make([]*models.Candle, len(closes))
	for i, c := range closes {
		out[i] = &models.Candle{
			OpenTime: int64(i),
			Open:     c,
			High:     c * 1.01,
			Low:      c * 0.99,
			Close:    c,
			Volume:   1000,
		}
	}
	return out
}

func TestEMAFallsBackToMeanWhenShort(t *testing.T) {
	prices := []float64{1, 2, 3}
	assert.Equal(t, mean(prices), EMA(prices, 10))
}

func TestRSIAbsentWhenTooShort(t *testing.T) {
	_, ok := RSI([]float64{1, 2, 3}, 14)
	assert.False(t, ok)
}

func TestRSIBoundedZeroToHundred(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = float64(100 + i)
	}
	v, ok := RSI(prices, 14)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 100.0)
	assert.Equal(t, 100.0, v) // strictly rising: avg_loss == 0
}

func TestMACDAbsentWhenShort(t *testing.T) {
	m := MACD([]float64{1, 2, 3}, 12, 26, 9)
	assert.Nil(t, m)
}

func TestBollingerBandsStraddleMean(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100
	}
	mid, upper, lower := Bollinger(prices, 20, 2)
	assert.Equal(t, 100.0, mid)
	assert.Equal(t, 100.0, upper)
	assert.Equal(t, 100.0, lower)
}

func TestDowStructureBullishOnRisingSwings(t *testing.T) {
	closes := []float64{
		12, 11, 10, 11, 12, 15, 13, 12, 11, 13, 14, 17, 15, 14,
	}
	candles := makeCandles(closes)
	result := DowStructure(candles)
	assert.NotNil(t, result)
	assert.Equal(t, models.TrendBullish, result.Trend)
}

func TestWyckoffPhaseRequiresFiftyCandles(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.1
	}
	candles := makeCandles(closes)
	result := WyckoffPhase(candles)
	assert.NotNil(t, result)
	assert.GreaterOrEqual(t, result.PricePosition, 0.0)
	assert.LessOrEqual(t, result.PricePosition, 1.0)

	assert.Nil(t, Analyze("4h", candles[:WyckoffMinCandles-1]).Wyckoff)
}

func TestAnalyzeSkipsShortSeries(t *testing.T) {
	candles := makeCandles([]float64{1, 2, 3})
	assert.Nil(t, Analyze("1h", candles))
}

func TestAnalyzeProducesFullSetAtDepth(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.2
	}
	candles := makeCandles(closes)

	result := Analyze("4h", candles)
	assert.NotNil(t, result)
	assert.NotNil(t, result.Dow)
	assert.NotNil(t, result.Wyckoff)
	assert.NotNil(t, result.Gann)
	assert.NotNil(t, result.Indicators)
}
