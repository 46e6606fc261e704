// Package theory is a library of pure functions over ordered candle
// sequences, with no I/O. Its rolling-window math is built on
// internal/libs/talib, itself backed by github.com/cinar/indicator's
// container/bst.
package theory

import (
	"github.com/cryptopulse/signalpipe/internal/libs/talib"
	"github.com/cryptopulse/signalpipe/internal/models"
)

// MinCandles is the floor the Analyzer enforces before invoking the theory
// library for a given (symbol, interval) pair.
const MinCandles = 20

// Analyze produces the full TimeframeAnalysis for one ordered candle
// sequence. Dow structure and the classical indicator bundle require only
// MinCandles; Wyckoff and Gann are computed only when the deeper
// WyckoffMinCandles/GannMinCandles thresholds are met, left nil otherwise.
func Analyze(interval string, candles []*models.Candle) *models.TimeframeAnalysis {
	if len(candles) < MinCandles {
		return nil
	}

	closes := models.Closes(candles)

	result := &models.TimeframeAnalysis{
		Interval:     interval,
		Dow:          DowStructure(candles),
		Indicators:   classicalIndicators(closes, models.Volumes(candles)),
		CurrentPrice: closes[len(closes)-1],
	}

	if len(candles) >= WyckoffMinCandles {
		result.Wyckoff = WyckoffPhase(candles)
	}
	if len(candles) >= GannMinCandles {
		result.Gann = GannAngle(closes)
	}

	return result
}

func classicalIndicators(closes, volumes []float64) *models.IndicatorSet {
	set := &models.IndicatorSet{
		EMA20:  EMA(closes, 20),
		EMA50:  EMA(closes, 50),
		EMA200: EMA(closes, 200),
	}

	if rsi, ok := RSI(closes, 14); ok {
		set.RSI = &rsi
	}

	set.MACD = MACD(closes, 12, 26, 9)
	set.VolumeSpike = volumeSpikeConfirmed(volumes, 5, 20, 1.2)

	return set
}

// RollingMax and RollingMin are exposed for callers that want the
// container-backed rolling extrema series directly, rather than
// recomputing windows from scratch.
func RollingMax(period int, values []float64) []float64 { return talib.Max(period, values) }
func RollingMin(period int, values []float64) []float64 { return talib.Min(period, values) }
