package theory

import "github.com/cryptopulse/signalpipe/internal/models"

// MACD computes the moving-average-convergence-divergence triple
// (fast=12, slow=26, signal=9 by convention). Signal and histogram are
// absent when there isn't enough history to compute the signal EMA.
func MACD(prices []float64, fast, slow, signalPeriod int) *models.MACD {
	if len(prices) < slow {
		return nil
	}

	line := EMA(prices, fast) - EMA(prices, slow)

	if len(prices) < slow+signalPeriod {
		return &models.MACD{Line: line}
	}

	lineSeries := make([]float64, 0, len(prices)-slow+1)
	for i := slow; i <= len(prices); i++ {
		window := prices[:i]
		lineSeries = append(lineSeries, EMA(window, fast)-EMA(window, slow))
	}

	signal := EMA(lineSeries, signalPeriod)
	histogram := line - signal

	return &models.MACD{Line: line, Signal: &signal, Histogram: &histogram}
}
