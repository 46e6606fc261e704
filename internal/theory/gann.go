package theory

import (
	"math"

	"github.com/cryptopulse/signalpipe/internal/models"
)

// GannMinCandles is the minimum candle count gann_angle requires.
const GannMinCandles = 50

// GannAngle computes a Gann 1x1 angle: over the last 50 bars, it finds the
// significant high/low, derives the 1x1 slope (price per bar)
// between them, projects a reference price forward from the earlier pivot
// to the current bar, and reports the relative deviation of the actual
// close from that projection.
func GannAngle(closes []float64) *models.GannResult {
	window := closes
	if len(window) > GannMinCandles {
		window = window[len(window)-GannMinCandles:]
	}

	highIdx, lowIdx := 0, 0
	for i, c := range window {
		if c > window[highIdx] {
			highIdx = i
		}
		if c < window[lowIdx] {
			lowIdx = i
		}
	}

	pivotHigh := window[highIdx]
	pivotLow := window[lowIdx]

	anchorIdx, anchorPrice, targetIdx, targetPrice := lowIdx, pivotLow, highIdx, pivotHigh
	if highIdx < lowIdx {
		anchorIdx, anchorPrice, targetIdx, targetPrice = highIdx, pivotHigh, lowIdx, pivotLow
	}

	timeRange := float64(targetIdx - anchorIdx)
	if timeRange == 0 {
		timeRange = 1
	}
	priceRange := targetPrice - anchorPrice
	slope := priceRange / timeRange

	last := len(window) - 1
	projected := anchorPrice + slope*float64(last-anchorIdx)

	var deviation float64
	if projected != 0 {
		deviation = (window[last] - projected) / projected
	}

	var threeBarReturn float64
	if len(window) > 3 && window[last-3] != 0 {
		threeBarReturn = (window[last] - window[last-3]) / window[last-3]
	}

	reversalWindow := math.Abs(deviation) > 0.1 && math.Abs(threeBarReturn) < 0.01

	return &models.GannResult{
		Slope:          slope,
		Deviation:      deviation,
		ReversalWindow: reversalWindow,
		PivotHigh:      pivotHigh,
		PivotLow:       pivotLow,
	}
}
