package theory

import "math"

// Bollinger computes mean ± a configurable number of standard deviations
// over a rolling window. Returns the window mean, upper, and lower bands.
func Bollinger(prices []float64, period int, multiplier float64) (mid, upper, lower float64) {
	if len(prices) < period {
		return 0, 0, 0
	}

	window := prices[len(prices)-period:]
	mid = mean(window)

	var sumSq float64
	for _, p := range window {
		d := p - mid
		sumSq += d * d
	}
	stdev := math.Sqrt(sumSq / float64(period))

	upper = mid + multiplier*stdev
	lower = mid - multiplier*stdev
	return mid, upper, lower
}
