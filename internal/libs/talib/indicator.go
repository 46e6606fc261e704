// Package talib holds the rolling-window primitives the theory package
// builds its Wyckoff and Gann calculations on top of: the two
// container-backed rolling extrema functions actually called, with no
// RMA-smoothed RSI or KDJ oscillator since this system's classical
// gain/loss-average RSI and Dow/Wyckoff/Gann math don't need them.
package talib

import "github.com/cinar/indicator/container/bst"

// rollingExtreme slides a self-balancing-tree window of the given period
// across values, reading off the max or the min after each insert/evict
// step. Insert/evict is O(log period), so a full pass costs
// O(n log period) instead of rescanning the window at every step.
func rollingExtreme(period int, values []float64, max bool) []float64 {
	result := make([]float64, len(values))

	buffer := make([]float64, period)
	tree := bst.New()

	for i, v := range values {
		tree.Insert(v)

		if i >= period {
			tree.Remove(buffer[i%period])
		}
		buffer[i%period] = v

		if max {
			result[i] = tree.Max().(float64)
		} else {
			result[i] = tree.Min().(float64)
		}
	}

	return result
}

// Max returns the moving maximum of values over a trailing window of the
// given period.
func Max(period int, values []float64) []float64 {
	return rollingExtreme(period, values, true)
}

// Min returns the moving minimum of values over a trailing window of the
// given period.
func Min(period int, values []float64) []float64 {
	return rollingExtreme(period, values, false)
}
