package theory

// RSI computes the classical relative-strength index (default period 14).
// It reports absent (ok=false) when len(prices) < period+1; it returns
// 100 when the average loss over the window is zero.
func RSI(prices []float64, period int) (value float64, ok bool) {
	if len(prices) < period+1 {
		return 0, false
	}

	var gainSum, lossSum float64
	for i := len(prices) - period; i < len(prices); i++ {
		diff := prices[i] - prices[i-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum += -diff
		}
	}

	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}
