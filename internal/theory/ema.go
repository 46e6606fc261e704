package theory

// EMA computes the classical exponential moving average over prices. When
// len(prices) < period, it falls back to the simple mean.
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return mean(prices)
	}

	k := 2.0 / float64(period+1)
	ema := mean(prices[:period])

	for _, p := range prices[period:] {
		ema = p*k + ema*(1-k)
	}

	return ema
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
