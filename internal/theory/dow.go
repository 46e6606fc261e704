package theory

import "github.com/cryptopulse/signalpipe/internal/models"

type pivot struct {
	index int
	value float64
}

// swingHighs returns every index that is a strict 5-bar pivot high: its
// value exceeds both neighbours on each side.
func swingHighs(highs []float64) []pivot {
	var out []pivot
	for i := 2; i < len(highs)-2; i++ {
		h := highs[i]
		if h > highs[i-1] && h > highs[i-2] && h > highs[i+1] && h > highs[i+2] {
			out = append(out, pivot{index: i, value: h})
		}
	}
	return out
}

// swingLows returns every index that is a strict 5-bar pivot low.
func swingLows(lows []float64) []pivot {
	var out []pivot
	for i := 2; i < len(lows)-2; i++ {
		l := lows[i]
		if l < lows[i-1] && l < lows[i-2] && l < lows[i+1] && l < lows[i+2] {
			out = append(out, pivot{index: i, value: l})
		}
	}
	return out
}

// DowStructure classifies swing-pivot trend structure, break-of-structure
// flags, and volume confirmation over a candle sequence.
func DowStructure(candles []*models.Candle) *models.DowResult {
	highs := models.Highs(candles)
	lows := models.Lows(candles)
	volumes := models.Volumes(candles)

	highPivots := swingHighs(highs)
	lowPivots := swingLows(lows)

	trend := models.TrendNeutral
	if len(highPivots) >= 2 && len(lowPivots) >= 2 {
		hh := highPivots[len(highPivots)-1].value > highPivots[len(highPivots)-2].value
		hl := lowPivots[len(lowPivots)-1].value > lowPivots[len(lowPivots)-2].value
		lh := highPivots[len(highPivots)-1].value < highPivots[len(highPivots)-2].value
		ll := lowPivots[len(lowPivots)-1].value < lowPivots[len(lowPivots)-2].value

		if hh && hl {
			trend = models.TrendBullish
		} else if lh && ll {
			trend = models.TrendBearish
		}
	}

	var bosUp, bosDown bool
	latestHigh := highs[len(highs)-1]
	latestLow := lows[len(lows)-1]

	if len(highPivots) > 0 {
		bosUp = latestHigh > highPivots[len(highPivots)-1].value
	}
	if len(lowPivots) > 0 {
		bosDown = latestLow < lowPivots[len(lowPivots)-1].value
	}

	volumeConfirmation := volumeSpikeConfirmed(volumes, 5, 20, 1.2)

	strength := 0.5
	if volumeConfirmation {
		strength = 0.7
	}

	return &models.DowResult{
		Trend:              trend,
		BOSUp:              bosUp,
		BOSDown:            bosDown,
		SwingHighCount:     len(highPivots),
		SwingLowCount:      len(lowPivots),
		VolumeConfirmation: volumeConfirmation,
		TrendStrength:      strength,
	}
}

func volumeSpikeConfirmed(volumes []float64, shortWindow, longWindow int, multiplier float64) bool {
	if len(volumes) < longWindow {
		return false
	}
	recent := mean(volumes[len(volumes)-shortWindow:])
	baseline := mean(volumes[len(volumes)-longWindow:])
	return recent > multiplier*baseline
}
