package theory

import "github.com/cryptopulse/signalpipe/internal/models"

// WyckoffMinCandles is the minimum candle count WyckoffPhase requires.
const WyckoffMinCandles = 50

// WyckoffPhase classifies the Wyckoff market phase over a candle
// sequence. Callers must ensure len(candles) >= WyckoffMinCandles.
func WyckoffPhase(candles []*models.Candle) *models.WyckoffResult {
	closes := models.Closes(candles)
	highs := models.Highs(candles)
	lows := models.Lows(candles)
	volumes := models.Volumes(candles)

	n := len(closes)

	window20High := RollingMax(20, highs)[n-1]
	window20Low := RollingMin(20, lows)[n-1]

	pricePosition := 0.5
	if window20High > window20Low {
		pricePosition = (closes[n-1] - window20Low) / (window20High - window20Low)
	}
	pricePosition = clip01(pricePosition)

	volumeRatio := mean(volumes[n-5:]) / mean(volumes[n-20:])

	shortMA := mean(closes[n-10:])
	longMA := mean(closes[n-30:])

	priorLow := lows[n-2]
	priorHigh := highs[n-2]

	spring := pricePosition < 0.3 && lows[n-1] < priorLow && closes[n-1] > priorLow
	upthrust := pricePosition > 0.7 && highs[n-1] > priorHigh && closes[n-1] < priorHigh

	oneBarReturn := (closes[n-1] - closes[n-2]) / closes[n-2]
	sos := oneBarReturn > 0.02 && volumeRatio > 1.3
	sow := oneBarReturn < -0.02 && volumeRatio > 1.3

	closeRising5 := closes[n-1] > closes[n-6]
	closeFalling5 := closes[n-1] < closes[n-6]

	phase := models.WyckoffNone
	switch {
	case pricePosition < 0.3 && shortMA < longMA && (spring || (volumeRatio > 1.2 && closeRising5)):
		phase = models.WyckoffAccumulation
	case pricePosition >= 0.3 && shortMA > longMA && volumeRatio > 1.1:
		phase = models.WyckoffMarkup
	case pricePosition > 0.7 && shortMA > longMA && (upthrust || (volumeRatio < 0.9 && closeFalling5)):
		phase = models.WyckoffDistribution
	case pricePosition <= 0.7 && shortMA < longMA && volumeRatio > 1.1:
		phase = models.WyckoffMarkdown
	}

	strength := 0.3
	switch {
	case sos || spring:
		strength = 0.8
	case phase != models.WyckoffNone:
		strength = 0.6
	}

	return &models.WyckoffResult{
		Phase:         phase,
		Spring:        spring,
		Upthrust:      upthrust,
		SOS:           sos,
		SOW:           sow,
		PricePosition: pricePosition,
		VolumeRatio:   volumeRatio,
		Strength:      strength,
	}
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

