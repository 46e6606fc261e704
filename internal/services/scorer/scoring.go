// scoring.go implements the weighted multi-factor scoring function, kept
// free of I/O so it can be tested without a store, bus, or live clients.
// It follows a rule-table style (category → weight → rule) across a
// six-category table: trend, Wyckoff, indicators, volume, dominance, and
// safety.
package scorer

import (
	"math"

	"github.com/cryptopulse/signalpipe/internal/models"
)

var (
	primaryIntervals   = []string{"1d", "3d", "1w"}
	secondaryIntervals = []string{"4h", "8h"}
	minorInterval      = "1h"
	wyckoffInterval    = "4h"
	indicatorInterval  = "4h"
	volumeInterval     = "4h"
)

// SafetyCheck scores the funding/open-interest/liquidity category. A
// named, swappable function type so a future implementation can wire in a
// real funding-rate or order-book check without touching the scoring
// pipeline; the default always returns the full 10 points with a "basic
// checks" note.
type SafetyCheck func(symbol string, direction models.SignalType, analyses map[string]*models.TimeframeAnalysis) (score int, note string)

// DefaultSafetyCheck is the placeholder safety check: unconditional full credit.
func DefaultSafetyCheck(_ string, _ models.SignalType, _ map[string]*models.TimeframeAnalysis) (int, string) {
	return 10, "basic checks passed (funding/OI/liquidity not yet independently verified)"
}

type categoryResult struct {
	score   int
	reasons []string
}

// scoreCandidate implements the full weighted rule table for one
// (symbol, direction) candidate. ok is false when a guardrail trips.
func scoreCandidate(symbol, btcSymbol string, direction models.SignalType, analyses map[string]*models.TimeframeAnalysis, dominance *models.DominanceInterpretation, safety SafetyCheck) (score int, reasons map[string][]string, ok bool) {
	if guardrailTrips(symbol, btcSymbol, direction, dominance) {
		return 0, nil, false
	}

	reasons = make(map[string][]string)
	total := 0

	trend := scoreTrend(direction, analyses)
	total += trend.score
	reasons["trend"] = trend.reasons

	wyckoff := scoreWyckoff(direction, analyses)
	total += wyckoff.score
	reasons["wyckoff"] = wyckoff.reasons

	indicators := scoreIndicators(direction, analyses)
	total += indicators.score
	reasons["indicators"] = indicators.reasons

	volume := scoreVolume(direction, analyses)
	total += volume.score
	reasons["volume"] = volume.reasons

	dom := scoreDominance(symbol, btcSymbol, direction, dominance)
	total += dom.score
	reasons["dominance"] = dom.reasons

	safetyScore, safetyNote := safety(symbol, direction, analyses)
	total += safetyScore
	reasons["safety"] = []string{safetyNote}

	return total, reasons, true
}

// guardrailTrips checks the two absolute disqualifiers on a LONG
// candidate: USDT dominance reading risk-off, or (for non-BTC symbols)
// BTC dominance reading alts-weaken.
func guardrailTrips(symbol, btcSymbol string, direction models.SignalType, dominance *models.DominanceInterpretation) bool {
	if dominance == nil || direction != models.SignalLong {
		return false
	}
	if dominance.USDTDom == models.DominanceUSDTRisingRiskOff {
		return true
	}
	if symbol != btcSymbol && dominance.BTCDom == models.DominanceBTCRisingAltsWeaken {
		return true
	}
	return false
}

func trendMatches(direction models.SignalType, trend models.Trend, allowNeutral bool) bool {
	switch direction {
	case models.SignalLong:
		return trend == models.TrendBullish || (allowNeutral && trend == models.TrendNeutral)
	default:
		return trend == models.TrendBearish || (allowNeutral && trend == models.TrendNeutral)
	}
}

// scoreTrend implements the 30-point multi-timeframe-trend category:
// primary (15), secondary (10, bullish/bearish-or-neutral allowed), minor
// (flat 5 on trend match or a BOS in the candidate's direction).
func scoreTrend(direction models.SignalType, analyses map[string]*models.TimeframeAnalysis) categoryResult {
	var reasons []string
	total := 0

	if s, matched, present := bucketScore(direction, analyses, primaryIntervals, 15, false); present {
		total += s
		reasons = append(reasons, bucketReason("primary", matched, s))
	}

	if s, matched, present := bucketScore(direction, analyses, secondaryIntervals, 10, true); present {
		total += s
		reasons = append(reasons, bucketReason("secondary", matched, s))
	}

	if minor, ok := analyses[minorInterval]; ok && minor.Dow != nil {
		bosMatch := (direction == models.SignalLong && minor.Dow.BOSUp) || (direction == models.SignalShort && minor.Dow.BOSDown)
		if trendMatches(direction, minor.Dow.Trend, false) || bosMatch {
			total += 5
			reasons = append(reasons, "1h trend or break-of-structure aligned (+5)")
		}
	}

	return categoryResult{score: total, reasons: reasons}
}

func bucketScore(direction models.SignalType, analyses map[string]*models.TimeframeAnalysis, intervals []string, weight int, allowNeutral bool) (score int, matches int, present bool) {
	total := 0
	for _, interval := range intervals {
		ta, ok := analyses[interval]
		if !ok || ta.Dow == nil {
			continue
		}
		total++
		if trendMatches(direction, ta.Dow.Trend, allowNeutral) {
			matches++
		}
	}
	if total == 0 {
		return 0, 0, false
	}
	return int(math.Round(float64(weight) * float64(matches) / float64(total))), matches, true
}

func bucketReason(name string, matches, score int) string {
	if score == 0 {
		return name + " timeframes not aligned"
	}
	return name + " timeframes aligned"
}

// scoreWyckoff implements the flat 15-point category on the 4h interval.
func scoreWyckoff(direction models.SignalType, analyses map[string]*models.TimeframeAnalysis) categoryResult {
	w, ok := analyses[wyckoffInterval]
	if !ok || w.Wyckoff == nil {
		return categoryResult{}
	}

	match := false
	switch direction {
	case models.SignalLong:
		match = w.Wyckoff.Phase == models.WyckoffAccumulation || w.Wyckoff.Phase == models.WyckoffMarkup || w.Wyckoff.SOS || w.Wyckoff.Spring
	case models.SignalShort:
		match = w.Wyckoff.Phase == models.WyckoffDistribution || w.Wyckoff.Phase == models.WyckoffMarkdown || w.Wyckoff.SOW || w.Wyckoff.Upthrust
	}

	if !match {
		return categoryResult{}
	}
	return categoryResult{score: 15, reasons: []string{"4h Wyckoff structure confirms " + string(direction)}}
}

// scoreIndicators implements the 20-point category on the 4h interval:
// RSI (7), MACD histogram sign (7), EMA alignment (6).
func scoreIndicators(direction models.SignalType, analyses map[string]*models.TimeframeAnalysis) categoryResult {
	ta, ok := analyses[indicatorInterval]
	if !ok || ta.Indicators == nil {
		return categoryResult{}
	}

	var reasons []string
	total := 0

	if rsi := ta.Indicators.RSI; rsi != nil {
		switch direction {
		case models.SignalLong:
			switch {
			case *rsi > 55:
				total += 7
				reasons = append(reasons, "4h RSI strongly bullish (+7)")
			case *rsi > 50:
				total += 4
				reasons = append(reasons, "4h RSI mildly bullish (+4)")
			}
		case models.SignalShort:
			switch {
			case *rsi < 45:
				total += 7
				reasons = append(reasons, "4h RSI strongly bearish (+7)")
			case *rsi < 50:
				total += 4
				reasons = append(reasons, "4h RSI mildly bearish (+4)")
			}
		}
	}

	if ta.Indicators.MACD != nil && ta.Indicators.MACD.Histogram != nil {
		h := *ta.Indicators.MACD.Histogram
		if (direction == models.SignalLong && h > 0) || (direction == models.SignalShort && h < 0) {
			total += 7
			reasons = append(reasons, "4h MACD histogram sign confirms (+7)")
		}
	}

	if ta.Indicators.EMA20 != 0 && ta.Indicators.EMA50 != 0 && ta.CurrentPrice != 0 {
		aligned := false
		switch direction {
		case models.SignalLong:
			aligned = ta.CurrentPrice > ta.Indicators.EMA20 && ta.Indicators.EMA20 > ta.Indicators.EMA50
		case models.SignalShort:
			aligned = ta.CurrentPrice < ta.Indicators.EMA20 && ta.Indicators.EMA20 < ta.Indicators.EMA50
		}
		if aligned {
			total += 6
			reasons = append(reasons, "4h EMA stack aligned (+6)")
		}
	}

	return categoryResult{score: total, reasons: reasons}
}

// scoreVolume implements the flat 10-point category on the 4h interval.
func scoreVolume(direction models.SignalType, analyses map[string]*models.TimeframeAnalysis) categoryResult {
	ta, ok := analyses[volumeInterval]
	if !ok || ta.Indicators == nil || !ta.Indicators.VolumeSpike {
		return categoryResult{}
	}
	return categoryResult{score: 10, reasons: []string{"4h volume spike confirms conviction (+10)"}}
}

// scoreDominance scores the 15-point dominance category, which differs
// between the BTC symbol itself and every other asset.
func scoreDominance(symbol, btcSymbol string, direction models.SignalType, dominance *models.DominanceInterpretation) categoryResult {
	if dominance == nil {
		return categoryResult{}
	}

	var reasons []string
	total := 0
	isBTC := symbol == btcSymbol

	switch {
	case isBTC && direction == models.SignalLong:
		if dominance.BTCDom == models.DominanceBTCFallingGoodAlts {
			total += 5
			reasons = append(reasons, "BTC.D falling favors BTC longs (+5)")
		}
		if dominance.USDTDom == models.DominanceUSDTStableFalling {
			total += 5
			reasons = append(reasons, "USDT.D stable/falling favors risk-on (+5)")
		}
	case isBTC && direction == models.SignalShort:
		if dominance.BTCDom == models.DominanceBTCRisingAltsWeaken {
			total += 5
			reasons = append(reasons, "BTC.D rising favors BTC shorts (+5)")
		}
		if dominance.USDTDom == models.DominanceUSDTRisingRiskOff {
			total += 5
			reasons = append(reasons, "USDT.D rising favors risk-off (+5)")
		}
	case !isBTC && direction == models.SignalLong:
		if dominance.BTCDom == models.DominanceBTCFallingGoodAlts {
			total += 10
			reasons = append(reasons, "BTC.D falling favors altcoins (+10)")
		}
		if dominance.USDTDom != models.DominanceUSDTRisingRiskOff {
			total += 5
			reasons = append(reasons, "USDT.D not rising (+5)")
		}
	case !isBTC && direction == models.SignalShort:
		if dominance.BTCDom == models.DominanceBTCRisingAltsWeaken {
			total += 8
			reasons = append(reasons, "BTC.D rising weakens altcoins (+8)")
		}
		if dominance.USDTDom == models.DominanceUSDTRisingRiskOff {
			total += 7
			reasons = append(reasons, "USDT.D rising favors risk-off shorts (+7)")
		}
	}

	return categoryResult{score: total, reasons: reasons}
}

func confidenceFor(score int) (models.Confidence, bool) {
	switch {
	case score >= 75:
		return models.ConfidenceHigh, true
	case score >= 60:
		return models.ConfidenceMedium, true
	default:
		return "", false
	}
}

// currentPriceFor resolves the current price, preferring 4h then falling
// back to 1h.
func currentPriceFor(analyses map[string]*models.TimeframeAnalysis) (float64, bool) {
	if ta, ok := analyses["4h"]; ok && ta.CurrentPrice != 0 {
		return ta.CurrentPrice, true
	}
	if ta, ok := analyses["1h"]; ok && ta.CurrentPrice != 0 {
		return ta.CurrentPrice, true
	}
	return 0, false
}

func buildSignalLevels(direction models.SignalType, price float64) (entry models.EntryRange, takeProfit []float64, stopLoss float64) {
	entry = models.EntryRange{Min: price * 0.995, Max: price * 1.005}

	if direction == models.SignalLong {
		return entry, []float64{price * 1.02, price * 1.05}, price * 0.98
	}
	return entry, []float64{price * 0.98, price * 0.95}, price * 1.02
}

func timeframeAlignment(direction models.SignalType, analyses map[string]*models.TimeframeAnalysis) *models.TimeframeAlignment {
	_, primaryMatches, primaryPresent := bucketScore(direction, analyses, primaryIntervals, 15, false)
	_, secondaryMatches, secondaryPresent := bucketScore(direction, analyses, secondaryIntervals, 10, true)

	minorAligned := false
	if minor, ok := analyses[minorInterval]; ok && minor.Dow != nil {
		bosMatch := (direction == models.SignalLong && minor.Dow.BOSUp) || (direction == models.SignalShort && minor.Dow.BOSDown)
		minorAligned = trendMatches(direction, minor.Dow.Trend, false) || bosMatch
	}

	return &models.TimeframeAlignment{
		Primary:   primaryPresent && primaryMatches == len(primaryIntervals),
		Secondary: secondaryPresent && secondaryMatches > 0,
		Minor:     minorAligned,
	}
}
