// formatting.go renders the three message shapes the Dispatcher sends,
// kept free of I/O so each can be unit tested against fixed inputs.
package dispatcher

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cryptopulse/signalpipe/internal/models"
)

// formatPriceLine renders the compact price-channel line: a pipe-separated
// SYMBOL:PRICE list in a stable (sorted) order with a local-timezone
// timestamp appended.
func formatPriceLine(prices map[string]float64, at time.Time, loc *time.Location) string {
	symbols := make([]string, 0, len(prices))
	for symbol := range prices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	parts := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		parts = append(parts, fmt.Sprintf("%s:%s", symbol, formatPrice(prices[symbol])))
	}

	return fmt.Sprintf("%s @ %s", strings.Join(parts, "|"), at.In(loc).Format("15:04:05"))
}

func formatPrice(p float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", p), "0"), ".")
}

// formatSignalMessage renders the signals-channel rich message: asset,
// type, score/confidence, entry/TP/SL, reasons by category, and a
// timeframe-alignment summary line.
func formatSignalMessage(sig *models.Signal) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s %s</b>\n", sig.Asset, sig.Type)
	fmt.Fprintf(&b, "Score: %d (%s)\n", sig.Score, sig.Confidence)
	fmt.Fprintf(&b, "Entry: %s - %s\n", formatPrice(sig.EntryRange.Min), formatPrice(sig.EntryRange.Max))
	fmt.Fprintf(&b, "Take-profit: %s\n", joinPrices(sig.TakeProfit))
	fmt.Fprintf(&b, "Stop-loss: %s\n", formatPrice(sig.StopLoss))

	categories := make([]string, 0, len(sig.Reasons))
	for category := range sig.Reasons {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		reasons := sig.Reasons[category]
		if len(reasons) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", capitalize(category), strings.Join(reasons, "; "))
	}

	if sig.TimeframeAlignment != nil {
		fmt.Fprintf(&b, "Alignment: primary=%t secondary=%t minor=%t\n",
			sig.TimeframeAlignment.Primary, sig.TimeframeAlignment.Secondary, sig.TimeframeAlignment.Minor)
	}

	if sig.LiquidityNote != "" {
		fmt.Fprintf(&b, "Liquidity: %s\n", sig.LiquidityNote)
	}
	if sig.FundingNote != "" {
		fmt.Fprintf(&b, "Funding: %s\n", sig.FundingNote)
	}

	return strings.TrimRight(b.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func joinPrices(prices []float64) string {
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = formatPrice(p)
	}
	return strings.Join(parts, ", ")
}

// outlookInput carries what formatOutlookMessage needs, decoupled from the
// docstore type so it can be built from a possibly-stale/absent document.
type outlookInput struct {
	available     bool
	sentiment     models.Sentiment
	trendStrength int
	btcDominance  *float64
	usdtDominance *float64
	interp        *models.DominanceInterpretation
	recent        []models.Signal
}

// formatOutlookMessage renders the periodic 5-minute outlook: bias,
// confidence, BTC.D/USDT.D, and a conflict note when the Analyzer's
// USDT-dominance threshold (5, the live gate) would have read differently
// against the Dispatcher's documented prior value (8, config default
// usdt_dominance_conflict_threshold) — surfaced rather than silently
// reconciled, since the two were never unified upstream.
func formatOutlookMessage(in outlookInput, conflictThreshold float64) string {
	if !in.available {
		msg := "<b>Market Outlook</b>\nData temporarily unavailable; showing no outlook this cycle."
		if line := recentSignalsLine(in.recent); line != "" {
			msg += "\n" + line
		}
		return msg
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Market Outlook</b>\n")
	fmt.Fprintf(&b, "Bias: %s (strength %d)\n", in.sentiment, in.trendStrength)

	if in.btcDominance != nil {
		fmt.Fprintf(&b, "BTC.D: %.2f%%\n", *in.btcDominance)
	}
	if in.usdtDominance != nil {
		fmt.Fprintf(&b, "USDT.D: %.2f%%\n", *in.usdtDominance)

		if *in.usdtDominance > conflictThreshold && (in.interp == nil || in.interp.USDTDom != models.DominanceUSDTRisingRiskOff) {
			fmt.Fprintf(&b, "Note: USDT.D above the conservative %.0f%% threshold though not yet flagged risk-off by the live 5%% gate.\n", conflictThreshold)
		}
	}

	if in.interp != nil {
		fmt.Fprintf(&b, "Interpretation: btc_dom=%s usdt_dom=%s\n", in.interp.BTCDom, in.interp.USDTDom)
	}

	if line := recentSignalsLine(in.recent); line != "" {
		fmt.Fprintf(&b, "%s\n", line)
	}

	return strings.TrimRight(b.String(), "\n")
}

// recentSignalsLine summarizes the latest emitted signals, newest first;
// empty when none have been emitted yet.
func recentSignalsLine(recent []models.Signal) string {
	if len(recent) == 0 {
		return ""
	}
	parts := make([]string, 0, len(recent))
	for _, sig := range recent {
		parts = append(parts, fmt.Sprintf("%s %s (%d)", sig.Asset, sig.Type, sig.Score))
	}
	return "Recent signals: " + strings.Join(parts, ", ")
}
