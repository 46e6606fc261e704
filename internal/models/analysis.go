package models

import "encoding/json"

// Trend is the direction a theory result has classified over the window it
// examined.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// WyckoffPhase is the Wyckoff-cycle classification; the zero value is the
// explicit "no phase detected" state.
type WyckoffPhase string

const (
	WyckoffAccumulation WyckoffPhase = "ACCUMULATION"
	WyckoffMarkup       WyckoffPhase = "MARKUP"
	WyckoffDistribution WyckoffPhase = "DISTRIBUTION"
	WyckoffMarkdown     WyckoffPhase = "MARKDOWN"
	WyckoffNone         WyckoffPhase = ""
)

// DowResult is the tagged result of dow_structure: swing-pivot trend
// classification plus break-of-structure flags.
type DowResult struct {
	Trend              Trend   `json:"trend" bson:"trend"`
	BOSUp              bool    `json:"bos_up" bson:"bos_up"`
	BOSDown            bool    `json:"bos_down" bson:"bos_down"`
	SwingHighCount     int     `json:"swing_high_count" bson:"swing_high_count"`
	SwingLowCount      int     `json:"swing_low_count" bson:"swing_low_count"`
	VolumeConfirmation bool    `json:"volume_confirmation" bson:"volume_confirmation"`
	TrendStrength      float64 `json:"trend_strength" bson:"trend_strength"`
}

// WyckoffResult is the tagged result of wyckoff_phase.
type WyckoffResult struct {
	Phase         WyckoffPhase `json:"phase" bson:"phase"`
	Spring        bool         `json:"spring" bson:"spring"`
	Upthrust      bool         `json:"upthrust" bson:"upthrust"`
	SOS           bool         `json:"sos" bson:"sos"`
	SOW           bool         `json:"sow" bson:"sow"`
	PricePosition float64      `json:"price_position" bson:"price_position"`
	VolumeRatio   float64      `json:"volume_ratio" bson:"volume_ratio"`
	Strength      float64      `json:"strength" bson:"strength"`
}

// GannResult is the tagged result of gann_angle.
type GannResult struct {
	Slope          float64 `json:"slope" bson:"slope"`
	Deviation      float64 `json:"deviation" bson:"deviation"`
	ReversalWindow bool    `json:"reversal_window" bson:"reversal_window"`
	PivotHigh      float64 `json:"pivot_high" bson:"pivot_high"`
	PivotLow       float64 `json:"pivot_low" bson:"pivot_low"`
}

// MACD is the moving-average-convergence-divergence triple. Signal and
// Histogram are absent (nil) when there isn't enough history.
type MACD struct {
	Line      float64  `json:"line" bson:"line"`
	Signal    *float64 `json:"signal,omitempty" bson:"signal,omitempty"`
	Histogram *float64 `json:"histogram,omitempty" bson:"histogram,omitempty"`
}

// IndicatorSet is the tagged result of the classical-indicator bundle.
type IndicatorSet struct {
	EMA20       float64  `json:"ema20" bson:"ema20"`
	EMA50       float64  `json:"ema50" bson:"ema50"`
	EMA200      float64  `json:"ema200" bson:"ema200"`
	RSI         *float64 `json:"rsi,omitempty" bson:"rsi,omitempty"`
	MACD        *MACD    `json:"macd,omitempty" bson:"macd,omitempty"`
	VolumeSpike bool     `json:"volume_spike" bson:"volume_spike"`
}

// TimeframeAnalysis is the full per-(symbol,interval) theory-library output.
type TimeframeAnalysis struct {
	Interval     string         `json:"interval" bson:"interval"`
	Dow          *DowResult     `json:"dow,omitempty" bson:"dow,omitempty"`
	Wyckoff      *WyckoffResult `json:"wyckoff,omitempty" bson:"wyckoff,omitempty"`
	Gann         *GannResult    `json:"gann,omitempty" bson:"gann,omitempty"`
	Indicators   *IndicatorSet  `json:"indicators,omitempty" bson:"indicators,omitempty"`
	CurrentPrice float64        `json:"current_price" bson:"current_price"`
}

// DominanceBTC is the classification of BTC-dominance movement.
type DominanceBTC string

const (
	DominanceBTCRisingAltsWeaken DominanceBTC = "rising_money_into_btc_alts_weaken"
	DominanceBTCFallingGoodAlts  DominanceBTC = "falling_good_for_alts"
	DominanceBTCStable           DominanceBTC = "stable_or_neutral"
)

// DominanceUSDT is the classification of USDT-dominance movement.
type DominanceUSDT string

const (
	DominanceUSDTRisingRiskOff DominanceUSDT = "rising_risk_off_shorts_favored"
	DominanceUSDTStableFalling DominanceUSDT = "stable_or_falling"
)

// DominanceInterpretation is the Analyzer's reading of the macro metrics.
type DominanceInterpretation struct {
	BTCDom  DominanceBTC  `json:"btc_dom" bson:"btc_dom"`
	USDTDom DominanceUSDT `json:"usdt_dom" bson:"usdt_dom"`
}

// DominanceAnalysis carries both the raw figures and their interpretation
// forward into the AnalysisDocument so the Scorer never has to re-derive it.
type DominanceAnalysis struct {
	BTCDominance   *float64                 `json:"btc_dominance,omitempty" bson:"btc_dominance,omitempty"`
	USDTDominance  *float64                 `json:"usdt_dominance,omitempty" bson:"usdt_dominance,omitempty"`
	Interpretation *DominanceInterpretation `json:"interpretation" bson:"interpretation"`
}

// Sentiment is the Analyzer's overall market read, derived from BTC's
// per-interval evidence.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// AnalysisDocument is the Analyzer's persisted/emitted output for one
// market_data_updated event.
type AnalysisDocument struct {
	Timestamp               int64                                     `json:"timestamp" bson:"timestamp"`
	SourceSnapshotTimestamp int64                                     `json:"source_snapshot_timestamp" bson:"source_snapshot_timestamp"`
	SymbolAnalyses          map[string]map[string]*TimeframeAnalysis  `json:"symbol_analyses" bson:"symbol_analyses"`
	DominanceAnalysis       *DominanceAnalysis                        `json:"dominance_analysis" bson:"dominance_analysis"`
	Sentiment               Sentiment                                 `json:"sentiment" bson:"sentiment"`
	TrendStrength           int                                       `json:"trend_strength" bson:"trend_strength"`
	SentimentDetails        map[string]interface{}                    `json:"sentiment_details,omitempty" bson:"sentiment_details,omitempty"`
}

func (a *AnalysisDocument) String() string {
	b, _ := json.Marshal(a)
	return string(b)
}
