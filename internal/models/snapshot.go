package models

import "encoding/json"

// MacroMetrics holds market-wide figures fetched alongside per-symbol prices.
// Every field is independently nullable; absent values are left at zero and
// omitted from persistence via omitempty.
type MacroMetrics struct {
	BTCDominance     *float64 `json:"btc_dominance,omitempty" bson:"btc_dominance,omitempty"`
	USDTDominance    *float64 `json:"usdt_dominance,omitempty" bson:"usdt_dominance,omitempty"`
	TotalMarketCap   *float64 `json:"total_market_cap,omitempty" bson:"total_market_cap,omitempty"`
	BTCVolatility    *float64 `json:"btc_volatility,omitempty" bson:"btc_volatility,omitempty"`
	Total2MarketCap  *float64 `json:"total2_market_cap,omitempty" bson:"total2_market_cap,omitempty"`
	Total3MarketCap  *float64 `json:"total3_market_cap,omitempty" bson:"total3_market_cap,omitempty"`
}

// MarketSnapshot is one Ingestor cycle's output: prices, multi-timeframe
// candlesticks, and macro metrics. A snapshot is valid if Prices is non-empty.
type MarketSnapshot struct {
	ID            string                          `json:"_id" bson:"_id"`
	Timestamp     int64                           `json:"timestamp" bson:"timestamp"`
	Prices        map[string]float64              `json:"prices" bson:"prices"`
	Candlesticks  map[string]map[string][]*Candle `json:"candlesticks" bson:"candlesticks"`
	Metrics       *MacroMetrics                   `json:"metrics" bson:"metrics"`
}

func (s *MarketSnapshot) String() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Valid reports the invariant from the data model: non-empty prices.
func (s *MarketSnapshot) Valid() bool {
	return s != nil && len(s.Prices) > 0
}
