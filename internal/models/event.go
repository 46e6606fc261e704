package models

// Event names published on the Event Bus.
const (
	EventMarketDataUpdated       = "market_data_updated"
	EventMarketAnalysisCompleted = "market_analysis_completed"
	EventPriceUpdateReady        = "price_update_ready"
	EventSignalGenerated         = "signal_generated"
)

// MarketDataUpdatedPayload is the payload for EventMarketDataUpdated.
type MarketDataUpdatedPayload struct {
	Timestamp       int64    `json:"timestamp"`
	Coins           []string `json:"coins"`
	HasCandlesticks bool     `json:"has_candlesticks"`
	HasMetrics      bool     `json:"has_metrics"`
	CorrelationID   string   `json:"correlation_id"`
}

// MarketAnalysisCompletedPayload is the payload for EventMarketAnalysisCompleted.
type MarketAnalysisCompletedPayload struct {
	Timestamp       int64     `json:"timestamp"`
	Sentiment       Sentiment `json:"sentiment"`
	TrendStrength   int       `json:"trend_strength"`
	SymbolsAnalyzed []string  `json:"symbols_analyzed"`
	CorrelationID   string    `json:"correlation_id"`
}

// PriceUpdateReadyPayload is the payload for EventPriceUpdateReady.
type PriceUpdateReadyPayload struct {
	Timestamp     int64              `json:"timestamp"`
	Prices        map[string]float64 `json:"prices"`
	Volatilities  []*Volatility      `json:"volatilities"`
	HasVolatility bool               `json:"has_volatility"`
	CorrelationID string             `json:"correlation_id"`
}
