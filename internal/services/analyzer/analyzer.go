// Package analyzer implements the Multi-Theory Analyzer: event-driven on
// market_data_updated, it runs the technical theory library
// (internal/theory) across every symbol and timeframe in the latest
// MarketSnapshot, interprets macro dominance, derives an overall market
// sentiment from BTC's evidence, and emits market_analysis_completed.
package analyzer

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/cryptopulse/signalpipe/internal/config"
	"github.com/cryptopulse/signalpipe/internal/kernel"
	"github.com/cryptopulse/signalpipe/internal/libs/docstore"
	"github.com/cryptopulse/signalpipe/internal/libs/eventbus"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/cryptopulse/signalpipe/internal/models"
	"github.com/cryptopulse/signalpipe/internal/theory"
)

const groupName = "market_analyzer"

type Service struct {
	cfg     config.AnalyzerConfig
	log     *logger.Logger
	metrics *kernel.Metrics
	store   *docstore.Store
	bus     *eventbus.Bus

	consumerName string
}

func New(cfg config.AnalyzerConfig, log *logger.Logger, metrics *kernel.Metrics, store *docstore.Store, bus *eventbus.Bus, consumerName string) *Service {
	return &Service{cfg: cfg, log: log, metrics: metrics, store: store, bus: bus, consumerName: consumerName}
}

// Run is the kernel.Loop body: subscribes to market_data_updated and
// processes events until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	return s.bus.Subscribe(ctx, s.log, s.consumerName, groupName, []string{models.EventMarketDataUpdated}, s.handle)
}

func (s *Service) handle(ctx context.Context, msg *eventbus.Message) error {
	start := time.Now()
	correlationID := correlationIDFromPayload(msg.Data)
	log := s.log.WithCorrelationID(correlationID)

	snapshot, err := s.store.LatestMarketSnapshot(ctx)
	if err != nil {
		log.Error("failed to load latest snapshot", zap.Error(err))
		s.metrics.Error("database_error")
		return err
	}
	if snapshot == nil || !snapshot.Valid() {
		log.Warn("no valid snapshot available, skipping analysis")
		s.metrics.EventConsumed(models.EventMarketDataUpdated, "skipped")
		return nil
	}

	symbolAnalyses := make(map[string]map[string]*models.TimeframeAnalysis, len(snapshot.Candlesticks))
	for symbol, intervals := range snapshot.Candlesticks {
		perInterval := make(map[string]*models.TimeframeAnalysis, len(intervals))
		for interval, candles := range intervals {
			if len(candles) < theory.MinCandles {
				continue
			}
			ta := theory.Analyze(interval, candles)
			if ta == nil {
				continue
			}
			perInterval[interval] = ta
		}
		if len(perInterval) > 0 {
			symbolAnalyses[symbol] = perInterval
		}
	}

	dominance := s.interpretDominance(snapshot)

	btcSymbol := btcSymbolIn(symbolAnalyses)
	sentiment, trendStrength, details := s.computeSentiment(symbolAnalyses[btcSymbol], dominance.Interpretation)

	doc := &models.AnalysisDocument{
		Timestamp:               time.Now().Unix(),
		SourceSnapshotTimestamp: snapshot.Timestamp,
		SymbolAnalyses:          symbolAnalyses,
		DominanceAnalysis:       dominance,
		Sentiment:               sentiment,
		TrendStrength:           trendStrength,
		SentimentDetails:        details,
	}

	if err := s.store.SaveAnalysis(ctx, doc); err != nil {
		log.Error("failed to persist analysis", zap.Error(err))
		s.metrics.Error("database_error")
		return err
	}

	symbols := make([]string, 0, len(symbolAnalyses))
	for symbol := range symbolAnalyses {
		symbols = append(symbols, symbol)
	}

	payload := models.MarketAnalysisCompletedPayload{
		Timestamp:       doc.Timestamp,
		Sentiment:       sentiment,
		TrendStrength:   trendStrength,
		SymbolsAnalyzed: symbols,
		CorrelationID:   correlationID,
	}

	if err := s.bus.Publish(ctx, models.EventMarketAnalysisCompleted, payload); err != nil {
		log.Error("event publish failed", zap.Error(err))
		s.metrics.Error("event_publish_error")
		return err
	}

	s.metrics.EventConsumed(models.EventMarketDataUpdated, "success")
	s.metrics.EventPublished(models.EventMarketAnalysisCompleted)
	s.metrics.ObserveProcessing("analysis_cycle", time.Since(start))
	log.Info("analysis complete", zap.Int("symbols", len(symbols)), zap.String("sentiment", string(sentiment)))
	return nil
}

// interpretDominance classifies the macro BTC/USDT dominance readings
// against configured thresholds (usdt > 5 by default); the Dispatcher's
// outlook-conflict detector separately documents a disagreeing prior
// value of 8.
func (s *Service) interpretDominance(snapshot *models.MarketSnapshot) *models.DominanceAnalysis {
	da := &models.DominanceAnalysis{Interpretation: &models.DominanceInterpretation{
		BTCDom:  models.DominanceBTCStable,
		USDTDom: models.DominanceUSDTStableFalling,
	}}

	if snapshot.Metrics == nil {
		return da
	}

	da.BTCDominance = snapshot.Metrics.BTCDominance
	da.USDTDominance = snapshot.Metrics.USDTDominance

	if snapshot.Metrics.BTCDominance != nil {
		switch {
		case *snapshot.Metrics.BTCDominance > s.cfg.BTCDominanceRisingThreshold:
			da.Interpretation.BTCDom = models.DominanceBTCRisingAltsWeaken
		case *snapshot.Metrics.BTCDominance < s.cfg.BTCDominanceFallingThreshold:
			da.Interpretation.BTCDom = models.DominanceBTCFallingGoodAlts
		}
	}

	if snapshot.Metrics.USDTDominance != nil && *snapshot.Metrics.USDTDominance > s.cfg.USDTDominanceRisingThreshold {
		da.Interpretation.USDTDom = models.DominanceUSDTRisingRiskOff
	}

	return da
}

// computeSentiment tallies sentiment from BTC's evidence: each item across
// BTC's per-interval analyses (Dow trend, Wyckoff phase, RSI side of 50,
// MACD histogram sign) plus the dominance bias contributes to a
// bullish/bearish tally; bullish_ratio = bullish/total.
func (s *Service) computeSentiment(btcAnalyses map[string]*models.TimeframeAnalysis, dominance *models.DominanceInterpretation) (models.Sentiment, int, map[string]interface{}) {
	var bullish, bearish, total int

	for _, ta := range btcAnalyses {
		if ta.Dow != nil {
			switch ta.Dow.Trend {
			case models.TrendBullish:
				bullish++
				total++
			case models.TrendBearish:
				bearish++
				total++
			}
		}

		if ta.Wyckoff != nil {
			switch ta.Wyckoff.Phase {
			case models.WyckoffAccumulation, models.WyckoffMarkup:
				bullish++
				total++
			case models.WyckoffDistribution, models.WyckoffMarkdown:
				bearish++
				total++
			}
		}

		if ta.Indicators != nil {
			if ta.Indicators.RSI != nil {
				total++
				if *ta.Indicators.RSI > 50 {
					bullish++
				} else {
					bearish++
				}
			}

			if ta.Indicators.MACD != nil && ta.Indicators.MACD.Histogram != nil {
				h := *ta.Indicators.MACD.Histogram
				switch {
				case h > 0:
					bullish++
					total++
				case h < 0:
					bearish++
					total++
				}
			}
		}
	}

	if dominance != nil {
		switch dominance.BTCDom {
		case models.DominanceBTCFallingGoodAlts:
			bullish++
			total++
		case models.DominanceBTCRisingAltsWeaken:
			bearish++
			total++
		}
	}

	details := map[string]interface{}{
		"bullish_signals": bullish,
		"bearish_signals": bearish,
		"total_signals":   total,
	}

	if total == 0 {
		details["bullish_ratio"] = 0.0
		return models.SentimentNeutral, 0, details
	}

	bullishRatio := float64(bullish) / float64(total)
	details["bullish_ratio"] = bullishRatio

	sentiment := models.SentimentNeutral
	switch {
	case bullishRatio > 0.6:
		sentiment = models.SentimentBullish
	case bullishRatio < 0.4:
		sentiment = models.SentimentBearish
	}

	trendStrength := int(math.Floor(math.Abs(bullishRatio-0.5) * 200))
	trendStrength = clampInt(trendStrength, 0, 100)

	return sentiment, trendStrength, details
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func btcSymbolIn(analyses map[string]map[string]*models.TimeframeAnalysis) string {
	if _, ok := analyses["BTCUSDT"]; ok {
		return "BTCUSDT"
	}
	for symbol := range analyses {
		return symbol
	}
	return "BTCUSDT"
}

func correlationIDFromPayload(data []byte) string {
	var payload struct {
		CorrelationID string `json:"correlation_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.CorrelationID
}
