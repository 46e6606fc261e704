// Package scorer implements the Signal Scorer: event-driven on
// market_analysis_completed, it evaluates LONG and SHORT for every symbol
// in the latest analysis against the weighted rule table in scoring.go,
// ranks surviving candidates by score through internal/libs/heap (a
// priority-queue primitive repurposed from connection scheduling to
// candidate-signal scheduling), persists each Signal, and emits
// signal_generated. Every candidate clearing the score floor is
// persisted and emitted — the heap only orders the emission order, it
// doesn't truncate unless an operator has set ScorerConfig.MaxCandidates
// above its default of 0 (unbounded), in which case each candidate the
// cap evicts is logged rather than dropped silently.
package scorer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cryptopulse/signalpipe/internal/config"
	"github.com/cryptopulse/signalpipe/internal/kernel"
	"github.com/cryptopulse/signalpipe/internal/libs/docstore"
	"github.com/cryptopulse/signalpipe/internal/libs/eventbus"
	"github.com/cryptopulse/signalpipe/internal/libs/heap"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/cryptopulse/signalpipe/internal/models"
)

const groupName = "signal_scorer"

type Service struct {
	cfg     config.ScorerConfig
	btcCoin string
	log     *logger.Logger
	metrics *kernel.Metrics
	store   *docstore.Store
	bus     *eventbus.Bus
	safety  SafetyCheck

	consumerName string
}

func New(cfg config.ScorerConfig, btcCoin string, log *logger.Logger, metrics *kernel.Metrics, store *docstore.Store, bus *eventbus.Bus, consumerName string) *Service {
	return &Service{
		cfg:          cfg,
		btcCoin:      btcCoin,
		log:          log,
		metrics:      metrics,
		store:        store,
		bus:          bus,
		safety:       DefaultSafetyCheck,
		consumerName: consumerName,
	}
}

func (s *Service) Run(ctx context.Context) error {
	return s.bus.Subscribe(ctx, s.log, s.consumerName, groupName, []string{models.EventMarketAnalysisCompleted}, s.handle)
}

// signalCandidate adapts a scored Signal to internal/libs/heap.Ranked so
// the bounded set can order candidates purely by score.
type signalCandidate struct {
	signal *models.Signal
}

func (c signalCandidate) ID() string     { return c.signal.SignalID }
func (c signalCandidate) Score() float64 { return float64(c.signal.Score) }

func (s *Service) handle(ctx context.Context, msg *eventbus.Message) error {
	start := time.Now()
	var payload models.MarketAnalysisCompletedPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		s.log.Warn("malformed market_analysis_completed payload", zap.Error(err))
		s.metrics.Error("schema_validation_error")
		return nil
	}
	log := s.log.WithCorrelationID(payload.CorrelationID)

	doc, err := s.store.LatestAnalysis(ctx)
	if err != nil {
		log.Error("failed to load latest analysis", zap.Error(err))
		s.metrics.Error("database_error")
		return err
	}
	if doc == nil {
		log.Warn("no analysis available, skipping scoring")
		return nil
	}

	ranked := heap.NewBoundedSet(s.cfg.MaxCandidates)
	ranked.OnEvict(func(item heap.Ranked) {
		candidate := item.(signalCandidate)
		log.Warn("candidate evicted by max_candidates cap",
			zap.String("asset", candidate.signal.Asset), zap.String("signal_id", candidate.signal.SignalID),
			zap.Float64("score", candidate.Score()))
		s.metrics.Error("candidate_capacity_evicted")
	})

	for symbol, analyses := range doc.SymbolAnalyses {
		for _, direction := range []models.SignalType{models.SignalLong, models.SignalShort} {
			sig := s.buildCandidate(symbol, direction, analyses, doc, payload.CorrelationID)
			if sig == nil {
				continue
			}
			ranked.Add(signalCandidate{signal: sig})
		}
	}

	if ranked.IsEmpty() {
		log.Info("no candidate cleared the score threshold")
		s.metrics.ObserveProcessing("score_cycle", time.Since(start))
		return nil
	}

	emitted := 0
	for !ranked.IsEmpty() {
		item := ranked.PopStrongest()
		candidate, ok := item.(signalCandidate)
		if !ok {
			continue
		}
		sig := candidate.signal

		if err := sig.Validate(); err != nil {
			log.Warn("candidate failed validation, dropping", zap.String("asset", sig.Asset), zap.Error(err))
			s.metrics.Error("schema_validation_error")
			continue
		}

		if err := s.store.SaveSignal(ctx, sig); err != nil {
			log.Error("signal persistence failed, not emitting", zap.String("asset", sig.Asset), zap.Error(err))
			s.metrics.Error("database_error")
			continue
		}

		if err := s.bus.Publish(ctx, models.EventSignalGenerated, sig); err != nil {
			log.Error("event publish failed", zap.String("asset", sig.Asset), zap.Error(err))
			s.metrics.Error("event_publish_error")
			continue
		}

		s.metrics.EventPublished(models.EventSignalGenerated)
		emitted++
	}

	s.metrics.ObserveProcessing("score_cycle", time.Since(start))
	log.Info("scoring cycle complete", zap.Int("signals_emitted", emitted))
	return nil
}

// buildCandidate scores one (symbol, direction) pair and returns nil if a
// guardrail trips, the score misses the 60-point floor, or no usable
// current price could be resolved.
func (s *Service) buildCandidate(symbol string, direction models.SignalType, analyses map[string]*models.TimeframeAnalysis, doc *models.AnalysisDocument, correlationID string) *models.Signal {
	var dominance *models.DominanceInterpretation
	if doc.DominanceAnalysis != nil {
		dominance = doc.DominanceAnalysis.Interpretation
	}

	score, reasons, ok := scoreCandidate(symbol, s.btcCoin, direction, analyses, dominance, s.safety)
	if !ok {
		return nil
	}

	confidence, ok := confidenceFor(score)
	if !ok {
		return nil
	}

	price, ok := currentPriceFor(analyses)
	if !ok {
		return nil
	}

	entry, takeProfit, stopLoss := buildSignalLevels(direction, price)

	return &models.Signal{
		SignalID:           uuid.NewString(),
		Timestamp:          doc.Timestamp,
		Asset:              symbol,
		Type:               direction,
		Score:              score,
		Confidence:         confidence,
		EntryRange:         entry,
		TakeProfit:         takeProfit,
		StopLoss:           stopLoss,
		Reasons:            reasons,
		TimeframeAlignment: timeframeAlignment(direction, analyses),
		CorrelationID:      correlationID,
	}
}
