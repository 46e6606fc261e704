// Package monitor implements the Price Monitor: a 60-second cadence loop
// that samples current prices, keeps a 15-minute time-windowed history per
// symbol, detects short-term pumps/dumps, persists a PriceUpdate, and
// emits price_update_ready. Fetch volume is small enough for a serial
// per-cycle loop, so there's no worker-pool fan-out here — just the
// time-windowed buffer in window.go.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cryptopulse/signalpipe/internal/config"
	"github.com/cryptopulse/signalpipe/internal/externals/binance"
	"github.com/cryptopulse/signalpipe/internal/kernel"
	"github.com/cryptopulse/signalpipe/internal/libs/circuitbreaker"
	"github.com/cryptopulse/signalpipe/internal/libs/docstore"
	"github.com/cryptopulse/signalpipe/internal/libs/errs"
	"github.com/cryptopulse/signalpipe/internal/libs/eventbus"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/cryptopulse/signalpipe/internal/libs/retry"
	"github.com/cryptopulse/signalpipe/internal/models"
)

const depBinance = "binance"

type Service struct {
	cfg      config.MonitorConfig
	coins    []string
	btcCoin  string
	log      *logger.Logger
	metrics  *kernel.Metrics
	binance  *binance.Client
	store    *docstore.Store
	bus      *eventbus.Bus
	breakers *circuitbreaker.Registry

	retryPolicy retry.Policy

	mu      sync.Mutex
	windows map[string]*priceWindow
}

func New(cfg config.MonitorConfig, coins []string, retryCfg config.RetryConfig, log *logger.Logger, metrics *kernel.Metrics, binanceClient *binance.Client, store *docstore.Store, bus *eventbus.Bus, breakers *circuitbreaker.Registry) *Service {
	return &Service{
		cfg:      cfg,
		coins:    coins,
		btcCoin:  pickBTC(coins),
		log:      log,
		metrics:  metrics,
		binance:  binanceClient,
		store:    store,
		bus:      bus,
		breakers: breakers,
		retryPolicy: retry.Policy{
			MaxAttempts:  retryCfg.MaxAttempts,
			InitialDelay: retryCfg.InitialDelay,
			Base:         retryCfg.Base,
			MaxDelay:     retryCfg.MaxDelay,
			Retryable:    errs.IsRetryable,
		},
		windows: make(map[string]*priceWindow),
	}
}

func pickBTC(coins []string) string {
	for _, c := range coins {
		if c == "BTCUSDT" {
			return c
		}
	}
	if len(coins) > 0 {
		return coins[0]
	}
	return "BTCUSDT"
}

func (s *Service) Run(ctx context.Context) error {
	for {
		s.cycle(ctx)

		if kernel.Sleep(ctx, s.cfg.Cadence) {
			return nil
		}
	}
}

func (s *Service) windowFor(symbol string) *priceWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[symbol]
	if !ok {
		w = newPriceWindow()
		s.windows[symbol] = w
	}
	return w
}

// cycle samples, append-and-trims, detects, persists, and emits. A price
// fetch failure for one symbol is logged and that symbol is simply absent
// from this cycle's PriceUpdate.
func (s *Service) cycle(ctx context.Context) {
	start := time.Now()
	now := start

	correlationID := uuid.NewString()
	log := s.log.WithCorrelationID(correlationID)

	prices := make(map[string]float64, len(s.coins))
	var volatilities []*models.Volatility

	for _, symbol := range s.coins {
		price, err := s.fetchPrice(ctx, symbol)
		if err != nil {
			log.Warn("price fetch failed, omitting", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		prices[symbol] = price

		w := s.windowFor(symbol)
		w.add(now, price, s.cfg.RingWindow)

		volatilities = append(volatilities, s.detect(symbol, w, now)...)
	}

	if len(prices) == 0 {
		log.Warn("monitor cycle produced no prices, skipping persistence and emission")
		return
	}

	update := &models.PriceUpdate{
		Timestamp:    now.Unix(),
		Prices:       prices,
		Volatilities: volatilities,
		Message:      summaryMessage(volatilities),
	}

	if err := s.store.SavePriceUpdate(ctx, update); err != nil {
		log.Error("price update persistence failed, not emitting", zap.Error(err))
		s.metrics.Error("database_error")
		return
	}

	payload := models.PriceUpdateReadyPayload{
		Timestamp:     update.Timestamp,
		Prices:        prices,
		Volatilities:  volatilities,
		HasVolatility: len(volatilities) > 0,
		CorrelationID: correlationID,
	}

	if err := s.bus.Publish(ctx, models.EventPriceUpdateReady, payload); err != nil {
		log.Error("event publish failed", zap.Error(err))
		s.metrics.Error("event_publish_error")
		return
	}

	s.metrics.EventPublished(models.EventPriceUpdateReady)
	s.metrics.ObserveProcessing("monitor_cycle", time.Since(start))
}

// detect flags a 5-minute move past Pump5mThreshold on any symbol, a
// 15-minute move past Pump15mThreshold on any non-BTC symbol, or a
// 15-minute move past BTC15mThreshold specifically on BTC.
func (s *Service) detect(symbol string, w *priceWindow, now time.Time) []*models.Volatility {
	var out []*models.Volatility

	if change, ok := w.changeSince(now, 5*time.Minute); ok {
		if v := classify(symbol, models.Timeframe5m, change, s.cfg.Pump5mThreshold); v != nil {
			out = append(out, v)
		}
	}

	if change, ok := w.changeSince(now, 15*time.Minute); ok {
		threshold := s.cfg.Pump15mThreshold
		if symbol == s.btcCoin {
			threshold = s.cfg.BTC15mThreshold
		}
		if v := classify(symbol, models.Timeframe15m, change, threshold); v != nil {
			if symbol == s.btcCoin {
				v.Type = models.VolatilityBTCMovement
			}
			out = append(out, v)
		}
	}

	return out
}

func classify(symbol string, tf models.Timeframe, change, threshold float64) *models.Volatility {
	switch {
	case change >= threshold:
		return &models.Volatility{Type: models.VolatilityPump, Symbol: symbol, ChangePct: change * 100, Timeframe: tf}
	case change <= -threshold:
		return &models.Volatility{Type: models.VolatilityDump, Symbol: symbol, ChangePct: change * 100, Timeframe: tf}
	default:
		return nil
	}
}

func summaryMessage(volatilities []*models.Volatility) string {
	if len(volatilities) == 0 {
		return "no significant price movement"
	}
	msg := ""
	for i, v := range volatilities {
		if i > 0 {
			msg += "; "
		}
		msg += string(v.Type) + " " + v.Symbol
	}
	return msg
}

func (s *Service) fetchPrice(ctx context.Context, symbol string) (float64, error) {
	breaker := s.breakers.Get(depBinance)

	var price float64
	err := retry.Do(ctx, s.log, "binance.CurrentPrice", s.retryPolicy, func(ctx context.Context) error {
		err := breaker.Call(func() error {
			p, err := s.binance.CurrentPrice(ctx, symbol)
			if err != nil {
				return err
			}
			price = p
			return nil
		})
		if err != nil {
			s.metrics.ExternalCall(depBinance, "failure")
			return err
		}
		s.metrics.ExternalCall(depBinance, "success")
		return nil
	})

	return price, err
}
