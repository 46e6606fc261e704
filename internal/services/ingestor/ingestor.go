// Package ingestor implements the Market Data Ingestor: a 5-minute
// cadence loop that fetches prices, multi-timeframe candlesticks, and
// macro metrics, persists a MarketSnapshot, and emits market_data_updated.
// The per-symbol/per-timeframe fan-out runs through the fixed-size job
// pool in internal/libs/worker instead of a single serial loop.
package ingestor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cryptopulse/signalpipe/internal/config"
	"github.com/cryptopulse/signalpipe/internal/externals/binance"
	"github.com/cryptopulse/signalpipe/internal/externals/cmc"
	"github.com/cryptopulse/signalpipe/internal/kernel"
	"github.com/cryptopulse/signalpipe/internal/libs/circuitbreaker"
	"github.com/cryptopulse/signalpipe/internal/libs/docstore"
	"github.com/cryptopulse/signalpipe/internal/libs/errs"
	"github.com/cryptopulse/signalpipe/internal/libs/eventbus"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/cryptopulse/signalpipe/internal/libs/retry"
	"github.com/cryptopulse/signalpipe/internal/libs/worker"
	"github.com/cryptopulse/signalpipe/internal/models"
)

const (
	depBinance = "binance"
	depCMC     = "cmc"
)

type Service struct {
	cfg     config.Config
	log     *logger.Logger
	metrics *kernel.Metrics

	binance *binance.Client
	cmc     *cmc.Client
	store   *docstore.Store
	bus     *eventbus.Bus

	breakers    *circuitbreaker.Registry
	retryPolicy retry.Policy
}

func New(cfg config.Config, log *logger.Logger, metrics *kernel.Metrics, binanceClient *binance.Client, cmcClient *cmc.Client, store *docstore.Store, bus *eventbus.Bus, breakers *circuitbreaker.Registry) *Service {
	return &Service{
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
		binance:  binanceClient,
		cmc:      cmcClient,
		store:    store,
		bus:      bus,
		breakers: breakers,
		retryPolicy: retry.Policy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			Base:         cfg.Retry.Base,
			MaxDelay:     cfg.Retry.MaxDelay,
			Retryable:    errs.IsRetryable,
		},
	}
}

// Run is the kernel.Loop body: one cycle every IngestorConfig.Cadence,
// chunked-sleeping between cycles so shutdown is observed within ~1s.
func (s *Service) Run(ctx context.Context) error {
	for {
		s.cycle(ctx)

		if kernel.Sleep(ctx, s.cfg.Ingestor.Cadence) {
			return nil
		}
	}
}

type jobKind int

const (
	jobPrice jobKind = iota
	jobCandle
)

type job struct {
	kind     jobKind
	symbol   string
	interval string
}

// cycle fetches prices, candlesticks, and macro metrics and assembles a
// MarketSnapshot. A failed external call leaves its field absent in the
// snapshot. The cycle ends without emitting when no price at all was
// fetched (nothing is persisted then) or when the snapshot write fails.
func (s *Service) cycle(ctx context.Context) {
	correlationID := uuid.NewString()
	log := s.log.WithCorrelationID(correlationID)
	start := time.Now()

	var mu sync.Mutex
	prices := make(map[string]float64)
	candles := make(map[string]map[string][]*models.Candle)

	pool, err := worker.New(s.log, &worker.PoolConfig{
		NumProcess:     int32(s.cfg.Ingestor.FetchConcurrency),
		PollingBackoff: time.Second,
	})
	if err != nil {
		log.Error("failed to start fetch pool", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	pool.WithProcess(func(_ context.Context, msg interface{}) error {
		defer wg.Done()
		j := msg.(job)

		switch j.kind {
		case jobPrice:
			price, err := s.fetchPrice(ctx, j.symbol)
			if err != nil {
				log.Warn("price fetch failed, omitting", zap.String("symbol", j.symbol), zap.Error(err))
				return err
			}
			mu.Lock()
			prices[j.symbol] = price
			mu.Unlock()
		case jobCandle:
			cs, err := s.fetchCandles(ctx, j.symbol, j.interval)
			if err != nil {
				log.Warn("candle fetch failed, omitting", zap.String("symbol", j.symbol), zap.String("interval", j.interval), zap.Error(err))
				return err
			}
			mu.Lock()
			if candles[j.symbol] == nil {
				candles[j.symbol] = make(map[string][]*models.Candle)
			}
			candles[j.symbol][j.interval] = cs
			mu.Unlock()
		}
		return nil
	})

	if err := pool.Start(); err != nil {
		log.Error("failed to start fetch pool", zap.Error(err))
		return
	}

	for _, symbol := range s.cfg.Coins {
		wg.Add(1)
		pool.SendJob(ctx, job{kind: jobPrice, symbol: symbol})
	}
	for _, symbol := range s.cfg.Coins {
		for _, interval := range s.cfg.Timeframes {
			wg.Add(1)
			pool.SendJob(ctx, job{kind: jobCandle, symbol: symbol, interval: interval})
		}
	}

	wg.Wait()
	pool.Stop()

	metrics := s.fetchMacroMetrics(ctx, log)
	metrics.BTCVolatility = s.btcVolatility(candles)

	snapshot := &models.MarketSnapshot{
		ID:           fmt.Sprintf("market_%d", time.Now().Unix()),
		Timestamp:    time.Now().Unix(),
		Prices:       prices,
		Candlesticks: candles,
		Metrics:      metrics,
	}

	if !snapshot.Valid() {
		log.Warn("cycle produced no prices, skipping persistence and emission")
		return
	}

	if err := s.store.SaveMarketSnapshot(ctx, snapshot); err != nil {
		log.Error("snapshot persistence failed, not emitting", zap.Error(err))
		s.metrics.Error("database_error")
		return
	}

	coins := make([]string, 0, len(prices))
	for symbol := range prices {
		coins = append(coins, symbol)
	}

	payload := models.MarketDataUpdatedPayload{
		Timestamp:       snapshot.Timestamp,
		Coins:           coins,
		HasCandlesticks: len(candles) > 0,
		HasMetrics:      metrics.BTCDominance != nil || metrics.USDTDominance != nil || metrics.TotalMarketCap != nil,
		CorrelationID:   correlationID,
	}

	if err := s.bus.Publish(ctx, models.EventMarketDataUpdated, payload); err != nil {
		log.Error("event publish failed", zap.Error(err))
		s.metrics.Error("event_publish_error")
		return
	}

	s.metrics.EventPublished(models.EventMarketDataUpdated)
	s.metrics.ObserveProcessing("ingest_cycle", time.Since(start))
	log.Info("ingest cycle complete", zap.Int("symbols", len(coins)), zap.Duration("took", time.Since(start)))
}

// callGuarded wraps fn with the retry wrapper outermost and the named
// circuit breaker innermost, so each retry attempt re-checks the breaker
// and a breaker trip short-circuits the remaining attempts immediately;
// retry.Do never retries circuitbreaker.ErrOpen.
func (s *Service) callGuarded(ctx context.Context, dependency, name string, fn func(ctx context.Context) error) error {
	breaker := s.breakers.Get(dependency)

	return retry.Do(ctx, s.log, name, s.retryPolicy, func(ctx context.Context) error {
		err := breaker.Call(func() error { return fn(ctx) })
		if err != nil {
			s.metrics.ExternalCall(dependency, "failure")
			return err
		}
		s.metrics.ExternalCall(dependency, "success")
		return nil
	})
}

func (s *Service) fetchPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := s.callGuarded(ctx, depBinance, "binance.CurrentPrice", func(ctx context.Context) error {
		p, err := s.binance.CurrentPrice(ctx, symbol)
		if err != nil {
			return err
		}
		price = p
		return nil
	})
	return price, err
}

func (s *Service) fetchCandles(ctx context.Context, symbol, interval string) ([]*models.Candle, error) {
	var candles []*models.Candle
	err := s.callGuarded(ctx, depBinance, "binance.Candlesticks", func(ctx context.Context) error {
		cs, err := s.binance.Candlesticks(ctx, symbol, interval, s.cfg.Ingestor.CandleLimit)
		if err != nil {
			return err
		}
		candles = cs
		return nil
	})
	return candles, err
}

// fetchMacroMetrics fetches btc_dominance/usdt_dominance/total_market_cap
// under their own circuit breaker, leaving those three fields nil on any
// failure rather than failing the cycle. The returned *MacroMetrics is
// never nil: BTCVolatility is derived from already-fetched Binance candles
// independently of CMC, so a CMC outage must not discard it too.
func (s *Service) fetchMacroMetrics(ctx context.Context, log *logger.Logger) *models.MacroMetrics {
	var result *cmc.GlobalMetrics
	err := s.callGuarded(ctx, depCMC, "cmc.GlobalMetrics", func(ctx context.Context) error {
		m, err := s.cmc.GlobalMetrics(ctx)
		if err != nil {
			return err
		}
		result = m
		return nil
	})

	if err != nil {
		log.Warn("macro metrics fetch failed, omitting dominance/market-cap fields", zap.Error(err))
		return &models.MacroMetrics{}
	}

	return &models.MacroMetrics{
		BTCDominance:   &result.BTCDominance,
		USDTDominance:  &result.USDTDominance,
		TotalMarketCap: &result.TotalMarketCap,
	}
}

// btcVolatility computes the annualised BTC volatility: stdev of daily
// returns over the 30-day daily candles, ×√252, as a percentage. Returns
// nil when fewer than 31 daily candles were fetched.
func (s *Service) btcVolatility(candles map[string]map[string][]*models.Candle) *float64 {
	symbol := btcSymbol(s.cfg.Coins)
	daily, ok := candles[symbol]["1d"]
	if !ok || len(daily) < 31 {
		return nil
	}

	closes := models.Closes(daily)
	window := closes[len(closes)-31:]

	returns := make([]float64, 0, 30)
	for i := 1; i < len(window); i++ {
		if window[i-1] == 0 {
			continue
		}
		returns = append(returns, (window[i]-window[i-1])/window[i-1])
	}
	if len(returns) == 0 {
		return nil
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sumSq float64
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	stdev := math.Sqrt(sumSq / float64(len(returns)))

	annualized := stdev * math.Sqrt(252) * 100
	return &annualized
}

func btcSymbol(coins []string) string {
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
