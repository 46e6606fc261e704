// Package dispatcher implements the Notification Dispatcher: event-driven
// on price_update_ready and signal_generated, it formats and rate-limits
// sends of chat messages on two channels, and independently runs a
// 5-minute outlook ticker.
package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cryptopulse/signalpipe/internal/config"
	"github.com/cryptopulse/signalpipe/internal/externals/chat"
	"github.com/cryptopulse/signalpipe/internal/kernel"
	"github.com/cryptopulse/signalpipe/internal/libs/circuitbreaker"
	"github.com/cryptopulse/signalpipe/internal/libs/docstore"
	"github.com/cryptopulse/signalpipe/internal/libs/errs"
	"github.com/cryptopulse/signalpipe/internal/libs/eventbus"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/cryptopulse/signalpipe/internal/libs/ratelimit"
	"github.com/cryptopulse/signalpipe/internal/libs/retry"
	"github.com/cryptopulse/signalpipe/internal/models"
)

const (
	groupName   = "notification_dispatcher"
	depTelegram = "telegram"
)

type Service struct {
	cfg          config.DispatcherConfig
	priceChatID  int64
	signalChatID int64

	log     *logger.Logger
	metrics *kernel.Metrics
	sender  chat.Sender
	store   *docstore.Store
	bus     *eventbus.Bus

	breakers    *circuitbreaker.Registry
	retryPolicy retry.Policy
	limiter     *ratelimit.Limiter
	location    *time.Location

	consumerName string
}

func New(cfg config.DispatcherConfig, priceChatID, signalChatID int64, retryCfg config.RetryConfig, log *logger.Logger, metrics *kernel.Metrics, sender chat.Sender, store *docstore.Store, bus *eventbus.Bus, breakers *circuitbreaker.Registry, consumerName string) *Service {
	return &Service{
		cfg:          cfg,
		priceChatID:  priceChatID,
		signalChatID: signalChatID,
		log:          log,
		metrics:      metrics,
		sender:       sender,
		store:        store,
		bus:          bus,
		breakers:     breakers,
		retryPolicy: retry.Policy{
			MaxAttempts:  retryCfg.MaxAttempts,
			InitialDelay: retryCfg.InitialDelay,
			Base:         retryCfg.Base,
			MaxDelay:     retryCfg.MaxDelay,
			Retryable:    errs.IsRetryable,
		},
		limiter:      ratelimit.New(cfg.ChatRateLimit, cfg.ChatRateLimitWindow),
		location:     time.Local,
		consumerName: consumerName,
	}
}

// Run drives both the event-subscribe loop and the independent outlook
// ticker concurrently, joining both on ctx cancellation.
func (s *Service) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.bus.Subscribe(gctx, s.log, s.consumerName, groupName,
			[]string{models.EventPriceUpdateReady, models.EventSignalGenerated}, s.handle)
	})

	g.Go(func() error {
		return s.outlookLoop(gctx)
	})

	return g.Wait()
}

func (s *Service) handle(ctx context.Context, msg *eventbus.Message) error {
	switch msg.Event {
	case models.EventPriceUpdateReady:
		return s.handlePriceUpdate(ctx, msg)
	case models.EventSignalGenerated:
		return s.handleSignal(ctx, msg)
	default:
		return nil
	}
}

func (s *Service) handlePriceUpdate(ctx context.Context, msg *eventbus.Message) error {
	var payload models.PriceUpdateReadyPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		s.log.Warn("malformed price_update_ready payload", zap.Error(err))
		s.metrics.Error("schema_validation_error")
		return nil
	}
	log := s.log.WithCorrelationID(payload.CorrelationID)

	line := formatPriceLine(payload.Prices, time.Unix(payload.Timestamp, 0), s.location)
	if err := s.send(ctx, s.priceChatID, line); err != nil {
		log.Error("price notification send failed", zap.Error(err))
		s.metrics.Error("notification_send_error")
		return err
	}

	s.metrics.EventConsumed(models.EventPriceUpdateReady, "success")
	return nil
}

func (s *Service) handleSignal(ctx context.Context, msg *eventbus.Message) error {
	var sig models.Signal
	if err := json.Unmarshal(msg.Data, &sig); err != nil {
		s.log.Warn("malformed signal_generated payload", zap.Error(err))
		s.metrics.Error("schema_validation_error")
		return nil
	}
	log := s.log.WithCorrelationID(sig.CorrelationID)

	message := formatSignalMessage(&sig)
	if err := s.send(ctx, s.signalChatID, message); err != nil {
		log.Error("signal notification send failed", zap.String("asset", sig.Asset), zap.Error(err))
		s.metrics.Error("notification_send_error")
		return err
	}

	s.metrics.EventConsumed(models.EventSignalGenerated, "success")
	return nil
}

// outlookLoop runs the independent 5-minute outlook ticker, sleeping in
// chunks between cycles so shutdown is observed promptly.
func (s *Service) outlookLoop(ctx context.Context) error {
	for {
		s.publishOutlook(ctx)

		if kernel.Sleep(ctx, s.cfg.OutlookInterval) {
			return nil
		}
	}
}

const outlookRecentSignals = 5

func (s *Service) publishOutlook(ctx context.Context) {
	doc, err := s.store.LatestAnalysis(ctx)
	in := outlookInput{}

	if recent, err := s.store.RecentSignals(ctx, "", outlookRecentSignals); err != nil {
		s.log.Warn("failed to load recent signals for outlook", zap.Error(err))
	} else {
		in.recent = recent
	}

	if err != nil {
		s.log.Warn("failed to load analysis for outlook", zap.Error(err))
	} else if doc != nil {
		in.available = true
		in.sentiment = doc.Sentiment
		in.trendStrength = doc.TrendStrength
		if doc.DominanceAnalysis != nil {
			in.btcDominance = doc.DominanceAnalysis.BTCDominance
			in.usdtDominance = doc.DominanceAnalysis.USDTDominance
			in.interp = doc.DominanceAnalysis.Interpretation
		}
	}

	message := formatOutlookMessage(in, s.cfg.USDTDominanceConflictThreshold)
	if err := s.send(ctx, s.signalChatID, message); err != nil {
		s.log.Warn("outlook send failed", zap.Error(err))
		s.metrics.Error("notification_send_error")
	}
}

// send waits out the sliding rate-limit window, then delivers through the
// retry+circuit-breaker wrapper keyed on the chat provider.
func (s *Service) send(ctx context.Context, chatID int64, message string) error {
	if wait := s.limiter.Wait(); wait > 0 {
		if kernel.Sleep(ctx, wait) {
			return ctx.Err()
		}
	}

	breaker := s.breakers.Get(depTelegram)
	return retry.Do(ctx, s.log, "chat.Send", s.retryPolicy, func(ctx context.Context) error {
		err := breaker.Call(func() error { return s.sender.Send(ctx, chatID, message) })
		if err != nil {
			s.metrics.ExternalCall(depTelegram, "failure")
			return err
		}
		s.metrics.ExternalCall(depTelegram, "success")
		return nil
	})
}
