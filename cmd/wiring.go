package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cryptopulse/signalpipe/internal/config"
	"github.com/cryptopulse/signalpipe/internal/externals/binance"
	"github.com/cryptopulse/signalpipe/internal/externals/chat"
	"github.com/cryptopulse/signalpipe/internal/externals/cmc"
	"github.com/cryptopulse/signalpipe/internal/kernel"
	"github.com/cryptopulse/signalpipe/internal/libs/circuitbreaker"
	"github.com/cryptopulse/signalpipe/internal/libs/docstore"
	"github.com/cryptopulse/signalpipe/internal/libs/eventbus"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
	"github.com/cryptopulse/signalpipe/internal/libs/registry"
)

// foundation bundles the handles every one of the five start-* subcommands
// needs: config, logger, Mongo, Redis-backed bus and registry, and the
// circuit breaker registry shared across a process's external calls.
type foundation struct {
	cfg      *config.Config
	log      *logger.Logger
	store    *docstore.Store
	redis    *redis.Client
	bus      *eventbus.Bus
	reg      *registry.Registry
	breakers *circuitbreaker.Registry
}

func buildFoundation(ctx context.Context) (*foundation, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewWithLevel("stdout", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	store, err := docstore.Connect(ctx, docstore.Options{
		URI:                    cfg.Mongo.URI,
		Database:               cfg.Mongo.DB,
		MaxPoolSize:            uint64(cfg.Mongo.MaxPoolSize),
		MinPoolSize:            uint64(cfg.Mongo.MinPoolSize),
		MaxIdleTime:            cfg.Mongo.MaxIdleTime(),
		ConnectTimeout:         cfg.Mongo.ConnectTimeout(),
		ServerSelectionTimeout: cfg.Mongo.ServerSelectionTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr(),
		PoolSize:    cfg.Redis.MaxConnections,
		DialTimeout: cfg.Redis.SocketConnectTimeout,
		ReadTimeout: cfg.Redis.SocketTimeout,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	return &foundation{
		cfg:      cfg,
		log:      log,
		store:    store,
		redis:    redisClient,
		bus:      eventbus.New(redisClient),
		reg:      registry.New(redisClient, cfg.Kernel.RegistryTTL),
		breakers: circuitbreaker.NewRegistry(circuitbreaker.Config(cfg.CircuitBreaker)),
	}, nil
}

// Close releases the pooled clients once the kernel's lifecycle has
// returned; safe to defer immediately after buildFoundation.
func (f *foundation) Close(ctx context.Context) {
	if err := f.store.Disconnect(ctx); err != nil {
		f.log.Warn("mongo disconnect failed", zap.Error(err))
	}
	if err := f.redis.Close(); err != nil {
		f.log.Warn("redis close failed", zap.Error(err))
	}
}

// kernelConfig resolves the per-service Config the kernel needs, pinning
// the service's fixed port.
func (f *foundation) kernelConfig(serviceName string) kernel.Config {
	return kernel.Config{
		ServiceName:     serviceName,
		Host:            f.cfg.Kernel.Host,
		Port:            f.cfg.Kernel.PortFor(serviceName),
		HeartbeatPeriod: f.cfg.Kernel.HeartbeatPeriod,
		RegistryTTL:     f.cfg.Kernel.RegistryTTL,
		ShutdownGrace:   f.cfg.Kernel.ShutdownGrace,
		DefaultTimeout:  f.cfg.DefaultTimeout,
	}
}

func (f *foundation) newKernel(serviceName string, deps ...kernel.DependencyCheck) *kernel.Kernel {
	// Warn-and-above lines are teed into the logs collection once the
	// owning service's name is known; services constructed after this
	// point inherit the persisted logger.
	f.log = f.log.WithPersistence(f.logPersister(serviceName), zapcore.WarnLevel)

	return kernel.New(f.kernelConfig(serviceName), f.log, f.reg, f.cfg.APIKey, f.cfg.RateLimit, deps...)
}

// logPersister writes one emitted log line into the logs collection. A
// failed write is dropped rather than logged: logging a persistence
// failure through the same logger would feed back into this persister.
func (f *foundation) logPersister(serviceName string) logger.Persister {
	return func(at time.Time, level, message, correlationID string) {
		ctx, cancel := context.WithTimeout(context.Background(), f.cfg.DefaultTimeout)
		defer cancel()

		_ = f.store.SaveLog(ctx, docstore.LogEntry{
			Timestamp:     at,
			Service:       serviceName,
			Level:         level,
			Message:       message,
			CorrelationID: correlationID,
		})
	}
}

func (f *foundation) mongoDependencyCheck() kernel.DependencyCheck {
	return kernel.DependencyCheck{
		Name: "mongo",
		Check: func(ctx context.Context) error {
			return f.store.Ping(ctx)
		},
	}
}

func (f *foundation) redisDependencyCheck() kernel.DependencyCheck {
	return kernel.DependencyCheck{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return f.redis.Ping(ctx).Err()
		},
	}
}

func (f *foundation) binanceClient() *binance.Client {
	return binance.New(f.log, f.cfg.Binance.APIURL)
}

func (f *foundation) cmcClient() *cmc.Client {
	return cmc.New(f.log, f.cfg.CMC.APIKey)
}

func (f *foundation) chatBot() (*chat.Bot, error) {
	return chat.New(f.log, f.cfg.Telegram.BotToken)
}
