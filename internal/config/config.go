package config

import (
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/cryptopulse/signalpipe/internal/libs/errs"
)

// Config is the single typed configuration record materialised once at
// startup. Every field has a viper key so environment variables (with
// "__" folded to ".") and config.yaml both populate it; no component
// re-reads viper after startup.
type Config struct {
	Environment string `mapstructure:"environment"`

	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Binance  BinanceConfig  `mapstructure:"binance"`
	CMC      CMCConfig      `mapstructure:"cmc"`
	Telegram TelegramConfig `mapstructure:"telegram"`

	Coins      []string `mapstructure:"coins"`
	Timeframes []string `mapstructure:"timeframes"`

	Log           LogConfig           `mapstructure:"log"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Retry          RetryConfig          `mapstructure:"retry"`
	DefaultTimeout time.Duration        `mapstructure:"default_timeout"`

	APIKey    APIKeyConfig    `mapstructure:"api_key"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	Secrets SecretsConfig `mapstructure:"secrets"`

	Analyzer   AnalyzerConfig   `mapstructure:"analyzer"`
	Ingestor   IngestorConfig   `mapstructure:"ingestor"`
	Monitor    MonitorConfig    `mapstructure:"monitor"`
	Scorer     ScorerConfig     `mapstructure:"scorer"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`

	Kernel KernelConfig `mapstructure:"kernel"`
}

type MongoConfig struct {
	URI                      string `mapstructure:"uri"`
	DB                       string `mapstructure:"db"`
	MaxPoolSize              int    `mapstructure:"max_pool_size"`
	MinPoolSize              int    `mapstructure:"min_pool_size"`
	MaxIdleTimeMS            int    `mapstructure:"max_idle_time_ms"`
	ConnectTimeoutMS         int    `mapstructure:"connect_timeout_ms"`
	ServerSelectionTimeoutMS int    `mapstructure:"server_selection_timeout_ms"`
}

// MaxIdleTime, ConnectTimeout, and ServerSelectionTimeout convert the
// millisecond env knobs into durations at the use site.
func (m MongoConfig) MaxIdleTime() time.Duration {
	return time.Duration(m.MaxIdleTimeMS) * time.Millisecond
}
func (m MongoConfig) ConnectTimeout() time.Duration {
	return time.Duration(m.ConnectTimeoutMS) * time.Millisecond
}
func (m MongoConfig) ServerSelectionTimeout() time.Duration {
	return time.Duration(m.ServerSelectionTimeoutMS) * time.Millisecond
}

type RedisConfig struct {
	Host                 string        `mapstructure:"host"`
	Port                 int           `mapstructure:"port"`
	MaxConnections       int           `mapstructure:"max_connections"`
	SocketConnectTimeout time.Duration `mapstructure:"socket_connect_timeout"`
	SocketTimeout        time.Duration `mapstructure:"socket_timeout"`
	SocketKeepalive      bool          `mapstructure:"socket_keepalive"`
}

// Addr returns the host:port form the go-redis client expects.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == 0 {
		port = 6379
	}
	return r.Host + ":" + strconv.Itoa(port)
}

type BinanceConfig struct {
	APIURL string `mapstructure:"api_url"`
}

type CMCConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type TelegramConfig struct {
	BotToken     string `mapstructure:"bot_token"`
	PriceChatID  int64  `mapstructure:"price_chat_id"`
	SignalChatID int64  `mapstructure:"signal_chat_id"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	TracingEnabled bool `mapstructure:"tracing_enabled"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	FailureWindow    time.Duration `mapstructure:"failure_window"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
}

type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Base         float64       `mapstructure:"base"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

type APIKeyConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Keys    []string `mapstructure:"keys"`
}

type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Requests          int           `mapstructure:"requests"`
	Window            time.Duration `mapstructure:"window"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

type SecretsConfig struct {
	Backend string `mapstructure:"backend"` // env, vault, aws
}

// AnalyzerConfig carries the dominance thresholds as configuration rather
// than baked-in literals.
type AnalyzerConfig struct {
	USDTDominanceRisingThreshold float64 `mapstructure:"usdt_dominance_rising_threshold"`
	BTCDominanceRisingThreshold  float64 `mapstructure:"btc_dominance_rising_threshold"`
	BTCDominanceFallingThreshold float64 `mapstructure:"btc_dominance_falling_threshold"`
}

type DispatcherConfig struct {
	OutlookInterval time.Duration `mapstructure:"outlook_interval"`
	// USDTDominanceConflictThreshold documents the source tree's disagreeing
	// prior value (8) for the same dominance signal the Analyzer reads at 5.
	USDTDominanceConflictThreshold float64 `mapstructure:"usdt_dominance_conflict_threshold"`

	// ChatRateLimit/ChatRateLimitWindow are the sliding-window outbound
	// throttle (30 messages per 1 second by default).
	ChatRateLimit       int           `mapstructure:"chat_rate_limit"`
	ChatRateLimitWindow time.Duration `mapstructure:"chat_rate_limit_window"`
}

// IngestorConfig carries the 5-minute cadence, candle depth, and fetch
// concurrency.
type IngestorConfig struct {
	Cadence          time.Duration `mapstructure:"cadence"`
	CandleLimit      int           `mapstructure:"candle_limit"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
}

// MonitorConfig carries the Price Monitor's 60s cadence, 15-minute ring
// window, and volatility thresholds.
type MonitorConfig struct {
	Cadence           time.Duration `mapstructure:"cadence"`
	RingWindow        time.Duration `mapstructure:"ring_window"`
	Pump5mThreshold   float64       `mapstructure:"pump_5m_threshold"`
	Pump15mThreshold  float64       `mapstructure:"pump_15m_threshold"`
	BTC15mThreshold   float64       `mapstructure:"btc_15m_threshold"`
}

// ScorerConfig carries the candidate-ranking heap depth; the scoring
// weights themselves are fixed constants rather than tunables.
// MaxCandidates <= 0 means unbounded: every candidate clearing the score
// floor is persisted and emitted. Every qualifying signal is supposed to
// reach the dispatcher, so this is an operator escape hatch for an
// unusually large coin list, not the default behaviour.
type ScorerConfig struct {
	MaxCandidates int `mapstructure:"max_candidates"`
}

type KernelConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	HeartbeatPeriod time.Duration `mapstructure:"heartbeat_period"`
	RegistryTTL     time.Duration `mapstructure:"registry_ttl"`
	ShutdownGrace   time.Duration `mapstructure:"shutdown_grace"`

	// ServicePorts assigns each of the five services its own fixed port,
	// keyed by the same name it registers under.
	ServicePorts map[string]int `mapstructure:"service_ports"`
}

// PortFor resolves a service's fixed port, falling back to Port when the
// service has no entry in ServicePorts.
func (k KernelConfig) PortFor(service string) int {
	if p, ok := k.ServicePorts[service]; ok {
		return p
	}
	return k.Port
}

// DefaultTimeframes is the fixed timeframe set analyzed for every symbol.
var DefaultTimeframes = []string{"1m", "15m", "1h", "4h", "8h", "1d", "3d", "1w"}

func defaults() *Config {
	return &Config{
		Environment: "development",
		Mongo: MongoConfig{
			DB:                       "signalpipe",
			MaxPoolSize:              20,
			MinPoolSize:              2,
			MaxIdleTimeMS:            60000,
			ConnectTimeoutMS:         10000,
			ServerSelectionTimeoutMS: 10000,
		},
		Redis: RedisConfig{
			Host:                 "localhost",
			Port:                 6379,
			MaxConnections:       50,
			SocketConnectTimeout: 5 * time.Second,
			SocketTimeout:        5 * time.Second,
			SocketKeepalive:      true,
		},
		Binance:    BinanceConfig{APIURL: "https://fapi.binance.com"},
		Coins:      []string{"BTCUSDT", "ETHUSDT"},
		Timeframes: DefaultTimeframes,
		Log:        LogConfig{Level: "info", Format: "json"},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: 5,
			FailureWindow:    60 * time.Second,
			RecoveryTimeout:  30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			Base:         2,
			MaxDelay:     30 * time.Second,
		},
		DefaultTimeout: 10 * time.Second,
		RateLimit:      RateLimitConfig{Enabled: true, RequestsPerMinute: 60},
		Secrets:        SecretsConfig{Backend: "env"},
		Analyzer: AnalyzerConfig{
			USDTDominanceRisingThreshold: 5,
			BTCDominanceRisingThreshold:  55,
			BTCDominanceFallingThreshold: 45,
		},
		Dispatcher: DispatcherConfig{
			OutlookInterval:                5 * time.Minute,
			USDTDominanceConflictThreshold: 8,
			ChatRateLimit:                  30,
			ChatRateLimitWindow:            time.Second,
		},
		Ingestor: IngestorConfig{
			Cadence:          5 * time.Minute,
			CandleLimit:      500,
			FetchConcurrency: 8,
		},
		Monitor: MonitorConfig{
			Cadence:          time.Minute,
			RingWindow:       15 * time.Minute,
			Pump5mThreshold:  0.03,
			Pump15mThreshold: 0.05,
			BTC15mThreshold:  0.005,
		},
		Scorer: ScorerConfig{
			MaxCandidates: 0,
		},
		Kernel: KernelConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			HeartbeatPeriod: 30 * time.Second,
			RegistryTTL:     60 * time.Second,
			ShutdownGrace:   5 * time.Second,
			ServicePorts: map[string]int{
				"ingestor":   8081,
				"analyzer":   8082,
				"monitor":    8083,
				"scorer":     8084,
				"dispatcher": 8085,
			},
		},
	}
}

// envBindings maps each enumerated environment variable onto its viper
// key. AutomaticEnv alone can't surface env-only keys to Unmarshal (viper
// only resolves keys it already knows about), and the deployment surface
// names its variables MONGODB_*/REDIS_*/TELEGRAM_* rather than the
// "__"-folded struct paths, so every supported variable is bound here
// explicitly.
var envBindings = map[string][]string{
	"environment": {"ENVIRONMENT"},

	"mongo.uri":                         {"MONGODB_URI"},
	"mongo.db":                          {"MONGODB_DB"},
	"mongo.max_pool_size":               {"MONGODB_MAX_POOL_SIZE"},
	"mongo.min_pool_size":               {"MONGODB_MIN_POOL_SIZE"},
	"mongo.max_idle_time_ms":            {"MONGODB_MAX_IDLE_TIME_MS"},
	"mongo.connect_timeout_ms":          {"MONGODB_CONNECT_TIMEOUT_MS"},
	"mongo.server_selection_timeout_ms": {"MONGODB_SERVER_SELECTION_TIMEOUT_MS"},

	"redis.host":                   {"REDIS_HOST"},
	"redis.port":                   {"REDIS_PORT"},
	"redis.max_connections":        {"REDIS_MAX_CONNECTIONS"},
	"redis.socket_connect_timeout": {"REDIS_SOCKET_CONNECT_TIMEOUT"},
	"redis.socket_timeout":         {"REDIS_SOCKET_TIMEOUT"},
	"redis.socket_keepalive":       {"REDIS_SOCKET_KEEPALIVE"},

	"binance.api_url": {"BINANCE_API_URL"},
	"cmc.api_key":     {"CMC_API_KEY"},

	"telegram.bot_token":      {"TELEGRAM_BOT_TOKEN"},
	"telegram.price_chat_id":  {"TELEGRAM_PRICE_CHAT_ID"},
	"telegram.signal_chat_id": {"TELEGRAM_SIGNAL_CHAT_ID"},

	"coins": {"COINS"},

	"log.level":  {"LOG_LEVEL"},
	"log.format": {"LOG_FORMAT"},

	"observability.metrics_enabled": {"METRICS_ENABLED"},
	"observability.tracing_enabled": {"TRACING_ENABLED"},

	"circuit_breaker.failure_threshold": {"CIRCUIT_BREAKER_FAILURE_THRESHOLD"},
	"circuit_breaker.recovery_timeout":  {"CIRCUIT_BREAKER_RECOVERY_TIMEOUT"},

	"retry.max_attempts":  {"RETRY_MAX_ATTEMPTS"},
	"retry.initial_delay": {"RETRY_INITIAL_DELAY"},

	"default_timeout": {"DEFAULT_TIMEOUT"},

	"api_key.enabled": {"API_KEY_ENABLED"},
	"api_key.keys":    {"API_KEYS", "API_KEY"},

	"rate_limit.enabled":             {"RATE_LIMIT_ENABLED"},
	"rate_limit.requests":            {"RATE_LIMIT_REQUESTS"},
	"rate_limit.window":              {"RATE_LIMIT_WINDOW"},
	"rate_limit.requests_per_minute": {"RATE_LIMIT_PER_MINUTE"},

	"secrets.backend": {"SECRETS_BACKEND"},
}

// Load materialises the typed Config from whatever viper has already read
// (config.yaml plus environment overrides applied by cmd.initConfig),
// falling back to the defaults above for anything unset.
func Load() (*Config, error) {
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := viper.BindEnv(args...); err != nil {
			return nil, err
		}
	}

	cfg := defaults()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Environment {
	case "development", "staging", "production", "test":
	default:
		return &errs.ConfigurationError{Field: "environment", Reason: "must be development, staging, production, or test"}
	}
	if len(c.Coins) == 0 {
		return &errs.ConfigurationError{Field: "coins", Reason: "at least one symbol is required"}
	}
	switch c.Secrets.Backend {
	case "env", "vault", "aws":
	default:
		return &errs.ConfigurationError{Field: "secrets.backend", Reason: "must be env, vault, or aws"}
	}
	return nil
}
