package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
}

func New(file string) (*Logger, error) {
	return NewWithLevel(file, "", "")
}

// NewWithLevel builds the production logger honouring the configured level
// ("debug"/"info"/"warn"/"error", defaulting to info) and format ("json"
// or "console").
func NewWithLevel(file, level, format string) (*Logger, error) {
	config := zap.NewProductionConfig()

	if parsed, err := zapcore.ParseLevel(level); err == nil && level != "" {
		config.Level = zap.NewAtomicLevelAt(parsed)
	}
	if format == "console" {
		config.Encoding = "console"
	}

	config.OutputPaths = []string{file}
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.MessageKey = "message"
	config.DisableStacktrace = true

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger: logger,
	}, nil
}

func NewDev() *Logger {
	logger, _ := zap.NewDevelopment()
	return &Logger{
		Logger: logger,
	}
}

// Persister stores one emitted log line durably, alongside the normal
// output path. Implementations must not log through the same Logger.
type Persister func(at time.Time, level, message, correlationID string)

// persistCore tees entries at or above its enabler into a Persister,
// carrying any correlation_id field attached via With.
type persistCore struct {
	zapcore.LevelEnabler
	persist Persister
	fields  []zapcore.Field
}

func (c *persistCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field{}, c.fields...), fields...)
	return &clone
}

func (c *persistCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *persistCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	correlationID := ""
	for _, f := range c.fields {
		if f.Key == "correlation_id" && f.Type == zapcore.StringType {
			correlationID = f.String
		}
	}
	for _, f := range fields {
		if f.Key == "correlation_id" && f.Type == zapcore.StringType {
			correlationID = f.String
		}
	}

	c.persist(ent.Time, ent.Level.String(), ent.Message, correlationID)
	return nil
}

func (c *persistCore) Sync() error { return nil }

// WithPersistence returns a Logger that tees every line at or above min
// into persist while still writing to the normal output paths.
func (l *Logger) WithPersistence(persist Persister, min zapcore.LevelEnabler) *Logger {
	tee := &persistCore{LevelEnabler: min, persist: persist}
	wrapped := l.Logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, tee)
	}))
	return &Logger{Logger: wrapped}
}

// With returns a Logger that carries service and correlation-ID fields on
// every subsequent line, so a request can be traced across the event bus
// from Ingestor through Dispatcher.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithCorrelationID is a convenience wrapper around With for the
// correlation_id field every service's event payload carries.
func (l *Logger) WithCorrelationID(correlationID string) *Logger {
	return l.With(zap.String("correlation_id", correlationID))
}
