package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type captured struct {
	level         string
	message       string
	correlationID string
}

func capturingPersister(out *[]captured) Persister {
	return func(_ time.Time, level, message, correlationID string) {
		*out = append(*out, captured{level: level, message: message, correlationID: correlationID})
	}
}

func TestWithPersistenceTeesWarnAndAbove(t *testing.T) {
	log, err := New("stdout")
	require.NoError(t, err)

	var got []captured
	log = log.WithPersistence(capturingPersister(&got), zapcore.WarnLevel)

	log.Info("routine line")
	log.Warn("snapshot persistence failed")
	log.Error("event publish failed")

	require.Len(t, got, 2)
	assert.Equal(t, "warn", got[0].level)
	assert.Equal(t, "snapshot persistence failed", got[0].message)
	assert.Equal(t, "error", got[1].level)
}

func TestWithPersistenceCarriesCorrelationID(t *testing.T) {
	log, err := New("stdout")
	require.NoError(t, err)

	var got []captured
	log = log.WithPersistence(capturingPersister(&got), zapcore.WarnLevel)

	log.WithCorrelationID("cycle-42").Warn("candle fetch failed")

	require.Len(t, got, 1)
	assert.Equal(t, "cycle-42", got[0].correlationID)
}
