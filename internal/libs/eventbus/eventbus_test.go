package eventbus

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client)
}

func TestPublishAndConsume(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "market_data_updated", map[string]string{"asset": "BTCUSDT"}))

	msgs, err := bus.Consume(ctx, "consumer-1", "analyzer", "market_data_updated")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "market_data_updated", msgs[0].Event)
	assert.Contains(t, string(msgs[0].Data), "BTCUSDT")

	require.NoError(t, msgs[0].Commit(ctx))
}

func TestConsumeDoesNotRedeliverAfterCommit(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "signal_generated", map[string]string{"id": "1"}))

	msgs, err := bus.Consume(ctx, "consumer-1", "dispatcher", "signal_generated")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NoError(t, msgs[0].Commit(ctx))

	msgs, err = bus.Consume(ctx, "consumer-2", "dispatcher", "signal_generated")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, "price_update_ready", map[string]string{"asset": "ETHUSDT"}))
	require.NoError(t, bus.EnsureGroup(ctx, "price_update_ready", "dispatcher"))
	require.NoError(t, bus.EnsureGroup(ctx, "price_update_ready", "dispatcher"))
}
