// Package eventbus implements the Event Bus on Redis Streams: one stream
// per event name, consumer groups per subscribing service, at-least-once
// delivery with explicit acknowledgement via
// XADD/XGROUP CREATE MKSTREAM/XREADGROUP BLOCK/XACK.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cryptopulse/signalpipe/internal/libs/errs"
	"github.com/cryptopulse/signalpipe/internal/libs/logger"
)

const (
	streamPrefix = "events:"
	blockTimeout = time.Second
	readCount    = 10
)

var ErrInvalidMessage = errors.New("eventbus: invalid message")

// Message is a single delivered event; Data holds its raw JSON payload,
// left for the handler to decode.
type Message struct {
	Event string
	ID    string

	Data []byte

	bus     *Bus
	stream  string
	groupID string
}

// Commit acknowledges the message so it is not redelivered to the group.
func (m *Message) Commit(ctx context.Context) error {
	if m == nil || m.bus == nil {
		return ErrInvalidMessage
	}
	return m.bus.client.XAck(ctx, m.stream, m.groupID, m.ID).Err()
}

// Bus wraps a redis client with the stream-per-event-name convention.
type Bus struct {
	client *redis.Client

	ensured map[string]bool
}

func New(client *redis.Client) *Bus {
	return &Bus{client: client, ensured: make(map[string]bool)}
}

func streamName(event string) string {
	return streamPrefix + event
}

// Publish serializes payload as JSON and appends it to the event's stream.
func (b *Bus) Publish(ctx context.Context, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &errs.EventPublishError{Event: event, Err: err}
	}

	if err := b.xadd(ctx, event, data); err != nil {
		return &errs.EventPublishError{Event: event, Err: err}
	}
	return nil
}

func (b *Bus) xadd(ctx context.Context, event string, data []byte) error {
	return b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName(event),
		Values: map[string]interface{}{
			"event": event,
			"ts":    time.Now().Unix(),
			"data":  string(data),
		},
	}).Err()
}

// EnsureGroup idempotently creates the consumer group for an event's
// stream, tolerating the BUSYGROUP error returned when it already exists.
func (b *Bus) EnsureGroup(ctx context.Context, event, groupID string) error {
	key := event + "|" + groupID
	if b.ensured[key] {
		return nil
	}

	err := b.client.XGroupCreateMkStream(ctx, streamName(event), groupID, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}

	b.ensured[key] = true
	return nil
}

// Consume blocks for up to one second reading new messages for groupID
// across events, returning as soon as any arrive. Bounding each poll to
// one second of blocking lets shutdown be observed promptly.
func (b *Bus) Consume(ctx context.Context, consumerName, groupID string, events ...string) ([]*Message, error) {
	streams := make([]string, 0, len(events)*2)
	for _, e := range events {
		if err := b.EnsureGroup(ctx, e, groupID); err != nil {
			return nil, err
		}
		streams = append(streams, streamName(e))
	}
	for range events {
		streams = append(streams, ">")
	}

	res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    groupID,
		Consumer: consumerName,
		Streams:  streams,
		Count:    readCount,
		Block:    blockTimeout,
	}).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var out []*Message
	for _, stream := range res {
		eventName := strings.TrimPrefix(stream.Stream, streamPrefix)
		for _, xm := range stream.Messages {
			data, _ := xm.Values["data"].(string)
			out = append(out, &Message{
				Event:   eventName,
				ID:      xm.ID,
				Data:    []byte(data),
				bus:     b,
				stream:  stream.Stream,
				groupID: groupID,
			})
		}
	}

	return out, nil
}

// Handler processes one delivered message. Returning a non-nil error
// leaves the message unacknowledged in the group's pending list; returning
// nil causes Subscribe to ack it.
type Handler func(ctx context.Context, msg *Message) error

// Subscribe loops, blocking for up to one second per poll so ctx
// cancellation is observed promptly, dispatching each delivered message to
// handler and acknowledging on success. A handler error is logged and the
// message is left pending. Consume reads only never-delivered entries
// (">"), so neither this loop nor any other group member reading through
// Consume is handed a pending message again; nothing here reclaims them.
func (b *Bus) Subscribe(ctx context.Context, log *logger.Logger, consumerName, groupID string, events []string, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := b.Consume(ctx, consumerName, groupID, events...)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("eventbus consume failed", zap.Error(err))
			continue
		}

		for _, m := range msgs {
			if err := handler(ctx, m); err != nil {
				log.Warn("handler failed, leaving message pending",
					zap.String("event", m.Event), zap.String("id", m.ID), zap.Error(err))
				continue
			}
			if err := m.Commit(ctx); err != nil {
				log.Warn("ack failed", zap.String("event", m.Event), zap.String("id", m.ID), zap.Error(err))
			}
		}
	}
}
