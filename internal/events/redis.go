package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/card-service/internal/platform/logger"
	"github.com/redis/go-redis/v9"
)

// Stream entry fields.
const (
	fieldID        = "id"
	fieldType      = "type"
	fieldPayload   = "payload"
	fieldCreatedAt = "created_at"
)

// StreamClient is the subset of the Redis client the stream publisher and
// consumer use. *redis.Client satisfies it.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// RedisStreamPublisher implements EventEmitter by appending each event to
// the Redis stream named after its topic.
type RedisStreamPublisher struct {
	client StreamClient
	maxLen int64
	logger *slog.Logger
}

// NewRedisStreamPublisher creates a publisher. Streams are trimmed to about
// maxLen entries; zero disables trimming.
// If logger is nil, a default logger will be used.
func NewRedisStreamPublisher(client StreamClient, maxLen int64, logger *slog.Logger) *RedisStreamPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStreamPublisher{
		client: client,
		maxLen: maxLen,
		logger: logger.With("component", "redis_stream_publisher"),
	}
}

// EmitEvent implements EventEmitter.
func (p *RedisStreamPublisher) EmitEvent(ctx context.Context, event *Event) error {
	if event.Topic == "" {
		return fmt.Errorf("event %s has no topic", event.ID)
	}

	args := &redis.XAddArgs{
		Stream: event.Topic,
		Values: map[string]any{
			fieldID:        event.ID.String(),
			fieldType:      event.Type,
			fieldPayload:   string(event.Payload),
			fieldCreatedAt: event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	entryID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to append event to stream %s: %w", event.Topic, err)
	}

	logger.FromContextOrDefault(ctx, p.logger).Debug("event appended to stream",
		slog.String("topic", event.Topic),
		slog.String("entry_id", entryID),
		slog.String("event_id", event.ID.String()))
	return nil
}

// ConsumerConfig configures a RedisStreamConsumer.
type ConsumerConfig struct {
	Group    string
	Consumer string
	Topics   []string
	// Block is how long one read waits for new entries.
	Block time.Duration
	// Count caps the entries returned by one read.
	Count int64
}

// RedisStreamConsumer reads topics through a consumer group and hands each
// entry to a handler. Entries are acknowledged once handled, whether or not
// the handler succeeded; failures are logged.
type RedisStreamConsumer struct {
	client  StreamClient
	config  ConsumerConfig
	handler EventHandler
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRedisStreamConsumer creates a consumer.
// If logger is nil, a default logger will be used.
func NewRedisStreamConsumer(
	client StreamClient,
	config ConsumerConfig,
	handler EventHandler,
	logger *slog.Logger,
) *RedisStreamConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Count <= 0 {
		config.Count = 10
	}
	if config.Block <= 0 {
		config.Block = 2 * time.Second
	}
	return &RedisStreamConsumer{
		client:  client,
		config:  config,
		handler: handler,
		logger: logger.With("component", "redis_stream_consumer",
			"group", config.Group, "consumer", config.Consumer),
	}
}

// Start creates the consumer group on every topic and begins reading in the
// background. It returns once the groups exist.
func (c *RedisStreamConsumer) Start(ctx context.Context) error {
	if len(c.config.Topics) == 0 {
		c.logger.Info("no topics to consume")
		return nil
	}

	for _, topic := range c.config.Topics {
		err := c.client.XGroupCreateMkStream(ctx, topic, c.config.Group, "$").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("failed to create consumer group on %s: %w", topic, err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(runCtx)
	}()

	c.logger.Info("stream consumer started", "topics", c.config.Topics)
	return nil
}

// Stop ends the read loop and waits for the in-flight batch to finish.
func (c *RedisStreamConsumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info("stream consumer stopped")
}

func (c *RedisStreamConsumer) run(ctx context.Context) {
	streams := make([]string, 0, 2*len(c.config.Topics))
	streams = append(streams, c.config.Topics...)
	for range c.config.Topics {
		streams = append(streams, ">")
	}

	backoff := 100 * time.Millisecond
	for ctx.Err() == nil {
		result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.config.Group,
			Consumer: c.config.Consumer,
			Streams:  streams,
			Count:    c.config.Count,
			Block:    c.config.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("failed to read from streams", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = 100 * time.Millisecond

		for _, stream := range result {
			for _, msg := range stream.Messages {
				c.handle(ctx, stream.Stream, msg)
			}
		}
	}
}

func (c *RedisStreamConsumer) handle(ctx context.Context, topic string, msg redis.XMessage) {
	log := c.logger.With("topic", topic, "entry_id", msg.ID)
	handlerCtx := logger.WithLogger(ctx, log)

	event, err := decodeMessage(topic, msg)
	if err != nil {
		log.Error("dropping undecodable stream entry", "error", err)
	} else if err := c.handler.HandleEvent(handlerCtx, event); err != nil {
		log.Error("failed to handle event", "error", err, "event_id", event.ID)
	}

	// Acknowledge even when the handler is cancelled mid-flight.
	if err := c.client.XAck(context.WithoutCancel(ctx), topic, c.config.Group, msg.ID).Err(); err != nil {
		log.Error("failed to acknowledge stream entry", "error", err)
	}
}

// decodeMessage turns a stream entry into an Event. Entries written by
// other producers may carry only a payload field.
func decodeMessage(topic string, msg redis.XMessage) (*Event, error) {
	payload, ok := msg.Values[fieldPayload].(string)
	if !ok {
		return nil, fmt.Errorf("entry has no %q field", fieldPayload)
	}
	if !json.Valid([]byte(payload)) {
		return nil, fmt.Errorf("entry payload is not valid JSON")
	}

	event := &Event{
		Topic:   topic,
		Payload: json.RawMessage(payload),
	}
	if id, ok := msg.Values[fieldID].(string); ok {
		if parsed, err := uuid.Parse(id); err == nil {
			event.ID = parsed
		}
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(topic+"/"+msg.ID))
	}
	if eventType, ok := msg.Values[fieldType].(string); ok {
		event.Type = eventType
	}
	if created, ok := msg.Values[fieldCreatedAt].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
			event.CreatedAt = parsed
		}
	}
	return event, nil
}
