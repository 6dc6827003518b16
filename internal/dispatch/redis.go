package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"reel/internal/config"
)

const redisDLQSuffix = "_dlq"

// RedisDispatcher implements Gateway and Inbox over Redis Streams with a
// consumer group, giving at-least-once delivery in both directions.
type RedisDispatcher struct {
	client      *redis.Client
	jobStream   string
	eventStream string
	group       string
	consumer    string
	maxAttempts int
}

// NewRedisDispatcher connects to Redis and ensures the consumer group exists.
func NewRedisDispatcher(ctx context.Context, cfg *config.Config) (*RedisDispatcher, error) {
	if cfg == nil || !cfg.RedisEnabled() {
		return nil, errors.New("redis dispatcher requires a redis address")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Dispatch.RedisAddr,
		Password: cfg.Dispatch.RedisPassword,
		DB:       cfg.Dispatch.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	d := &RedisDispatcher{
		client:      client,
		jobStream:   cfg.Dispatch.JobStream,
		eventStream: cfg.Dispatch.EventStream,
		group:       cfg.Dispatch.Group,
		consumer:    cfg.Dispatch.Consumer,
		maxAttempts: 3,
	}
	if err := d.ensureGroup(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the Redis connection.
func (d *RedisDispatcher) Close() error {
	return d.client.Close()
}

// Dispatch enqueues a job for external workers and returns its identifier.
func (d *RedisDispatcher) Dispatch(ctx context.Context, kind JobKind, projectID string, payload []byte) (string, error) {
	jobID := uuid.NewString()
	_, err := d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: d.jobStream,
		Values: map[string]any{
			"job_id":      jobID,
			"kind":        string(kind),
			"project_id":  projectID,
			"payload":     string(payload),
			"enqueued_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return jobID, nil
}

// Consume reads job lifecycle events from the event stream until ctx ends.
// Events whose handler fails are retried up to maxAttempts, then parked on a
// dead-letter stream so a poison event cannot wedge the inbox.
func (d *RedisDispatcher) Consume(ctx context.Context, handler func(context.Context, Event) error) error {
	if err := d.ensureGroup(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		streams, err := d.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    d.group,
			Consumer: d.consumer,
			Streams:  []string{d.eventStream, ">"},
			Count:    16,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("xreadgroup: %w", err)
		}

		for _, stream := range streams {
			for _, item := range stream.Messages {
				event, attempt, parseErr := parseEventMessage(item)
				if parseErr != nil {
					_ = d.sendToDLQ(ctx, item, parseErr.Error())
					_ = d.ackAndDelete(ctx, item.ID)
					continue
				}

				handleErr := handler(ctx, event)
				if handleErr == nil {
					_ = d.ackAndDelete(ctx, item.ID)
					continue
				}

				attempt++
				if attempt >= d.maxAttempts {
					_ = d.sendToDLQ(ctx, item, handleErr.Error())
					_ = d.ackAndDelete(ctx, item.ID)
					continue
				}
				if requeueErr := d.requeueEvent(ctx, item, attempt); requeueErr != nil {
					_ = d.sendToDLQ(ctx, item, fmt.Sprintf("requeue failed: %v", requeueErr))
				}
				_ = d.ackAndDelete(ctx, item.ID)
			}
		}
	}
}

// PublishEvent appends a lifecycle event to the event stream. Workers use
// this; it also backs integration tests.
func (d *RedisDispatcher) PublishEvent(ctx context.Context, event Event) error {
	values, err := eventValues(event, 0)
	if err != nil {
		return err
	}
	if _, err := d.client.XAdd(ctx, &redis.XAddArgs{Stream: d.eventStream, Values: values}).Result(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (d *RedisDispatcher) ensureGroup(ctx context.Context) error {
	err := d.client.XGroupCreateMkStream(ctx, d.eventStream, d.group, "$").Err()
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return fmt.Errorf("ensure stream group: %w", err)
}

func (d *RedisDispatcher) ackAndDelete(ctx context.Context, streamID string) error {
	if err := d.client.XAck(ctx, d.eventStream, d.group, streamID).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	if err := d.client.XDel(ctx, d.eventStream, streamID).Err(); err != nil {
		return fmt.Errorf("xdel: %w", err)
	}
	return nil
}

func (d *RedisDispatcher) requeueEvent(ctx context.Context, item redis.XMessage, attempt int) error {
	values := make(map[string]any, len(item.Values))
	for key, value := range item.Values {
		values[key] = value
	}
	values["attempt"] = attempt
	if _, err := d.client.XAdd(ctx, &redis.XAddArgs{Stream: d.eventStream, Values: values}).Result(); err != nil {
		return fmt.Errorf("requeue event: %w", err)
	}
	return nil
}

func (d *RedisDispatcher) sendToDLQ(ctx context.Context, item redis.XMessage, reason string) error {
	values := make(map[string]any, len(item.Values)+2)
	for key, value := range item.Values {
		values[key] = value
	}
	values["error"] = reason
	values["moved_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := d.client.XAdd(ctx, &redis.XAddArgs{Stream: d.eventStream + redisDLQSuffix, Values: values}).Result(); err != nil {
		return fmt.Errorf("send to dlq: %w", err)
	}
	return nil
}

func eventValues(event Event, attempt int) (map[string]any, error) {
	paths, err := json.Marshal(event.Paths)
	if err != nil {
		return nil, fmt.Errorf("marshal paths: %w", err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return map[string]any{
		"type":              string(event.Type),
		"job_id":            event.JobID,
		"kind":              string(event.Kind),
		"project_id":        event.ProjectID,
		"prompt_index":      event.PromptIndex,
		"prompt_count":      event.PromptCount,
		"completed_prompts": event.CompletedPrompts,
		"failed_prompts":    event.FailedPrompts,
		"paths":             string(paths),
		"output_path":       event.OutputPath,
		"error":             event.Error,
		"occurred_at":       occurred.Format(time.RFC3339Nano),
		"attempt":           attempt,
	}, nil
}

func parseEventMessage(item redis.XMessage) (Event, int, error) {
	getString := func(key string) string {
		value, ok := item.Values[key]
		if !ok {
			return ""
		}
		switch casted := value.(type) {
		case string:
			return casted
		case []byte:
			return string(casted)
		default:
			return fmt.Sprintf("%v", casted)
		}
	}
	getInt := func(key string) int {
		raw := getString(key)
		if raw == "" {
			return 0
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0
		}
		return parsed
	}

	eventType, ok := ParseEventType(getString("type"))
	if !ok {
		return Event{}, 0, fmt.Errorf("unknown event type %q", getString("type"))
	}
	jobID := getString("job_id")
	if jobID == "" {
		return Event{}, 0, errors.New("missing job_id")
	}
	projectID := getString("project_id")
	if projectID == "" {
		return Event{}, 0, errors.New("missing project_id")
	}

	var paths []string
	if raw := getString("paths"); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &paths); err != nil {
			return Event{}, 0, fmt.Errorf("invalid paths: %w", err)
		}
	}

	occurredAt := time.Now().UTC()
	if raw := getString("occurred_at"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			occurredAt = parsed
		}
	}

	return Event{
		Type:             eventType,
		JobID:            jobID,
		Kind:             JobKind(getString("kind")),
		ProjectID:        projectID,
		PromptIndex:      getInt("prompt_index"),
		PromptCount:      getInt("prompt_count"),
		CompletedPrompts: getInt("completed_prompts"),
		FailedPrompts:    getInt("failed_prompts"),
		Paths:            paths,
		OutputPath:       getString("output_path"),
		Error:            getString("error"),
		OccurredAt:       occurredAt,
	}, getInt("attempt"), nil
}
