package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/advocacia-ai/painel/internal/auth"
	"github.com/advocacia-ai/painel/internal/metrics"
)

const (
	// StreamKey is the Redis stream for outgoing mail.
	StreamKey = "stream:mail"

	// DeadLetterStreamKey is the Redis stream for undeliverable mail.
	DeadLetterStreamKey = "stream:mail:dlq"

	// RetryKey is the sorted set holding mail waiting for its next attempt,
	// scored by due time in Unix milliseconds.
	RetryKey = "mail:retry"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 500 * time.Millisecond
)

// envelope is the stream payload.
type envelope struct {
	ID         string  `json:"id"`
	Message    Message `json:"msg"`
	Attempt    int     `json:"attempt"`
	EnqueuedAt int64   `json:"t"` // Unix milliseconds
}

func decodeEnvelope(values map[string]interface{}) (envelope, error) {
	var env envelope
	payload, ok := values["payload"].(string)
	if !ok {
		return env, fmt.Errorf("payload field missing or not a string")
	}
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return env, fmt.Errorf("unmarshal payload: %w", err)
	}
	if env.ID == "" {
		return env, fmt.Errorf("payload has no id")
	}
	return env, env.Message.Validate()
}

// Publisher enqueues mail to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
	timeout time.Duration
	now     func() time.Time

	wg sync.WaitGroup
}

// NewPublisher creates a new mail publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "mail.publisher"),
		metrics: recorder,
		timeout: PublishTimeout,
		now:     time.Now,
	}
}

// Publish adds msg to the stream synchronously and returns the stream ID.
func (p *Publisher) Publish(ctx context.Context, msg Message) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	data, err := json.Marshal(envelope{
		ID:         ulid.Make().String(),
		Message:    msg,
		Attempt:    1,
		EnqueuedAt: p.now().UnixMilli(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal mail: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(msg Message) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		streamID, err := p.Publish(ctx, msg)
		if err != nil {
			p.logger.Warn("failed to publish mail",
				"recipient", auth.Fingerprint(msg.To),
				"subject", msg.Subject,
				"error", err,
			)
			p.metrics.IncMailPublished("dropped")
			return
		}

		p.logger.Debug("mail published",
			"recipient", auth.Fingerprint(msg.To),
			"stream_id", streamID,
		)
		p.metrics.IncMailPublished("success")
	}()
}

// Shutdown waits for in-flight async publishes.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (p *Publisher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
