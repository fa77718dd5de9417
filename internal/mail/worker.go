package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/advocacia-ai/painel/internal/auth"
	"github.com/advocacia-ai/painel/internal/metrics"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "mail_workers"

	// DefaultBatchSize is the max messages per read.
	DefaultBatchSize = 20

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxAttempts is the default number of delivery attempts per message.
	DefaultMaxAttempts = 5

	// DefaultSendTimeout bounds a single delivery attempt.
	DefaultSendTimeout = 30 * time.Second

	// DefaultClaimInterval is how often to scan pending messages.
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming pending messages.
	DefaultClaimIdle = time.Minute

	// DefaultMetricsInterval is how often to refresh queue depth metrics.
	DefaultMetricsInterval = 10 * time.Second

	// JitterFactor is the ±percentage of jitter applied to retry delays.
	JitterFactor = 0.2
)

// Retry delays by failed attempt: 10s, 1m, 5m, 30m.
var defaultRetryDelays = []time.Duration{
	10 * time.Second,
	1 * time.Minute,
	5 * time.Minute,
	30 * time.Minute,
}

// promoteScript moves due entries from the retry set back to the stream.
// KEYS[1] = retry set, KEYS[2] = stream
// ARGV[1] = now (ms), ARGV[2] = batch size, ARGV[3] = stream max length
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, member in ipairs(due) do
  redis.call('ZREM', KEYS[1], member)
  redis.call('XADD', KEYS[2], 'MAXLEN', '~', ARGV[3], '*', 'payload', member)
end
return #due
`)

// NewConsumerID creates a stable-ish consumer ID for Redis consumer groups.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "mailer"
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
}

// NextRetryDelay returns the wait before the attempt following attempt,
// with ±20% jitter. attempt is 1-indexed.
func NextRetryDelay(delays []time.Duration, attempt int) time.Duration {
	if len(delays) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(delays) {
		idx = len(delays) - 1
	}

	base := delays[idx]
	jitterRange := float64(base) * JitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange
	return time.Duration(float64(base) + jitter)
}

// Worker delivers mail from the Redis stream.
type Worker struct {
	redis           *redis.Client
	sender          Sender
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	maxAttempts     int
	sendTimeout     time.Duration
	retryDelays     []time.Duration
	claimInterval   time.Duration
	claimIdle       time.Duration
	metricsInterval time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastMetrics     time.Time
	now             func() time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewWorker creates a new mail worker.
func NewWorker(client *redis.Client, sender Sender, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:           client,
		sender:          sender,
		logger:          logger.With("component", "mail.worker", "consumer_id", consumerID),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		maxAttempts:     DefaultMaxAttempts,
		sendTimeout:     DefaultSendTimeout,
		retryDelays:     append([]time.Duration(nil), defaultRetryDelays...),
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		metricsInterval: DefaultMetricsInterval,
		claimStartID:    "0-0",
		now:             time.Now,
	}
}

// SetMaxAttempts overrides the delivery attempt limit.
func (w *Worker) SetMaxAttempts(n int) {
	if n > 0 {
		w.maxAttempts = n
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetRetryDelays overrides the retry schedule.
func (w *Worker) SetRetryDelays(delays ...time.Duration) {
	if len(delays) > 0 {
		w.retryDelays = append([]time.Duration(nil), delays...)
	}
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("mail worker started", "max_attempts", w.maxAttempts)

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()

		if draining {
			w.logger.Info("mail worker draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("mail worker stopping")
			return ctx.Err()
		default:
			if err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Shutdown stops the worker after the message in flight.
// It implements server.ShutdownFunc for integration with graceful shutdown.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	w.logger.Info("mail worker shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			w.logger.Info("mail worker shutdown complete")
			return nil
		case <-ctx.Done():
			w.logger.Warn("mail worker shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return err
	}
	return nil
}

// processOnce promotes due retries, then reads and delivers one batch.
func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	if err := w.promoteDue(ctx); err != nil {
		w.logger.Warn("failed to promote due retries", "error", err)
	}

	messages, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending messages", "error", err)
	}
	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}

	for _, msg := range messages {
		if err := w.handle(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// handle delivers one stream entry and acknowledges it. Every outcome
// (sent, rescheduled, dead-lettered) ends with an ACK; only a Redis error
// leaves the entry pending for a later claim.
func (w *Worker) handle(ctx context.Context, msg redis.XMessage) error {
	env, err := decodeEnvelope(msg.Values)
	if err != nil {
		w.deadLetter(ctx, msg.ID, msg.Values["payload"], "invalid_payload", err.Error())
		return w.ack(ctx, msg.ID)
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	start := time.Now()
	sendErr := w.sender.Send(sendCtx, env.Message)
	cancel()
	w.metrics.ObserveMailSendDuration(time.Since(start))

	if sendErr == nil {
		w.logger.Info("mail sent",
			"mail_id", env.ID,
			"recipient", auth.Fingerprint(env.Message.To),
			"attempt", env.Attempt,
		)
		w.metrics.IncMailProcessed("sent")
		return w.ack(ctx, msg.ID)
	}

	if errors.Is(sendErr, context.Canceled) && ctx.Err() != nil {
		// Shutting down; leave the entry pending for the next consumer.
		return ctx.Err()
	}

	if errors.Is(sendErr, ErrPermanent) || env.Attempt >= w.maxAttempts {
		w.deadLetter(ctx, msg.ID, msg.Values["payload"], "delivery_failed", sendErr.Error())
		return w.ack(ctx, msg.ID)
	}

	if err := w.scheduleRetry(ctx, env); err != nil {
		return err
	}
	w.logger.Warn("mail delivery failed, retry scheduled",
		"mail_id", env.ID,
		"attempt", env.Attempt,
		"error", sendErr,
	)
	w.metrics.IncMailProcessed("retry")
	return w.ack(ctx, msg.ID)
}

func (w *Worker) scheduleRetry(ctx context.Context, env envelope) error {
	delay := NextRetryDelay(w.retryDelays, env.Attempt)
	env.Attempt++

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal retry: %w", err)
	}

	due := w.now().Add(delay).UnixMilli()
	if err := w.redis.ZAdd(ctx, RetryKey, redis.Z{Score: float64(due), Member: string(data)}).Err(); err != nil {
		return fmt.Errorf("zadd retry: %w", err)
	}
	return nil
}

// promoteDue moves retries whose time has come back onto the stream.
func (w *Worker) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(w.now().UnixMilli(), 10)
	n, err := promoteScript.Run(ctx, w.redis,
		[]string{RetryKey, StreamKey},
		now, w.batchSize, MaxStreamLen,
	).Int()
	if err != nil {
		return err
	}
	if n > 0 {
		w.logger.Debug("promoted due retries", "count", n)
	}
	return nil
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if w.claimInterval <= 0 || w.claimIdle <= 0 {
		return nil, nil
	}
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}

	w.lastClaim = time.Now()
	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	return messages, nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if w.metricsInterval <= 0 {
		return
	}
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil && err != redis.Nil {
		w.logger.Warn("failed to read stream group info", "error", err)
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			w.metrics.SetMailQueueDepth(group.Pending + group.Lag)
			return
		}
	}
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()

	if err == redis.Nil || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	return streams[0].Messages, nil
}

// deadLetter moves an undeliverable message to the dead-letter stream.
func (w *Worker) deadLetter(ctx context.Context, id string, payload interface{}, reason, detail string) {
	w.logger.Warn("dead-lettering mail",
		"message_id", id,
		"reason", reason,
		"detail", detail,
	)

	_, err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      id,
			"reason":           reason,
			"detail":           detail,
			"payload":          payload,
			"dead_lettered_at": w.now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		w.logger.Error("failed to write to dead-letter queue",
			"message_id", id,
			"error", err,
		)
	}

	w.metrics.IncMailProcessed("dead_lettered")
}

func (w *Worker) ack(ctx context.Context, id string) error {
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, id).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// isConsumerGroupExistsError checks if the error is "BUSYGROUP" (group exists).
func isConsumerGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
