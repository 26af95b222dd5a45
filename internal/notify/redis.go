package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/menuboard/api/internal/ws"
	"github.com/sirupsen/logrus"
)

const (
	channelPattern = "orders:*"

	minResubscribe = 500 * time.Millisecond
	maxResubscribe = 30 * time.Second
)

func channelFor(tenantID uuid.UUID) string {
	return "orders:" + tenantID.String()
}

// redisClient is the subset of *redis.Client the relay uses.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	PSubscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// envelope tags a relayed signal with the instance that produced it so the
// producer does not deliver it twice.
type envelope struct {
	Origin string    `json:"origin"`
	Signal ws.Signal `json:"signal"`
}

// RedisRelay shares signals between API instances. Every instance publishes
// its own changes and re-broadcasts changes made elsewhere to its local hub.
type RedisRelay struct {
	client redisClient
	local  Broadcaster
	origin string
	retry  time.Duration
	log    logrus.FieldLogger
}

func NewRedisRelay(client redisClient, local Broadcaster, log logrus.FieldLogger) *RedisRelay {
	return &RedisRelay{
		client: client,
		local:  local,
		origin: uuid.NewString(),
		retry:  minResubscribe,
		log:    log.WithField("component", "redis_relay"),
	}
}

// Publish implements Publisher.
func (r *RedisRelay) Publish(ctx context.Context, sig ws.Signal) error {
	data, err := json.Marshal(envelope{Origin: r.origin, Signal: sig})
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	if err := r.client.Publish(ctx, channelFor(sig.TenantID), data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run relays changes made on other instances until ctx is done. Redis
// being unreachable only costs cross-instance signals, so subscription
// failures are logged and retried, never returned.
func (r *RedisRelay) Run(ctx context.Context) error {
	wait := r.retry
	for {
		subscribed, err := r.subscribe(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if subscribed {
			wait = r.retry
		}
		r.log.WithError(err).WithField("retry_in", wait.String()).Warn("relay subscription failed")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		if wait *= 2; wait > maxResubscribe {
			wait = maxResubscribe
		}
	}
}

// subscribe holds one pattern subscription. subscribed reports whether
// Redis confirmed it.
func (r *RedisRelay) subscribe(ctx context.Context) (bool, error) {
	sub := r.client.PSubscribe(ctx, channelPattern)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return false, fmt.Errorf("redis subscribe: %w", err)
	}
	r.log.WithField("pattern", channelPattern).Info("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case msg, ok := <-ch:
			if !ok {
				return true, errors.New("redis subscription closed")
			}
			r.handleMessage(msg.Payload)
		}
	}
}

func (r *RedisRelay) handleMessage(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.WithError(err).Warn("discarding malformed relay message")
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.local.BroadcastToTenant(env.Signal.TenantID, env.Signal)
}
