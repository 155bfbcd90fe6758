package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/chachabrian/mooveit-admin/internal/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

// RedisChangeFeed carries change events over Redis pub/sub, one channel
// per entity kind.
type RedisChangeFeed struct {
	client *redis.Client
	log    log.FieldLogger

	mu   sync.Mutex
	subs map[store.Handle]*redisSubscription
}

func NewRedisChangeFeed(client *redis.Client, logger log.FieldLogger) *RedisChangeFeed {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisChangeFeed{
		client: client,
		log:    logger.WithField("component", "redis-feed"),
		subs:   make(map[store.Handle]*redisSubscription),
	}
}

func (f *RedisChangeFeed) Publish(ctx context.Context, ev store.ChangeEvent) error {
	data, err := encodeChange(ev)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, ChangeChannel(ev.Kind), data).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

func (f *RedisChangeFeed) Subscribe(ctx context.Context, kind models.EntityKind, filters []store.Filter, onChange func(store.ChangeEvent)) (store.Handle, error) {
	if onChange == nil {
		return "", fmt.Errorf("subscribe %s: nil handler", kind)
	}

	pubsub := f.client.Subscribe(ctx, ChangeChannel(kind))
	// Wait for the subscription confirmation so no message is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return "", fmt.Errorf("failed to subscribe to %s: %w", ChangeChannel(kind), err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &redisSubscription{pubsub: pubsub, cancel: cancel, done: make(chan struct{})}
	h := store.Handle(uuid.NewString())

	f.mu.Lock()
	f.subs[h] = sub
	f.mu.Unlock()

	go f.consume(subCtx, sub, kind, filters, onChange)
	return h, nil
}

func (f *RedisChangeFeed) consume(ctx context.Context, sub *redisSubscription, kind models.EntityKind, filters []store.Filter, onChange func(store.ChangeEvent)) {
	defer close(sub.done)
	messages := sub.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			ev, err := decodeChange([]byte(msg.Payload), kind)
			if err != nil {
				f.log.WithError(err).WithField("channel", msg.Channel).Warn("Dropping change message")
				continue
			}
			if wants(ev, filters) {
				onChange(ev)
			}
		}
	}
}

func (f *RedisChangeFeed) Unsubscribe(h store.Handle) error {
	f.mu.Lock()
	sub, ok := f.subs[h]
	delete(f.subs, h)
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown subscription %s", h)
	}

	sub.cancel()
	err := sub.pubsub.Close()
	<-sub.done
	return err
}

// Close ends every subscription. The Redis client itself is left open.
func (f *RedisChangeFeed) Close() error {
	f.mu.Lock()
	handles := make([]store.Handle, 0, len(f.subs))
	for h := range f.subs {
		handles = append(handles, h)
	}
	f.mu.Unlock()

	for _, h := range handles {
		if err := f.Unsubscribe(h); err != nil {
			f.log.WithError(err).Warn("Failed to close subscription")
		}
	}
	return nil
}
