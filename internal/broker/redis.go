package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis is a Broker backed by Redis PUBLISH/SUBSCRIBE.
type Redis struct {
	client     *redis.Client
	bufferSize int
	logger     *slog.Logger
}

// NewRedis parses a redis:// URL and creates the client. It does not dial;
// call Ping to verify connectivity.
func NewRedis(url string, bufferSize int, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisFromClient(redis.NewClient(opts), bufferSize, logger), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, bufferSize int, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Redis{
		client:     client,
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Publish implements Broker.
func (r *Redis) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	n, err := r.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: publish %s: %w", ErrUnavailable, channel, err)
	}
	return n, nil
}

// Subscribe implements Broker.
func (r *Redis) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := r.client.Subscribe(ctx, channel)

	// Wait for the subscribe confirmation so that no message published after
	// this call returns can be missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("%w: subscribe %s: %w", ErrUnavailable, channel, err)
	}

	sub := &redisSubscription{
		ps:       ps,
		channel:  channel,
		messages: make(chan []byte, r.bufferSize),
		done:     make(chan struct{}),
		logger:   r.logger,
	}
	go sub.pump(r.bufferSize)

	return sub, nil
}

// Ping implements Broker.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrUnavailable, err)
	}
	return nil
}

// Close implements Broker.
func (r *Redis) Close() error {
	return r.client.Close()
}

type redisSubscription struct {
	ps       *redis.PubSub
	channel  string
	messages chan []byte
	done     chan struct{}
	logger   *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.messages
}

// pump forwards payloads until the go-redis channel closes.
func (s *redisSubscription) pump(size int) {
	defer close(s.messages)

	for msg := range s.ps.Channel(redis.WithChannelSize(size)) {
		select {
		case s.messages <- []byte(msg.Payload):
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		close(s.done)

		if err := s.ps.Unsubscribe(ctx, s.channel); err != nil {
			s.closeErr = fmt.Errorf("%w: unsubscribe %s: %w", ErrUnavailable, s.channel, err)
		}
		if err := s.ps.Close(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("%w: close pubsub: %w", ErrUnavailable, err)
		}
	})
	return s.closeErr
}

var _ Broker = (*Redis)(nil)
