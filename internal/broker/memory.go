package broker

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Broker. Slow subscribers lose their oldest
// buffered message rather than blocking publishers.
type Memory struct {
	mu         sync.Mutex
	subs       map[string]map[*memorySubscription]struct{}
	bufferSize int
	closed     bool
}

// NewMemory creates an in-process broker.
func NewMemory(bufferSize int) *Memory {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Memory{
		subs:       make(map[string]map[*memorySubscription]struct{}),
		bufferSize: bufferSize,
	}
}

// Publish implements Broker.
func (m *Memory) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, fmt.Errorf("%w: publish %s: broker closed", ErrUnavailable, channel)
	}

	var n int64
	for sub := range m.subs[channel] {
		msg := make([]byte, len(payload))
		copy(msg, payload)
		sub.deliver(msg)
		n++
	}
	return n, nil
}

// Subscribe implements Broker.
func (m *Memory) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("%w: subscribe %s: broker closed", ErrUnavailable, channel)
	}

	sub := &memorySubscription{
		broker:   m,
		channel:  channel,
		messages: make(chan []byte, m.bufferSize),
	}
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[*memorySubscription]struct{})
	}
	m.subs[channel][sub] = struct{}{}

	return sub, nil
}

// Ping implements Broker.
func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("%w: broker closed", ErrUnavailable)
	}
	return nil
}

// Close ends every subscription. Later calls are no-ops.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for channel, subs := range m.subs {
		for sub := range subs {
			close(sub.messages)
		}
		delete(m.subs, channel)
	}
	return nil
}

// Subscribers returns the number of live subscriptions on channel.
func (m *Memory) Subscribers(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.subs[channel])
}

type memorySubscription struct {
	broker   *Memory
	channel  string
	messages chan []byte
	once     sync.Once
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.messages
}

// deliver is called with the broker lock held.
func (s *memorySubscription) deliver(msg []byte) {
	select {
	case s.messages <- msg:
		return
	default:
	}

	// Buffer full: drop the oldest message and retry once.
	select {
	case <-s.messages:
	default:
	}
	select {
	case s.messages <- msg:
	default:
	}
}

func (s *memorySubscription) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		m := s.broker
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.closed {
			err = fmt.Errorf("%w: unsubscribe %s: broker closed", ErrUnavailable, s.channel)
			return
		}

		subs := m.subs[s.channel]
		delete(subs, s)
		if len(subs) == 0 {
			delete(m.subs, s.channel)
		}
		close(s.messages)
	})
	return err
}

var _ Broker = (*Memory)(nil)
