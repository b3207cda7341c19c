// Package broker provides the publish/subscribe transport that fans quote
// messages out to stream sessions.
//
// Two implementations share the Broker interface:
//   - Redis: PUBLISH/SUBSCRIBE over go-redis, for multi-process deployments
//   - Memory: in-process fan-out for single-node runs and tests
package broker

import (
	"context"
	"errors"
)

// DefaultChannel carries the JSON quote map.
const DefaultChannel = "market-data-channel"

// ErrUnavailable wraps every transport-level failure.
var ErrUnavailable = errors.New("broker unavailable")

// Broker publishes payloads on named channels and opens subscriptions.
type Broker interface {
	// Publish sends payload and returns the number of receivers.
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
	// Subscribe returns once the subscription is established: every message
	// published after it returns is delivered.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// Subscription is one live channel subscription.
type Subscription interface {
	// Messages is closed when the subscription ends.
	Messages() <-chan []byte
	// Close unsubscribes. It is safe to call more than once.
	Close(ctx context.Context) error
}
