package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/market-data/internal/broker"
	"github.com/rickgao/market-data/internal/metrics"
	"github.com/rickgao/market-data/internal/model"
)

// ErrSubscriptionClosed is returned by Run when the broker ends the
// subscription while the client is still connected.
var ErrSubscriptionClosed = errors.New("subscription closed by broker")

// DefaultUnsubscribeTimeout bounds the unsubscribe call on session exit.
const DefaultUnsubscribeTimeout = 5 * time.Second

// State is the session lifecycle state.
type State int32

const (
	Subscribing State = iota
	Streaming
	Closed
)

func (s State) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Registrar records symbols of interest and returns their current prices.
type Registrar interface {
	Track(symbols []string) model.Quotes
}

// FrameWriter delivers one quote map to the client.
type FrameWriter interface {
	WriteFrame(q model.Quotes) error
}

// Config holds Session configuration.
type Config struct {
	Symbols            []string
	Channel            string
	Transport          string // metrics label, e.g. "sse" or "ws"
	UnsubscribeTimeout time.Duration
}

// Session is one client's quote stream.
type Session struct {
	id        string
	cfg       Config
	keep      map[string]struct{}
	registrar Registrar
	broker    broker.Broker
	metrics   *metrics.Metrics
	logger    *slog.Logger

	state atomic.Int32
}

// NewSession creates a session in the Subscribing state.
func NewSession(cfg Config, registrar Registrar, b broker.Broker, m *metrics.Metrics, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Channel == "" {
		cfg.Channel = broker.DefaultChannel
	}
	if cfg.UnsubscribeTimeout <= 0 {
		cfg.UnsubscribeTimeout = DefaultUnsubscribeTimeout
	}

	keep := make(map[string]struct{}, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		keep[s] = struct{}{}
	}

	id := uuid.NewString()
	return &Session{
		id:        id,
		cfg:       cfg,
		keep:      keep,
		registrar: registrar,
		broker:    b,
		metrics:   m,
		logger:    logger.With("session", id, "transport", cfg.Transport),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Run streams until ctx is cancelled, a write fails or the subscription ends.
// Client disconnect (ctx cancellation) returns nil.
func (s *Session) Run(ctx context.Context, w FrameWriter) error {
	defer s.state.Store(int32(Closed))

	snapshot := s.registrar.Track(s.cfg.Symbols)

	sub, err := s.broker.Subscribe(ctx, s.cfg.Channel)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer s.unsubscribe(sub)

	s.metrics.StreamOpened(s.cfg.Transport)
	defer s.metrics.StreamClosed(s.cfg.Transport)

	s.logger.Info("quote stream opened", "symbols", len(s.cfg.Symbols))

	if err := s.write(w, snapshot); err != nil {
		return err
	}
	s.state.Store(int32(Streaming))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("quote stream closed by client")
			return nil

		case payload, ok := <-sub.Messages():
			if !ok {
				s.logger.Warn("quote stream subscription ended")
				return ErrSubscriptionClosed
			}

			var published model.Quotes
			if err := json.Unmarshal(payload, &published); err != nil {
				s.logger.Warn("dropping malformed quote message", "err", err, "len", len(payload))
				continue
			}

			if err := s.write(w, published.Filter(s.keep)); err != nil {
				return err
			}
		}
	}
}

func (s *Session) write(w FrameWriter, q model.Quotes) error {
	if err := w.WriteFrame(q); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.metrics.StreamFrame(s.cfg.Transport)
	return nil
}

// unsubscribe runs with its own deadline: the request context is usually
// already cancelled by the time it is called.
func (s *Session) unsubscribe(sub broker.Subscription) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.UnsubscribeTimeout)
	defer cancel()

	if err := sub.Close(ctx); err != nil {
		s.logger.Warn("unsubscribe failed", "err", err)
		return
	}
	s.logger.Debug("unsubscribed", "channel", s.cfg.Channel)
}
