package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/market-data/internal/broker"
	"github.com/rickgao/market-data/internal/model"
)

type fakeRegistrar struct {
	mu      sync.Mutex
	quotes  model.Quotes
	tracked []string
}

func (f *fakeRegistrar) Track(symbols []string) model.Quotes {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, symbols...)

	out := make(model.Quotes)
	for _, s := range symbols {
		if p, ok := f.quotes[s]; ok {
			out[s] = p
		}
	}
	return out
}

// chanWriter hands every frame to the test.
type chanWriter struct {
	frames chan model.Quotes
	err    error
}

func newChanWriter() *chanWriter {
	return &chanWriter{frames: make(chan model.Quotes, 16)}
}

func (w *chanWriter) WriteFrame(q model.Quotes) error {
	if w.err != nil {
		return w.err
	}
	w.frames <- q
	return nil
}

func (w *chanWriter) next(t *testing.T) model.Quotes {
	t.Helper()
	select {
	case q := <-w.frames:
		return q
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return nil
}

type runResult struct {
	err error
}

func startSession(t *testing.T, ctx context.Context, s *Session, w FrameWriter) <-chan runResult {
	t.Helper()
	done := make(chan runResult, 1)
	go func() {
		done <- runResult{err: s.Run(ctx, w)}
	}()
	return done
}

func waitDone(t *testing.T, done <-chan runResult) error {
	t.Helper()
	select {
	case r := <-done:
		return r.err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not exit")
	}
	return nil
}

func waitSubscribers(t *testing.T, b *broker.Memory, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers(broker.DefaultChannel) != want {
		if time.Now().After(deadline) {
			t.Fatalf("Subscribers() = %d, want %d", b.Subscribers(broker.DefaultChannel), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSession_SnapshotThenFilteredUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := broker.NewMemory(8)
	defer b.Close()
	reg := &fakeRegistrar{quotes: model.Quotes{"AAPL": 150}}

	aapl := NewSession(Config{Symbols: []string{"AAPL"}}, reg, b, nil, nil)
	tsla := NewSession(Config{Symbols: []string{"TSLA"}}, reg, b, nil, nil)
	wa, wt := newChanWriter(), newChanWriter()
	doneA := startSession(t, ctx, aapl, wa)
	doneT := startSession(t, ctx, tsla, wt)

	if got := wa.next(t); len(got) != 1 || got["AAPL"] != 150 {
		t.Errorf("AAPL snapshot = %v, want map[AAPL:150]", got)
	}
	if got := wt.next(t); len(got) != 0 {
		t.Errorf("TSLA snapshot = %v, want empty", got)
	}
	waitSubscribers(t, b, 2)

	b.Publish(ctx, broker.DefaultChannel, []byte(`{"AAPL":150,"MSFT":300}`))

	if got := wa.next(t); len(got) != 1 || got["AAPL"] != 150 {
		t.Errorf("AAPL frame = %v, want map[AAPL:150]", got)
	}
	if got := wt.next(t); got == nil || len(got) != 0 {
		t.Errorf("TSLA frame = %v, want empty non-nil map", got)
	}

	if aapl.State() != Streaming {
		t.Errorf("State() = %v, want %v", aapl.State(), Streaming)
	}

	cancel()
	if err := waitDone(t, doneA); err != nil {
		t.Errorf("Run() error = %v, want nil on disconnect", err)
	}
	if err := waitDone(t, doneT); err != nil {
		t.Errorf("Run() error = %v, want nil on disconnect", err)
	}
	if aapl.State() != Closed {
		t.Errorf("State() = %v after exit, want %v", aapl.State(), Closed)
	}
	waitSubscribers(t, b, 0)

	if len(reg.tracked) != 2 {
		t.Errorf("tracked = %v, want both sessions registered", reg.tracked)
	}
}

func TestSession_MalformedMessageSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := broker.NewMemory(8)
	defer b.Close()

	s := NewSession(Config{Symbols: []string{"AAPL"}}, &fakeRegistrar{}, b, nil, nil)
	w := newChanWriter()
	done := startSession(t, ctx, s, w)
	w.next(t)
	waitSubscribers(t, b, 1)

	b.Publish(ctx, broker.DefaultChannel, []byte(`not json`))
	b.Publish(ctx, broker.DefaultChannel, []byte(`{"AAPL":151}`))

	if got := w.next(t); got["AAPL"] != 151 {
		t.Errorf("frame = %v, want map[AAPL:151]", got)
	}

	cancel()
	waitDone(t, done)
}

func TestSession_UnsubscribeErrorSwallowed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := broker.NewMemory(8)
	s := NewSession(Config{Symbols: []string{"AAPL"}}, &fakeRegistrar{}, b, nil, nil)
	w := newChanWriter()
	done := startSession(t, ctx, s, w)
	w.next(t)

	// Broker connection drops while the session streams.
	b.Close()

	err := waitDone(t, done)
	if !errors.Is(err, ErrSubscriptionClosed) {
		t.Errorf("Run() error = %v, want ErrSubscriptionClosed", err)
	}
	if errors.Is(err, broker.ErrUnavailable) {
		t.Error("unsubscribe error leaked out of Run")
	}
}

func TestSession_DisconnectAfterBrokerDropReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	b := broker.NewMemory(8)
	sub := &stuckBroker{Memory: b}
	s := NewSession(Config{Symbols: []string{"AAPL"}}, &fakeRegistrar{}, sub, nil, nil)
	w := newChanWriter()
	done := startSession(t, ctx, s, w)
	w.next(t)

	sub.failClose = true
	cancel()

	if err := waitDone(t, done); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
	if !sub.closed {
		t.Error("subscription was not closed on exit")
	}
	b.Close()
}

func TestSession_SubscribeFailure(t *testing.T) {
	b := broker.NewMemory(8)
	b.Close()

	w := newChanWriter()
	s := NewSession(Config{Symbols: []string{"AAPL"}}, &fakeRegistrar{}, b, nil, nil)

	err := s.Run(context.Background(), w)
	if !errors.Is(err, broker.ErrUnavailable) {
		t.Errorf("Run() error = %v, want ErrUnavailable", err)
	}
	if len(w.frames) != 0 {
		t.Error("frame written after failed subscribe")
	}
}

func TestSession_WriteFailureUnsubscribes(t *testing.T) {
	b := broker.NewMemory(8)
	defer b.Close()

	w := &chanWriter{err: errors.New("broken pipe")}
	s := NewSession(Config{Symbols: []string{"AAPL"}}, &fakeRegistrar{}, b, nil, nil)

	err := s.Run(context.Background(), w)
	if err == nil {
		t.Fatal("Run() error = nil, want write error")
	}
	if got := b.Subscribers(broker.DefaultChannel); got != 0 {
		t.Errorf("Subscribers() = %d after write failure, want 0", got)
	}
}

// stuckBroker wraps Memory and can make subscription Close fail.
type stuckBroker struct {
	*broker.Memory
	failClose bool
	closed    bool
}

func (s *stuckBroker) Subscribe(ctx context.Context, channel string) (broker.Subscription, error) {
	sub, err := s.Memory.Subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}
	return &stuckSubscription{Subscription: sub, parent: s}, nil
}

type stuckSubscription struct {
	broker.Subscription
	parent *stuckBroker
}

func (s *stuckSubscription) Close(ctx context.Context) error {
	s.parent.closed = true
	if s.parent.failClose {
		return broker.ErrUnavailable
	}
	return s.Subscription.Close(ctx)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Subscribing, "subscribing"},
		{Streaming, "streaming"},
		{Closed, "closed"},
		{State(7), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
