package broker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func receive(t *testing.T, sub Subscription) []byte {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		if !ok {
			t.Fatal("subscription closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return nil
}

func TestMemory_FanOut(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(4)
	defer b.Close()

	s1, err := b.Subscribe(ctx, DefaultChannel)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	s2, err := b.Subscribe(ctx, DefaultChannel)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	other, _ := b.Subscribe(ctx, "other")

	n, err := b.Publish(ctx, DefaultChannel, []byte(`{"AAPL":150}`))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Publish() receivers = %d, want 2", n)
	}

	for _, s := range []Subscription{s1, s2} {
		if got := string(receive(t, s)); got != `{"AAPL":150}` {
			t.Errorf("message = %s, want {\"AAPL\":150}", got)
		}
	}

	select {
	case msg := <-other.Messages():
		t.Errorf("other channel received %s", msg)
	default:
	}
}

func TestMemory_OnlyLaterMessagesDelivered(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(4)
	defer b.Close()

	b.Publish(ctx, DefaultChannel, []byte("early"))

	sub, _ := b.Subscribe(ctx, DefaultChannel)
	b.Publish(ctx, DefaultChannel, []byte("late"))

	if got := string(receive(t, sub)); got != "late" {
		t.Errorf("first message = %q, want %q", got, "late")
	}
}

func TestMemory_DropsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(2)
	defer b.Close()

	sub, _ := b.Subscribe(ctx, DefaultChannel)
	for _, msg := range []string{"1", "2", "3"} {
		b.Publish(ctx, DefaultChannel, []byte(msg))
	}

	if got := string(receive(t, sub)); got != "2" {
		t.Errorf("first message = %q, want %q", got, "2")
	}
	if got := string(receive(t, sub)); got != "3" {
		t.Errorf("second message = %q, want %q", got, "3")
	}
}

func TestMemory_CloseSubscription(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(4)
	defer b.Close()

	sub, _ := b.Subscribe(ctx, DefaultChannel)
	if got := b.Subscribers(DefaultChannel); got != 1 {
		t.Fatalf("Subscribers() = %d, want 1", got)
	}

	if err := sub.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sub.Close(ctx); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if got := b.Subscribers(DefaultChannel); got != 0 {
		t.Errorf("Subscribers() = %d after Close, want 0", got)
	}
	if _, ok := <-sub.Messages(); ok {
		t.Error("Messages() still open after Close")
	}

	n, _ := b.Publish(ctx, DefaultChannel, []byte("x"))
	if n != 0 {
		t.Errorf("Publish() receivers = %d after Close, want 0", n)
	}
}

func TestMemory_BrokerClosed(t *testing.T) {
	ctx := context.Background()
	b := NewMemory(4)

	sub, _ := b.Subscribe(ctx, DefaultChannel)
	b.Close()

	if _, ok := <-sub.Messages(); ok {
		t.Error("Messages() still open after broker Close")
	}
	if err := sub.Close(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Close() error = %v, want ErrUnavailable", err)
	}
	if err := b.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Ping() error = %v, want ErrUnavailable", err)
	}
	if _, err := b.Publish(ctx, DefaultChannel, nil); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Publish() error = %v, want ErrUnavailable", err)
	}
	if _, err := b.Subscribe(ctx, DefaultChannel); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Subscribe() error = %v, want ErrUnavailable", err)
	}
}
