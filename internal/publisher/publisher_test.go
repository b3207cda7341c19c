package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/market-data/internal/broker"
	"github.com/rickgao/market-data/internal/cache"
	"github.com/rickgao/market-data/internal/market"
	"github.com/rickgao/market-data/internal/model"
)

type fakeGate struct {
	mu   sync.Mutex
	open bool
}

func (g *fakeGate) IsOpen(time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

func (g *fakeGate) set(open bool) {
	g.mu.Lock()
	g.open = open
	g.mu.Unlock()
}

type fakeRefresher struct {
	calls int
	err   error
	apply func()
}

func (f *fakeRefresher) Refresh(ctx context.Context) (market.RefreshStats, error) {
	f.calls++
	if f.apply != nil {
		f.apply()
	}
	return market.RefreshStats{}, f.err
}

type fixture struct {
	pub       *Publisher
	symbols   *cache.SymbolSet
	catalog   *cache.SecurityCatalog
	gate      *fakeGate
	refresher *fakeRefresher
	broker    *broker.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		symbols:   cache.NewSymbolSet(),
		catalog:   cache.NewSecurityCatalog(),
		gate:      &fakeGate{},
		refresher: &fakeRefresher{},
		broker:    broker.NewMemory(8),
	}
	t.Cleanup(func() { f.broker.Close() })
	f.pub = New(Config{}, f.symbols, f.catalog, f.gate, f.refresher, f.broker, nil, nil)
	return f
}

func TestPublishCycle_NoSymbols(t *testing.T) {
	f := newFixture(t)
	f.gate.set(true)

	got, err := f.pub.PublishCycle(context.Background())
	if err != nil {
		t.Fatalf("PublishCycle() error = %v", err)
	}
	if got != NoSymbols {
		t.Errorf("PublishCycle() = %v, want %v", got, NoSymbols)
	}
	if f.refresher.calls != 0 {
		t.Errorf("refresh calls = %d, want 0", f.refresher.calls)
	}
}

func TestPublishCycle_PostCloseRefreshOnce(t *testing.T) {
	f := newFixture(t)
	f.symbols.Add("AAPL")
	ctx := context.Background()

	want := []struct {
		open    bool
		outcome Outcome
		calls   int
	}{
		{false, ClosedRefreshed, 1},
		{false, ClosedIdle, 1},
		{false, ClosedIdle, 1},
		{true, Published, 2},
		{true, Published, 3},
		{false, ClosedRefreshed, 4},
		{false, ClosedIdle, 4},
	}

	for i, step := range want {
		f.gate.set(step.open)
		got, err := f.pub.PublishCycle(ctx)
		if err != nil {
			t.Fatalf("cycle %d: PublishCycle() error = %v", i, err)
		}
		if got != step.outcome {
			t.Errorf("cycle %d: outcome = %v, want %v", i, got, step.outcome)
		}
		if f.refresher.calls != step.calls {
			t.Errorf("cycle %d: refresh calls = %d, want %d", i, f.refresher.calls, step.calls)
		}
	}
}

func TestPublishCycle_PublishesInterestOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.catalog.Upsert("AAPL", model.Security{Symbol: "AAPL", Price: 150})
	f.catalog.Upsert("MSFT", model.Security{Symbol: "MSFT", Price: 300})
	f.symbols.Add("AAPL", "TSLA")
	f.gate.set(true)

	sub, err := f.broker.Subscribe(ctx, broker.DefaultChannel)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if _, err := f.pub.PublishCycle(ctx); err != nil {
		t.Fatalf("PublishCycle() error = %v", err)
	}

	select {
	case payload := <-sub.Messages():
		var got model.Quotes
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("unmarshal payload %s: %v", payload, err)
		}
		if len(got) != 1 || got["AAPL"] != 150 {
			t.Errorf("payload = %v, want map[AAPL:150]", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
}

func TestPublishCycle_UsesRefreshedPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.catalog.Upsert("AAPL", model.Security{Symbol: "AAPL", Price: 150})
	f.refresher.apply = func() {
		f.catalog.Upsert("AAPL", model.Security{Symbol: "AAPL", Price: 151})
	}
	f.symbols.Add("AAPL")
	f.gate.set(true)

	sub, _ := f.broker.Subscribe(ctx, broker.DefaultChannel)
	if _, err := f.pub.PublishCycle(ctx); err != nil {
		t.Fatalf("PublishCycle() error = %v", err)
	}

	if got := string(<-sub.Messages()); got != `{"AAPL":151}` {
		t.Errorf("payload = %s, want {\"AAPL\":151}", got)
	}
}

func TestPublishCycle_RefreshFailureStillPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.catalog.Upsert("AAPL", model.Security{Symbol: "AAPL", Price: 150})
	f.refresher.err = errors.New("upstream down")
	f.symbols.Add("AAPL")
	f.gate.set(true)

	sub, _ := f.broker.Subscribe(ctx, broker.DefaultChannel)
	got, err := f.pub.PublishCycle(ctx)
	if err != nil {
		t.Fatalf("PublishCycle() error = %v", err)
	}
	if got != Published {
		t.Errorf("outcome = %v, want %v", got, Published)
	}
	if payload := string(<-sub.Messages()); payload != `{"AAPL":150}` {
		t.Errorf("payload = %s, want stale {\"AAPL\":150}", payload)
	}
}

func TestPublishCycle_BrokerFailure(t *testing.T) {
	f := newFixture(t)
	f.symbols.Add("AAPL")
	f.gate.set(true)
	f.broker.Close()

	_, err := f.pub.PublishCycle(context.Background())
	if !errors.Is(err, broker.ErrUnavailable) {
		t.Errorf("PublishCycle() error = %v, want ErrUnavailable", err)
	}
}

func TestTrack(t *testing.T) {
	f := newFixture(t)
	f.catalog.Upsert("AAPL", model.Security{Symbol: "AAPL", Price: 150})

	got := f.pub.Track([]string{"AAPL", "TSLA"})
	if len(got) != 1 || got["AAPL"] != 150 {
		t.Errorf("Track() = %v, want map[AAPL:150]", got)
	}
	if !f.symbols.Contains("TSLA") {
		t.Error("unknown symbol not registered as interest")
	}
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		o    Outcome
		want string
	}{
		{NoSymbols, "no_symbols"},
		{ClosedRefreshed, "closed_refreshed"},
		{ClosedIdle, "closed_idle"},
		{Published, "published"},
		{Outcome(9), "outcome(9)"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
