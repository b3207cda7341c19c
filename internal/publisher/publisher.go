// Package publisher runs the quote publish cycle: it gates on trading hours,
// keeps the catalog fresh and emits one quote map per cycle on the broker.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/market-data/internal/broker"
	"github.com/rickgao/market-data/internal/cache"
	"github.com/rickgao/market-data/internal/market"
	"github.com/rickgao/market-data/internal/metrics"
	"github.com/rickgao/market-data/internal/model"
)

// Outcome describes what one publish cycle did.
type Outcome int

const (
	NoSymbols       Outcome = iota // interest set empty, nothing done
	ClosedRefreshed                // market closed, post-close refresh ran
	ClosedIdle                     // market closed, refresh already done
	Published                      // market open, quotes published
)

func (o Outcome) String() string {
	switch o {
	case NoSymbols:
		return "no_symbols"
	case ClosedRefreshed:
		return "closed_refreshed"
	case ClosedIdle:
		return "closed_idle"
	case Published:
		return "published"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Gate decides whether the market is open.
type Gate interface {
	IsOpen(now time.Time) bool
}

// Refresher refreshes the security catalog.
type Refresher interface {
	Refresh(ctx context.Context) (market.RefreshStats, error)
}

// Config holds Publisher configuration.
type Config struct {
	Channel string
	Now     func() time.Time
}

// Publisher assembles and publishes quote snapshots.
type Publisher struct {
	symbols   *cache.SymbolSet
	catalog   *cache.SecurityCatalog
	gate      Gate
	refresher Refresher
	broker    broker.Broker
	channel   string
	now       func() time.Time
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu                    sync.Mutex // serializes cycles
	needsPostCloseRefresh bool
}

// New creates a Publisher.
func New(cfg Config, symbols *cache.SymbolSet, catalog *cache.SecurityCatalog, gate Gate, refresher Refresher, b broker.Broker, m *metrics.Metrics, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Channel == "" {
		cfg.Channel = broker.DefaultChannel
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Publisher{
		symbols:               symbols,
		catalog:               catalog,
		gate:                  gate,
		refresher:             refresher,
		broker:                b,
		channel:               cfg.Channel,
		now:                   cfg.Now,
		metrics:               m,
		logger:                logger,
		needsPostCloseRefresh: true,
	}
}

// Track registers symbols of interest and returns the current prices of the
// ones present in the catalog.
func (p *Publisher) Track(symbols []string) model.Quotes {
	if added := p.symbols.Add(symbols...); added > 0 {
		p.logger.Debug("tracking new symbols", "added", added, "total", p.symbols.Len())
	}
	return model.QuotesOf(p.catalog.Lookup(symbols))
}

// PublishCycle runs one cycle. Refresh failures are logged and do not stop
// the cycle; the returned error is a marshal or publish failure.
func (p *Publisher) PublishCycle(ctx context.Context) (Outcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	symbols := p.symbols.Snapshot()
	if len(symbols) == 0 {
		p.logger.Info("no requested quotes to publish")
		p.metrics.RecordPublish(NoSymbols.String(), 0)
		return NoSymbols, nil
	}

	if !p.gate.IsOpen(p.now()) {
		outcome := ClosedIdle
		if p.needsPostCloseRefresh {
			p.logger.Info("market closed, refreshing securities once")
			p.refresh(ctx)
			p.needsPostCloseRefresh = false
			outcome = ClosedRefreshed
		}
		p.logger.Info("market is closed, nothing to publish")
		p.metrics.RecordPublish(outcome.String(), len(symbols))
		return outcome, nil
	}

	p.needsPostCloseRefresh = true
	p.refresh(ctx)

	quotes := model.QuotesOf(p.catalog.Lookup(symbols))
	payload, err := json.Marshal(quotes)
	if err != nil {
		return Published, fmt.Errorf("marshal quotes: %w", err)
	}

	receivers, err := p.broker.Publish(ctx, p.channel, payload)
	if err != nil {
		return Published, fmt.Errorf("publish quotes: %w", err)
	}

	p.metrics.RecordPublish(Published.String(), len(symbols))
	p.metrics.SetReceivers(receivers)
	p.logger.Info("quotes published",
		"channel", p.channel,
		"quotes", len(quotes),
		"receivers", receivers,
	)

	return Published, nil
}

func (p *Publisher) refresh(ctx context.Context) {
	if _, err := p.refresher.Refresh(ctx); err != nil {
		p.logger.Warn("catalog refresh skipped, serving cached securities", "err", err)
	}
}
