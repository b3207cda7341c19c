package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/market-data/internal/cache"
	"github.com/rickgao/market-data/internal/market"
	"github.com/rickgao/market-data/internal/model"
	"github.com/rickgao/market-data/internal/publisher"
)

// catalogSaver is the write side of store.CatalogStore.
type catalogSaver interface {
	Save(ctx context.Context, securities []model.Security) error
}

// catalogPersister saves the catalog on its own goroutine. Requests made
// while a save is running collapse into a single follow-up save.
type catalogPersister struct {
	catalog *cache.SecurityCatalog
	saver   catalogSaver
	timeout time.Duration
	logger  *slog.Logger

	pending chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

func newCatalogPersister(catalog *cache.SecurityCatalog, saver catalogSaver, timeout time.Duration, logger *slog.Logger) *catalogPersister {
	return &catalogPersister{
		catalog: catalog,
		saver:   saver,
		timeout: timeout,
		logger:  logger,
		pending: make(chan struct{}, 1),
	}
}

// Request schedules a save and returns immediately.
func (p *catalogPersister) Request() {
	select {
	case p.pending <- struct{}{}:
	default:
	}
}

func (p *catalogPersister) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx)
}

// Stop cancels any running save and waits for the goroutine. A pending
// request is dropped.
func (p *catalogPersister) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
}

func (p *catalogPersister) loop(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.pending:
			p.save(ctx)
		}
	}
}

func (p *catalogPersister) save(ctx context.Context) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	securities := p.catalog.GetAll()
	if err := p.saver.Save(ctx, securities); err != nil {
		p.logger.Warn("failed to persist catalog", "err", err)
		return
	}
	p.logger.Debug("catalog persisted", "securities", len(securities), "duration", time.Since(start))
}

// persistingRefresher asks the persister for a save after every successful
// refresh. It never waits for the database.
type persistingRefresher struct {
	inner     publisher.Refresher
	persister *catalogPersister
}

func (p *persistingRefresher) Refresh(ctx context.Context) (market.RefreshStats, error) {
	stats, err := p.inner.Refresh(ctx)
	if err != nil {
		return stats, err
	}
	p.persister.Request()
	return stats, nil
}
