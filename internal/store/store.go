// Package store persists the latest security catalog in PostgreSQL so that a
// restarted instance can serve reads before its first upstream refresh.
//
// Only the current snapshot is kept (one row per symbol); quote history is
// not recorded.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/market-data/internal/model"
)

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const schema = `
CREATE TABLE IF NOT EXISTS securities (
	symbol     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	price      DOUBLE PRECISION NOT NULL,
	exchange   TEXT NOT NULL,
	asset_type TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

const upsertSQL = `
	INSERT INTO securities (symbol, name, price, exchange, asset_type, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (symbol) DO UPDATE SET
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		exchange = EXCLUDED.exchange,
		asset_type = EXCLUDED.asset_type,
		updated_at = EXCLUDED.updated_at
`

// CatalogStore reads and writes the securities table.
type CatalogStore struct {
	db        DB
	batchSize int
	logger    *slog.Logger
}

// NewCatalogStore creates a store. batchSize <= 0 means 1000.
func NewCatalogStore(db DB, batchSize int, logger *slog.Logger) *CatalogStore {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &CatalogStore{db: db, batchSize: batchSize, logger: logger}
}

// EnsureSchema creates the securities table if needed.
func (s *CatalogStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create securities table: %w", err)
	}
	return nil
}

// Save upserts securities in batches.
func (s *CatalogStore) Save(ctx context.Context, securities []model.Security) error {
	start := time.Now()
	now := start.UTC()

	for i := 0; i < len(securities); i += s.batchSize {
		end := min(i+s.batchSize, len(securities))
		if err := s.saveBatch(ctx, securities[i:end], now); err != nil {
			return err
		}
	}

	s.logger.Debug("catalog saved",
		"count", len(securities),
		"duration", time.Since(start),
	)
	return nil
}

func (s *CatalogStore) saveBatch(ctx context.Context, rows []model.Security, now time.Time) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(upsertSQL, r.Symbol, r.Name, r.Price, r.Exchange, string(r.AssetType), now)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert securities: %w", err)
		}
	}
	return nil
}

// Load returns every persisted security.
func (s *CatalogStore) Load(ctx context.Context) ([]model.Security, error) {
	rows, err := s.db.Query(ctx, `SELECT symbol, name, price, exchange, asset_type FROM securities ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query securities: %w", err)
	}
	defer rows.Close()

	var out []model.Security
	for rows.Next() {
		var (
			sec       model.Security
			assetType string
		)
		if err := rows.Scan(&sec.Symbol, &sec.Name, &sec.Price, &sec.Exchange, &assetType); err != nil {
			return nil, fmt.Errorf("scan security: %w", err)
		}
		sec.AssetType = model.AssetType(assetType)
		out = append(out, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate securities: %w", err)
	}
	return out, nil
}
