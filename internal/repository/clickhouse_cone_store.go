package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Prism/internal/domain/models"
	domrepo "Prism/internal/domain/repository"
	pkgch "Prism/pkg/clickhouse"
	applogger "Prism/pkg/logger"
)

// ConeSchema returns the DDL for the render history table.
func ConeSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.cone_renders (
            fetched_at    DateTime64(3, 'UTC'),
            asset         LowCardinality(String),
            horizon       LowCardinality(String),
            current_price Float64,
            min_price     Float64,
            max_price     Float64,
            volatility    Float64,
            spread_pct    Float64,
            points        UInt16,
            degenerate    UInt8
        ) ENGINE = MergeTree
        ORDER BY (asset, horizon, fetched_at)
        TTL toDateTime(fetched_at) + INTERVAL 30 DAY`, database),
	}
}

// CHConeStore keeps the render parameters of every built scene in ClickHouse.
type CHConeStore struct {
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
}

func NewCHConeStore(db *sql.DB, database string, l *applogger.Logger) *CHConeStore {
	return &CHConeStore{db: db, database: database, table: database + ".cone_renders", l: l}
}

func (s *CHConeStore) Init(ctx context.Context) error {
	if err := pkgch.InitSchema(ctx, s.db, ConeSchema(s.database)); err != nil {
		return fmt.Errorf("cone store: %w", err)
	}
	return nil
}

func (s *CHConeStore) Store(ctx context.Context, rec models.ConeRecord) error {
	q := fmt.Sprintf(`INSERT INTO %s (fetched_at, asset, horizon, current_price, min_price, max_price, volatility, spread_pct, points, degenerate) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	var degen uint8
	if rec.Degenerate {
		degen = 1
	}
	_, err := s.db.ExecContext(ctx, q,
		rec.FetchedAt.UTC(),
		rec.Asset,
		string(rec.Horizon),
		rec.CurrentPrice,
		rec.MinPrice,
		rec.MaxPrice,
		rec.Volatility,
		rec.SpreadPct,
		uint16(rec.Points),
		degen,
	)
	if err != nil {
		s.l.Error("clickhouse store cone failed",
			applogger.String("asset", rec.Asset),
			applogger.String("horizon", string(rec.Horizon)),
			applogger.Error(err),
		)
		return fmt.Errorf("store cone: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *CHConeStore) Recent(ctx context.Context, asset string, h models.Horizon, limit int) ([]models.ConeRecord, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT fetched_at, asset, horizon, current_price, min_price, max_price, volatility, spread_pct, points, degenerate
        FROM %s
        WHERE asset = ? AND horizon = ?
        ORDER BY fetched_at DESC
        LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, asset, string(h), limit)
	if err != nil {
		return nil, fmt.Errorf("recent cones: %w", err)
	}
	defer rows.Close()

	out := make([]models.ConeRecord, 0, limit)
	for rows.Next() {
		var (
			rec     models.ConeRecord
			horizon string
			points  uint16
			degen   uint8
		)
		if err := rows.Scan(&rec.FetchedAt, &rec.Asset, &horizon, &rec.CurrentPrice, &rec.MinPrice,
			&rec.MaxPrice, &rec.Volatility, &rec.SpreadPct, &points, &degen); err != nil {
			return nil, fmt.Errorf("scan cone: %w", err)
		}
		rec.Horizon = models.Horizon(horizon)
		rec.Points = int(points)
		rec.Degenerate = degen == 1
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse recent cones",
		applogger.String("asset", asset),
		applogger.String("horizon", string(h)),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *CHConeStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *CHConeStore) Close() error { return nil }

var _ domrepo.ConeStore = (*CHConeStore)(nil)
