package repository

import (
	"context"
	"log"
	"time"

	"autotrader/internal/activity"
	"autotrader/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

const createTradesTable = `
CREATE TABLE IF NOT EXISTS trades (
    id              UUID        PRIMARY KEY,
    position_id     UUID        NOT NULL,
    symbol          TEXT        NOT NULL,
    side            TEXT        NOT NULL,
    price           NUMERIC     NOT NULL,
    amount          NUMERIC     NOT NULL,
    realized_profit NUMERIC,
    confidence      DOUBLE PRECISION NOT NULL,
    reason          TEXT        NOT NULL,
    strategy        TEXT        NOT NULL,
    mode            TEXT        NOT NULL,
    executed_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol_time
    ON trades (symbol, executed_at DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TradeRepository is an append-only sink for executed trades.
type TradeRepository struct {
	pool    PgxPool
	tracer  trace.Tracer
	timeout time.Duration
}

func NewTradeRepository(pool PgxPool, tracer trace.Tracer) *TradeRepository {
	return &TradeRepository{pool: pool, tracer: tracer, timeout: 5 * time.Second}
}

func (r *TradeRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "trade-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createTradesTable)
	return err
}

// InsertTrade stores t. Re-inserting the same trade id is a no-op.
func (r *TradeRepository) InsertTrade(ctx context.Context, t domain.TradeRecord) error {
	ctx, span := r.tracer.Start(ctx, "trade-repo.insert-trade")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO trades (id, position_id, symbol, side, price, amount, realized_profit, confidence, reason, strategy, mode, executed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO NOTHING`,
		t.ID, t.PositionID, t.Symbol, string(t.Side), t.Price, t.Amount, nullableDecimal(t.RealizedProfit),
		t.Confidence, t.Reason, string(t.Strategy), string(t.Mode), t.Timestamp,
	)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Observe persists executed trades from the activity stream. Failures are
// logged; the in-memory ledger stays authoritative.
func (r *TradeRepository) Observe(ctx context.Context, e activity.Entry) {
	if e.Kind != activity.KindExecuted || e.Trade == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.InsertTrade(ctx, *e.Trade); err != nil {
		log.Printf("trade-repo: persist trade %s: %v", e.Trade.ID, err)
	}
}

func nullableDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
