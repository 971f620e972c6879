package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deltafi-trade/swap-core/internal/model"
)

// Store provides Postgres persistence for pool snapshots and trades.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPoolSnapshots inserts or updates the latest state per pool.
func (s *Store) UpsertPoolSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO pool_snapshots (
				pool, base_mint, quote_mint, swap_type, base_reserve, quote_reserve,
				total_supply, market_price, slot, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			ON CONFLICT (pool)
			DO UPDATE SET
				base_reserve = EXCLUDED.base_reserve,
				quote_reserve = EXCLUDED.quote_reserve,
				total_supply = EXCLUDED.total_supply,
				market_price = EXCLUDED.market_price,
				slot = EXCLUDED.slot,
				updated_at = now()
		`,
			snap.Pool.String(),
			snap.BaseMint.String(),
			snap.QuoteMint.String(),
			snap.SwapType,
			int64(snap.BaseReserve),
			int64(snap.QuoteReserve),
			int64(snap.TotalSupply),
			snap.MarketPrice,
			int64(snap.Slot),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertTrades appends executed trades.
func (s *Store) InsertTrades(ctx context.Context, trades []model.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(`
			INSERT INTO trades (
				pool, owner, direction, amount_in, amount_out, trade_fee, admin_fee,
				reward, referral_reward, market_price, slot, executed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`,
			t.Pool.String(),
			t.Owner.String(),
			t.Direction,
			int64(t.AmountIn),
			int64(t.AmountOut),
			int64(t.TradeFee),
			int64(t.AdminFee),
			int64(t.Reward),
			int64(t.ReferralReward),
			t.MarketPrice,
			int64(t.Slot),
			t.ExecutedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range trades {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
