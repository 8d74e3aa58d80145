package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"honeypotScope/internal/model"
)

// Store reads a pool index kept in Postgres.
//
// Expected table:
//
//	CREATE TABLE venue_pools (
//	    venue         TEXT    NOT NULL,
//	    pool_id       TEXT    NOT NULL,
//	    token0        TEXT    NOT NULL,
//	    token0_symbol TEXT    NOT NULL DEFAULT '',
//	    token1        TEXT    NOT NULL,
//	    token1_symbol TEXT    NOT NULL DEFAULT '',
//	    locked_value  NUMERIC NOT NULL DEFAULT 0,
//	    PRIMARY KEY (venue, pool_id)
//	);
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

const poolsForPairSQL = `
	SELECT pool_id, token0, token0_symbol, token1, token1_symbol, locked_value::text
	FROM venue_pools
	WHERE venue = $1
	  AND ((lower(token0) = $2 AND lower(token1) = $3) OR (lower(token0) = $3 AND lower(token1) = $2))
	ORDER BY pool_id
`

// Pools returns the pools of venue pairing token with base, in either orientation.
func (s *Store) Pools(ctx context.Context, venue string, token common.Address, base common.Address) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, poolsForPairSQL,
		strings.ToLower(venue),
		strings.ToLower(token.Hex()),
		strings.ToLower(base.Hex()),
	)
	if err != nil {
		return nil, fmt.Errorf("query venue_pools: %w", err)
	}
	defer rows.Close()

	pools := make([]model.Pool, 0)
	for rows.Next() {
		var r poolRow
		if err := rows.Scan(&r.id, &r.token0, &r.symbol0, &r.token1, &r.symbol1, &r.locked); err != nil {
			return nil, fmt.Errorf("scan venue_pools: %w", err)
		}
		pool, err := r.toModel()
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read venue_pools: %w", err)
	}
	return pools, nil
}

type poolRow struct {
	id      string
	token0  string
	symbol0 string
	token1  string
	symbol1 string
	locked  string
}

func (r poolRow) toModel() (model.Pool, error) {
	locked, err := decimal.NewFromString(r.locked)
	if err != nil {
		return model.Pool{}, fmt.Errorf("pool %s locked value %q: %w", r.id, r.locked, err)
	}
	return model.Pool{
		ID:          strings.ToLower(r.id),
		Token0:      model.PoolToken{ID: strings.ToLower(r.token0), Symbol: r.symbol0},
		Token1:      model.PoolToken{ID: strings.ToLower(r.token1), Symbol: r.symbol1},
		LockedValue: locked,
	}, nil
}
