package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"honeypotScope/internal/metrics"
	"honeypotScope/internal/model"
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrQueryFailed    = errors.New("pool query failed")
)

// Source reads the pools pairing token with base from one venue's index.
// Pools may come back in either token orientation.
type Source interface {
	Pools(ctx context.Context, venue string, token common.Address, base common.Address) ([]model.Pool, error)
}

// Options tune a discovery client.
type Options struct {
	// QueryRate caps queries per second; zero or less means unlimited.
	QueryRate  float64
	QueryBurst int
	Metrics    *metrics.Recorder
}

// Client discovers pools for one venue.
type Client struct {
	venue   string
	source  Source
	limiter *rate.Limiter
	metrics *metrics.Recorder
	logger  *zap.Logger
}

func NewClient(venue string, source Source, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if opts.QueryRate > 0 {
		limit = rate.Limit(opts.QueryRate)
	}
	burst := opts.QueryBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		venue:   venue,
		source:  source,
		limiter: rate.NewLimiter(limit, burst),
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// Discover returns the pools pairing token with base, richest first.
// An empty slice with a nil error means no pool exists.
func (c *Client) Discover(ctx context.Context, token string, base model.BaseAsset) ([]model.Pool, error) {
	address, err := ParseToken(token)
	if err != nil {
		return nil, err
	}
	if c.source == nil {
		return nil, fmt.Errorf("%w: no index source", ErrQueryFailed)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	start := time.Now()
	pools, err := c.source.Pools(ctx, c.venue, address, base.Address)
	c.metrics.ObserveQuery(c.venue, err, time.Since(start))
	if err != nil {
		c.logger.Warn("pool query failed", zap.String("venue", c.venue), zap.String("token", address.Hex()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	pools = c.orient(pools, address)
	sortByLockedValue(pools)

	c.logger.Debug("pools discovered",
		zap.String("venue", c.venue),
		zap.String("token", address.Hex()),
		zap.String("base", base.Symbol),
		zap.Int("pools", len(pools)),
	)
	return pools, nil
}

// orient puts the candidate token in Token0 of every pool and drops rows that
// do not pair the candidate with another token.
func (c *Client) orient(pools []model.Pool, token common.Address) []model.Pool {
	out := make([]model.Pool, 0, len(pools))
	for _, pool := range pools {
		if strings.EqualFold(pool.Token1.ID, token.Hex()) {
			pool.Token0, pool.Token1 = pool.Token1, pool.Token0
		}
		if !strings.EqualFold(pool.Token0.ID, token.Hex()) || strings.EqualFold(pool.Token1.ID, token.Hex()) {
			c.logger.Debug("pool dropped", zap.String("venue", c.venue), zap.String("pool", pool.ID),
				zap.String("token0", pool.Token0.ID), zap.String("token1", pool.Token1.ID))
			continue
		}
		out = append(out, pool)
	}
	return out
}

// sortByLockedValue orders pools by descending locked value, keeping index order on ties.
func sortByLockedValue(pools []model.Pool) {
	sort.SliceStable(pools, func(i, j int) bool {
		return pools[i].LockedValue.GreaterThan(pools[j].LockedValue)
	})
}
