package discovery

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/machinebox/graphql"
	"github.com/shopspring/decimal"

	"honeypotScope/internal/model"
	"honeypotScope/internal/venue"
)

// Both orientations are fetched in one request; subgraphs key pools by sorted token addresses.
const pairsQuery = `
query pairs($token: String!, $base: String!) {
  direct: pairs(where: {token0: $token, token1: $base}) {
    id
    token0 { id symbol }
    token1 { id symbol }
    reserveETH
  }
  inverse: pairs(where: {token0: $base, token1: $token}) {
    id
    token0 { id symbol }
    token1 { id symbol }
    reserveETH
  }
}`

const poolsQuery = `
query pools($token: String!, $base: String!) {
  direct: pools(where: {token0: $token, token1: $base}) {
    id
    token0 { id symbol }
    token1 { id symbol }
    totalValueLockedETH
  }
  inverse: pools(where: {token0: $base, token1: $token}) {
    id
    token0 { id symbol }
    token1 { id symbol }
    totalValueLockedETH
  }
}`

type subgraphPool struct {
	ID                  string          `json:"id"`
	Token0              model.PoolToken `json:"token0"`
	Token1              model.PoolToken `json:"token1"`
	ReserveETH          decimal.Decimal `json:"reserveETH"`
	TotalValueLockedETH decimal.Decimal `json:"totalValueLockedETH"`
}

type subgraphResponse struct {
	Direct  []subgraphPool `json:"direct"`
	Inverse []subgraphPool `json:"inverse"`
}

// SubgraphSource reads pools from venue subgraphs over GraphQL.
type SubgraphSource struct {
	endpoints  map[string]string
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*graphql.Client
}

// NewSubgraphSource builds a source. endpoints overrides the default subgraph URL per venue name.
func NewSubgraphSource(endpoints map[string]string, httpClient *http.Client) *SubgraphSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	copied := make(map[string]string, len(endpoints))
	for name, url := range endpoints {
		copied[strings.ToLower(name)] = url
	}
	return &SubgraphSource{
		endpoints:  copied,
		httpClient: httpClient,
		clients:    make(map[string]*graphql.Client),
	}
}

func (s *SubgraphSource) client(v venue.Venue) (*graphql.Client, error) {
	endpoint := v.Subgraph
	if override, ok := s.endpoints[v.Name]; ok && override != "" {
		endpoint = override
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no subgraph endpoint for %s", v.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[endpoint]; ok {
		return c, nil
	}
	c := graphql.NewClient(endpoint, graphql.WithHTTPClient(s.httpClient))
	s.clients[endpoint] = c
	return c, nil
}

// Pools implements Source.
func (s *SubgraphSource) Pools(ctx context.Context, venueName string, token common.Address, base common.Address) ([]model.Pool, error) {
	v, err := venue.Lookup(venueName)
	if err != nil {
		return nil, err
	}
	c, err := s.client(v)
	if err != nil {
		return nil, err
	}

	query := pairsQuery
	if v.Kind == venue.KindSingleHop {
		query = poolsQuery
	}
	req := graphql.NewRequest(query)
	req.Var("token", strings.ToLower(token.Hex()))
	req.Var("base", strings.ToLower(base.Hex()))

	var resp subgraphResponse
	if err := c.Run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("query %s subgraph: %w", v.Name, err)
	}

	pools := make([]model.Pool, 0, len(resp.Direct)+len(resp.Inverse))
	for _, group := range [][]subgraphPool{resp.Direct, resp.Inverse} {
		for _, p := range group {
			locked := p.ReserveETH
			if v.Kind == venue.KindSingleHop {
				locked = p.TotalValueLockedETH
			}
			pools = append(pools, model.Pool{
				ID:          p.ID,
				Token0:      p.Token0,
				Token1:      p.Token1,
				LockedValue: locked,
			})
		}
	}
	return pools, nil
}
