package chain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"NovaRamp/internal/config"
	"NovaRamp/internal/metrics"
)

const (
	HealthOK   = "ok"
	HealthWarn = "warn"
	HealthFail = "fail"
)

type Health struct {
	ChainID     int64  `json:"chainId"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	BlockNumber uint64 `json:"blockNumber,omitempty"`
	Error       string `json:"error,omitempty"`
}

type BlockNumberer interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Endpoint is one configured chain and the client used to probe it.
type Endpoint struct {
	ChainID int64
	Name    string
	Client  BlockNumberer
}

// Checker probes every configured chain concurrently.
type Checker struct {
	Endpoints     []Endpoint
	SlowThreshold time.Duration
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

func (c *Checker) Check(ctx context.Context) []Health {
	out := make([]Health, len(c.Endpoints))
	var wg sync.WaitGroup
	for i, ep := range c.Endpoints {
		wg.Add(1)
		go func(i int, ep Endpoint) {
			defer wg.Done()
			out[i] = c.probe(ctx, ep)
		}(i, ep)
	}
	wg.Wait()
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

func (c *Checker) probe(ctx context.Context, ep Endpoint) Health {
	h := Health{ChainID: ep.ChainID, Name: ep.Name}
	start := time.Now()
	block, err := ep.Client.BlockNumber(ctx)
	elapsed := time.Since(start)
	h.LatencyMs = elapsed.Milliseconds()
	c.Metrics.ObserveChainRPC(ep.Name, elapsed)

	switch {
	case err != nil:
		h.Status = HealthFail
		h.Error = err.Error()
		c.Logger.Warn("chain rpc probe failed", "chain_id", ep.ChainID, "err", err)
	case elapsed >= c.SlowThreshold:
		h.Status = HealthWarn
		h.BlockNumber = block
	default:
		h.Status = HealthOK
		h.BlockNumber = block
	}
	return h
}

// NewEndpoints builds failover clients for the configured networks. Names
// default to the built-in chain table.
func NewEndpoints(nets []config.ChainNetwork) ([]Endpoint, error) {
	out := make([]Endpoint, 0, len(nets))
	for _, n := range nets {
		client, err := NewMultiRPCClient(n.RPCEndpoints, 0)
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", n.ChainID, err)
		}
		name := n.Name
		if name == "" {
			name = Lookup(n.ChainID).Name
		}
		out = append(out, Endpoint{ChainID: n.ChainID, Name: name, Client: client})
	}
	return out, nil
}
