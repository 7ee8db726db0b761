package chain

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var errNoEndpoints = errors.New("rpc endpoints is empty")

type rpcEndpoint struct {
	client  *RPCClient
	strikes int
}

// MultiRPCClient spreads calls for one chain over several JSON-RPC
// endpoints. Calls go to the preferred endpoint first and walk the rest in
// order; an endpoint that fails maxStrikes times in a row loses its
// preferred slot to the next one.
type MultiRPCClient struct {
	mu         sync.Mutex
	endpoints  []*rpcEndpoint
	preferred  int
	maxStrikes int
}

func NewMultiRPCClient(urls []string, maxStrikes int) (*MultiRPCClient, error) {
	urls = dedupeURLs(urls)
	if len(urls) == 0 {
		return nil, errNoEndpoints
	}
	if maxStrikes < 1 {
		maxStrikes = 3
	}
	m := &MultiRPCClient{maxStrikes: maxStrikes}
	for _, u := range urls {
		m.endpoints = append(m.endpoints, &rpcEndpoint{client: NewRPCClient(u)})
	}
	return m, nil
}

func (m *MultiRPCClient) BlockNumber(ctx context.Context) (uint64, error) {
	return call(ctx, m, func(c *RPCClient) (uint64, error) { return c.BlockNumber(ctx) })
}

func call[T any](ctx context.Context, m *MultiRPCClient, fn func(*RPCClient) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	m.mu.Lock()
	start := m.preferred
	m.mu.Unlock()

	for i := range m.endpoints {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		idx := (start + i) % len(m.endpoints)
		out, err := fn(m.endpoints[idx].client)
		m.record(idx, err)
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	return zero, lastErr
}

func (m *MultiRPCClient) record(idx int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ep := m.endpoints[idx]
	if err == nil {
		ep.strikes = 0
		if m.endpoints[m.preferred].strikes > 0 {
			m.preferred = idx
		}
		return
	}
	ep.strikes++
	if idx == m.preferred && ep.strikes >= m.maxStrikes {
		m.preferred = (idx + 1) % len(m.endpoints)
	}
}

func dedupeURLs(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
