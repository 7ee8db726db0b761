package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"NovaRamp/internal/config"
	"NovaRamp/internal/logging"
	"NovaRamp/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, result string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Method {
		case "eth_blockNumber":
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"` + result + `"}`))
		default:
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRPCClient(t *testing.T) {
	srv := rpcServer(t, "0x1b4")
	c := NewRPCClient(srv.URL)

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(436), n)

	var out string
	err = c.call(context.Background(), "eth_unknown", &out)
	assert.ErrorContains(t, err, "method not found")
}

func TestRPCClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewRPCClient(srv.URL).BlockNumber(context.Background())
	assert.ErrorContains(t, err, "rpc http status 429")
}

func TestMultiRPCFailover(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	good := rpcServer(t, "0x10")

	m, err := NewMultiRPCClient([]string{bad.URL, " ", bad.URL + "/", good.URL}, 1)
	require.NoError(t, err)
	assert.Len(t, m.endpoints, 2)

	n, err := m.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)
	assert.Equal(t, 1, m.preferred)
	assert.Equal(t, 1, m.endpoints[0].strikes)

	_, err = NewMultiRPCClient(nil, 0)
	assert.Error(t, err)
}

type fakeClient struct {
	block uint64
	delay time.Duration
	err   error
}

func (f fakeClient) BlockNumber(context.Context) (uint64, error) {
	time.Sleep(f.delay)
	return f.block, f.err
}

func TestCheckerStatuses(t *testing.T) {
	c := &Checker{
		Endpoints: []Endpoint{
			{ChainID: 43113, Name: "Avalanche Fuji", Client: fakeClient{err: errors.New("dial tcp: refused")}},
			{ChainID: 8453, Name: "Base", Client: fakeClient{block: 100}},
			{ChainID: 1, Name: "Slow", Client: fakeClient{block: 5, delay: 30 * time.Millisecond}},
		},
		SlowThreshold: 20 * time.Millisecond,
		Metrics:       metrics.New(prometheus.NewRegistry()),
		Logger:        logging.Discard(),
	}

	out := c.Check(context.Background())
	require.Len(t, out, 3)
	assert.Equal(t, HealthWarn, out[0].Status)
	assert.Equal(t, HealthOK, out[1].Status)
	assert.Equal(t, uint64(100), out[1].BlockNumber)
	assert.Equal(t, HealthFail, out[2].Status)
	assert.Contains(t, out[2].Error, "refused")
}

func TestChainTable(t *testing.T) {
	assert.True(t, Supported(43113))
	assert.False(t, Supported(1))
	assert.Equal(t, "Base", Lookup(1).Name)
	assert.Equal(t, "0x4567890123456789012345678901234567890123", VerifierAddress(8453, "cashapp"))
	assert.Equal(t, Lookup(8453).Contracts.Verifiers["venmo"], VerifierAddress(8453, "paypal"))

	all := All()
	require.Len(t, all, 2)
	assert.Equal(t, int64(8453), all[0].ChainID)
}

func TestNewEndpoints(t *testing.T) {
	eps, err := NewEndpoints([]config.ChainNetwork{{ChainID: 43113, RPCEndpoints: []string{"https://api.avax-test.network/ext/bc/C/rpc"}}})
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "Avalanche Fuji", eps[0].Name)

	_, err = NewEndpoints([]config.ChainNetwork{{ChainID: 8453}})
	assert.Error(t, err)
}
