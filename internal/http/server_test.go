package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"NovaRamp/internal/auth"
	"NovaRamp/internal/chain"
	"NovaRamp/internal/events"
	"NovaRamp/internal/ids"
	"NovaRamp/internal/logging"
	"NovaRamp/internal/metrics"
	"NovaRamp/internal/pricing"
	"NovaRamp/internal/proxy"
	"NovaRamp/internal/services"
	"NovaRamp/internal/store/memstore"
	"NovaRamp/internal/zktls"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

const (
	aliceWallet = "0x52908400098527886E0F7030069857D2E4169EE7"
	bobWallet   = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
)

type fixedBlock uint64

func (b fixedBlock) BlockNumber(context.Context) (uint64, error) { return uint64(b), nil }

type APISuite struct {
	suite.Suite

	srv          *httptest.Server
	upstream     *httptest.Server
	hub          *events.Hub
	upstreamAuth *atomic.Value
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	logger := logging.Discard()
	st := memstore.New()
	met := metrics.New(prometheus.NewRegistry())
	s.hub = events.NewHub(logger, []string{"*"})

	s.upstreamAuth = &atomic.Value{}
	s.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.upstreamAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))

	verifier := auth.StaticVerifier{
		"alice-token":    "did:privy:alice|" + aliceWallet,
		"alice-id-token": "did:privy:alice",
		"bob-token":      "did:privy:bob|" + bobWallet,
		"nowallet-token": "did:privy:carol",
	}
	users := services.UserService{Store: st, Logger: logger}
	makers := services.MakerService{Store: st, Metrics: met, Logger: logger, DefaultCurrency: "USD", NewID: ids.Sequence()}
	_, err := makers.SeedDemo(context.Background(), users)
	s.Require().NoError(err)

	registry, err := zktls.NewRegistry(16, func(owner string) *zktls.Simulator {
		return zktls.NewSimulator(owner, zktls.Options{Installed: true, Seed: "test"}, zktls.NewMemoryProofStore())
	})
	s.Require().NoError(err)

	h := &Handler{
		Users:  users,
		Quotes: services.QuoteService{Store: st, Pricing: pricing.NewService(pricing.DefaultProtocolFeeRate), Metrics: met, DefaultCurrency: "USD"},
		Orders: services.OrderService{
			Store: st, Events: s.hub, Metrics: met, Logger: logger,
			DefaultChainID: 8453, DefaultCurrency: "USD",
		},
		Makers:     makers,
		Verifier:   verifier,
		Hub:        s.hub,
		Extensions: registry,
		Chains: &chain.Checker{
			Endpoints:     []chain.Endpoint{{ChainID: 8453, Name: "Base", Client: fixedBlock(123)}},
			SlowThreshold: time.Minute,
			Logger:        logger,
		},
		Logger: logger,
	}
	srv := NewServer(h, Options{
		Auth:           auth.Middleware{Verifier: verifier, Logger: logger},
		Metrics:        met,
		Proxy:          proxy.New(s.upstream.URL, "api-key", "/proxy", time.Second, logger),
		AllowedOrigins: []string{"*"},
		Logger:         logger,
	})
	s.srv = httptest.NewServer(srv.Router)
}

func (s *APISuite) TearDownTest() {
	s.srv.Close()
	s.upstream.Close()
}

func (s *APISuite) do(method, path, token string, body any) (int, map[string]any) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		s.Require().NoError(json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *APISuite) createOrder(token string) string {
	code, body := s.do(http.MethodPost, "/orders", token, map[string]any{
		"depositId":      "deposit_1",
		"orderType":      "onramp",
		"provider":       "venmo",
		"fiatAmount":     100,
		"tokenAmount":    99.8,
		"conversionRate": 0.998,
	})
	s.Require().Equal(http.StatusOK, code, body)
	order := body["order"].(map[string]any)
	return order["orderId"].(string)
}

func (s *APISuite) TestHealthIsPublic() {
	code, body := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, code)
	s.Equal("ok", body["status"])
}

func (s *APISuite) TestAuthRequired() {
	code, body := s.do(http.MethodGet, "/quotes?fiatAmount=100", "", nil)
	s.Equal(http.StatusUnauthorized, code)
	s.Equal("missing authorization", body["error"])

	code, _ = s.do(http.MethodGet, "/orders", "wrong", nil)
	s.Equal(http.StatusUnauthorized, code)
}

func (s *APISuite) TestMethodNotAllowed() {
	code, body := s.do(http.MethodDelete, "/orders", "alice-token", nil)
	s.Equal(http.StatusMethodNotAllowed, code)
	s.Equal("Method not allowed", body["error"])

	// method resolution runs before the auth group
	code, _ = s.do(http.MethodDelete, "/orders", "", nil)
	s.Equal(http.StatusMethodNotAllowed, code)
}

func (s *APISuite) TestCORSPreflight() {
	req, err := http.NewRequest(http.MethodOptions, s.srv.URL+"/orders", nil)
	s.Require().NoError(err)
	req.Header.Set("Origin", "https://app.example")
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))
	s.Equal("authorization, x-client-info, apikey, content-type", resp.Header.Get("Access-Control-Allow-Headers"))
}

func (s *APISuite) TestQuotes() {
	code, body := s.do(http.MethodGet, "/quotes?fiatAmount=100&currency=USD", "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	quotes := body["quotes"].([]any)
	s.Require().Len(quotes, 2)
	first := quotes[0].(map[string]any)
	second := quotes[1].(map[string]any)
	s.Equal("venmo", first["provider"])
	s.Equal("venmoVerifier", first["verifier"])
	s.Greater(first["netAmount"].(float64), second["netAmount"].(float64))
	s.Less(first["netAmount"].(float64), 100.0)

	for _, q := range []string{"fiatAmount=0", "fiatAmount=-3", "fiatAmount=abc", ""} {
		code, body = s.do(http.MethodGet, "/quotes?"+q, "alice-token", nil)
		s.Equal(http.StatusBadRequest, code, q)
		s.Equal("Invalid fiat amount", body["error"])
		s.NotContains(body, "quotes")
	}

	code, body = s.do(http.MethodGet, "/quotes?fiatAmount=5000", "alice-token", nil)
	s.Equal(http.StatusOK, code)
	s.Empty(body["quotes"])
}

func (s *APISuite) TestOrderLifecycle() {
	orderID := s.createOrder("alice-token")
	s.True(strings.HasPrefix(orderID, "inova_onramp_"))

	code, body := s.do(http.MethodGet, "/orders?orderId="+orderID, "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	order := body["order"].(map[string]any)
	s.Equal("created", order["status"])
	s.Equal("USD", order["fiat_currency"])
	s.Equal(float64(8453), order["chain_id"])
	s.Equal(aliceWallet, order["metadata"].(map[string]any)["recipientAddress"])

	intent := "0x" + strings.Repeat("0f", 32)
	code, body = s.do(http.MethodPut, "/orders", "alice-token", map[string]any{
		"orderId": orderID, "status": "paying", "intentHash": intent, "txHash": "0xsig",
	})
	s.Require().Equal(http.StatusOK, code, body)
	updated := body["order"].(map[string]any)
	s.Equal("paying", updated["status"])
	s.Equal(intent, updated["intentHash"])
	s.Equal("0xsig", updated["txHash"])

	code, body = s.do(http.MethodPut, "/orders", "alice-token", map[string]any{"orderId": orderID, "status": "created"})
	s.Equal(http.StatusConflict, code)
	s.Equal("invalid status transition", body["error"])

	code, _ = s.do(http.MethodPut, "/orders", "alice-token", map[string]any{"orderId": orderID, "status": "bogus"})
	s.Equal(http.StatusBadRequest, code)

	code, body = s.do(http.MethodPut, "/orders", "alice-token", map[string]any{"orderId": orderID, "status": "fulfilled", "txHash": "0xdone"})
	s.Require().Equal(http.StatusOK, code)
	s.Equal("0xdone", body["order"].(map[string]any)["txHash"])

	code, _ = s.do(http.MethodPut, "/orders", "alice-token", map[string]any{"orderId": orderID, "status": "failed"})
	s.Equal(http.StatusConflict, code)

	code, body = s.do(http.MethodGet, "/orders?orderId="+orderID, "bob-token", nil)
	s.Equal(http.StatusNotFound, code)
	s.Equal("Order not found", body["error"])

	s.createOrder("alice-token")
	code, body = s.do(http.MethodGet, "/orders", "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Len(body["orders"], 2)

	code, body = s.do(http.MethodGet, "/orders", "bob-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Empty(body["orders"])
}

func (s *APISuite) TestCreateOrderErrors() {
	code, _ := s.do(http.MethodPost, "/orders", "alice-token", map[string]any{
		"depositId": "deposit_nope", "provider": "venmo", "fiatAmount": 100, "tokenAmount": 99, "conversionRate": 0.99,
	})
	s.Equal(http.StatusNotFound, code)

	code, body := s.do(http.MethodPost, "/orders", "alice-token", map[string]any{"depositId": "deposit_1", "provider": "venmo"})
	s.Equal(http.StatusBadRequest, code)
	s.NotEmpty(body["errors"])

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/orders", strings.NewReader("{not json"))
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer alice-token")
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APISuite) TestMakers() {
	code, body := s.do(http.MethodPost, "/makers/validate", "bob-token", map[string]any{"rawPayeeId": "demo-venmo-maker", "provider": "venmo"})
	s.Require().Equal(http.StatusOK, code)
	s.Equal(false, body["isValid"])
	s.Contains(body["errors"], "This payee ID is already registered")

	code, body = s.do(http.MethodPost, "/makers/validate", "bob-token", map[string]any{"rawPayeeId": "demo-venmo-maker", "provider": "revolut"})
	s.Require().Equal(http.StatusOK, code)
	s.Equal(true, body["isValid"])

	code, body = s.do(http.MethodPost, "/makers/create", "bob-token", map[string]any{
		"rawPayeeId": "$BobCash", "provider": "Cash App", "minAmount": 10, "maxAmount": 300, "conversionRate": 0.996,
	})
	s.Require().Equal(http.StatusOK, code, body)
	s.Equal(true, body["success"])
	s.Equal("bobcash", body["normalizedId"])
	depositID := body["depositId"].(string)

	code, _ = s.do(http.MethodPost, "/makers/create", "alice-token", map[string]any{
		"rawPayeeId": "$bobcash", "provider": "cashapp", "minAmount": 10, "maxAmount": 300, "conversionRate": 0.996,
	})
	s.Equal(http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, "/makers/create", "bob-token", map[string]any{
		"rawPayeeId": "x", "provider": "paypal", "minAmount": 1, "maxAmount": 2, "conversionRate": 1,
	})
	s.Equal(http.StatusBadRequest, code)

	code, body = s.do(http.MethodGet, "/makers", "bob-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Len(body["deposits"], 1)

	code, _ = s.do(http.MethodPost, "/makers/"+depositID+"/deactivate", "alice-token", nil)
	s.Equal(http.StatusNotFound, code)
	code, body = s.do(http.MethodPost, "/makers/"+depositID+"/deactivate", "bob-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(depositID, body["depositId"])

	code, body = s.do(http.MethodGet, "/makers", "bob-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Empty(body["deposits"])
}

func (s *APISuite) TestSession() {
	code, body := s.do(http.MethodPost, "/session", "alice-token", map[string]any{"idToken": "alice-id-token"})
	s.Require().Equal(http.StatusOK, code, body)
	s.Equal(true, body["success"])
	s.Equal("did:privy:alice", body["sessionId"])
	s.Equal(aliceWallet, body["user"].(map[string]any)["primary_address"])

	code, _ = s.do(http.MethodPost, "/session", "alice-token", map[string]any{"idToken": "bob-token"})
	s.Equal(http.StatusUnauthorized, code)

	code, body = s.do(http.MethodPost, "/session", "nowallet-token", nil)
	s.Equal(http.StatusBadRequest, code)
	s.Equal("No wallet address found", body["error"])
}

func (s *APISuite) TestCatalog() {
	code, body := s.do(http.MethodGet, "/providers", "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Len(body["providers"], 5)

	code, body = s.do(http.MethodGet, "/chains", "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Len(body["chains"], 2)

	code, body = s.do(http.MethodGet, "/chains/health", "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	health := body["chains"].([]any)
	s.Require().Len(health, 1)
	s.Equal("ok", health[0].(map[string]any)["status"])
	s.Equal(float64(123), health[0].(map[string]any)["blockNumber"])
}

func (s *APISuite) TestZKTLSFlow() {
	code, _ := s.do(http.MethodPost, "/zktls/authenticate", "alice-token", map[string]any{"platform": "venmo"})
	s.Equal(http.StatusPreconditionFailed, code)

	code, body := s.do(http.MethodPost, "/zktls/connect", "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(true, body["isConnected"])

	// connection state is per user
	code, body = s.do(http.MethodGet, "/zktls/status", "bob-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(false, body["isConnected"])

	code, body = s.do(http.MethodPost, "/zktls/authenticate", "alice-token", map[string]any{"actionType": "transfer_venmo", "platform": "venmo"})
	s.Require().Equal(http.StatusOK, code)
	sessionID := body["sessionId"].(string)

	code, body = s.do(http.MethodGet, "/zktls/sessions/"+sessionID+"/metadata?waitMs=2000", "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(sessionID, body["sessionId"])

	code, _ = s.do(http.MethodGet, "/zktls/sessions/unknown/metadata?waitMs=2000", "alice-token", nil)
	s.Equal(http.StatusNotFound, code)

	code, body = s.do(http.MethodPost, "/zktls/proofs", "alice-token", map[string]any{
		"intentHashDecimal": "12345", "originalIndex": 0, "platform": "venmo", "sessionId": sessionID,
	})
	s.Require().Equal(http.StatusOK, code)
	proofID := body["proofId"].(string)
	s.True(strings.HasPrefix(body["proofBytes"].(string), "0x"))

	code, body = s.do(http.MethodGet, "/zktls/proofs/"+proofID, "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal("12345", body["publicSignals"].([]any)[0])

	code, _ = s.do(http.MethodGet, "/zktls/proofs/"+proofID, "bob-token", nil)
	s.Equal(http.StatusNotFound, code)
}

func (s *APISuite) TestProxy() {
	code, body := s.do(http.MethodGet, "/proxy/v1/quote?x=1", "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal("/v1/quote", body["path"])
	s.Equal("Bearer api-key", s.upstreamAuth.Load())

	code, _ = s.do(http.MethodGet, "/proxy/v1/quote", "", nil)
	s.Equal(http.StatusUnauthorized, code)
}

func (s *APISuite) TestOrderStream() {
	code, body := s.do(http.MethodPost, "/session", "alice-token", nil)
	s.Require().Equal(http.StatusOK, code)
	userID := body["user"].(map[string]any)["id"].(string)

	wsURL := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/orders/stream?token=alice-token"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	s.Require().NoError(err)
	defer conn.Close()
	s.Require().Eventually(func() bool { return s.hub.Subscribers(userID) == 1 }, 2*time.Second, 10*time.Millisecond)

	orderID := s.createOrder("alice-token")

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var ev events.OrderEvent
	s.Require().NoError(conn.ReadJSON(&ev))
	s.Equal(events.OrderCreated, ev.Type)
	s.Equal(orderID, ev.OrderID)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.srv.URL, "http")+"/orders/stream", nil)
	s.Error(err)
}

func (s *APISuite) TestMetricsEndpoint() {
	s.do(http.MethodGet, "/health", "", nil)
	resp, err := http.Get(s.srv.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(raw), `novaramp_http_requests_total{method="GET",route="/health",status="200"}`)
}
