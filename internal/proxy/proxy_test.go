package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"NovaRamp/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardsWithAPIKey(t *testing.T) {
	var mu sync.Mutex
	var got struct {
		method, path, query, auth, contentType, body string
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.auth = r.Header.Get("Authorization")
		got.contentType = r.Header.Get("Content-Type")
		got.body = string(b)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	p := New(upstream.URL+"/", "secret-key", "/proxy", time.Second, logging.Discard())
	req := httptest.NewRequest(http.MethodPost, "/proxy/v1/quote/best?chain=8453", strings.NewReader(`{"amount":"10"}`))
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/v1/quote/best", got.path)
	assert.Equal(t, "chain=8453", got.query)
	assert.Equal(t, "Bearer secret-key", got.auth)
	assert.Equal(t, "application/json", got.contentType)
	assert.Equal(t, `{"amount":"10"}`, got.body)
}

func TestGetDropsBodyAndKeyOptional(t *testing.T) {
	var mu sync.Mutex
	var auth, body string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		auth = r.Header.Get("Authorization")
		body = string(b)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}))
	defer upstream.Close()

	p := New(upstream.URL, "", "/proxy", time.Second, logging.Discard())
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proxy/missing", strings.NewReader("ignored")))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, auth)
	assert.Empty(t, body)
}

func TestUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	p := New(url, "k", "/proxy", time.Second, logging.Discard())
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/proxy/x", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"proxy request failed"}`, rec.Body.String())
}
