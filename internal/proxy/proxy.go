// Package proxy forwards calls to the external quote/liquidity API with the
// service API key attached.
package proxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxBody = 10 << 20

type Proxy struct {
	BaseURL string
	APIKey  string
	Prefix  string
	Client  *http.Client
	Logger  *slog.Logger
}

func New(baseURL, apiKey, prefix string, timeout time.Duration, logger *slog.Logger) *Proxy {
	return &Proxy{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Prefix:  prefix,
		Client:  &http.Client{Timeout: timeout},
		Logger:  logger,
	}
}

// Target maps an incoming request onto the upstream URL.
func (p *Proxy) Target(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, p.Prefix)
	target := p.BaseURL + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := p.Target(r)

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		p.fail(w, r, target, err)
		return
	}
	// The caller's own credentials never leave this service.
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	p.Logger.Debug("proxying request", "method", r.Method, "target", target)
	resp, err := p.Client.Do(req)
	if err != nil {
		p.fail(w, r, target, err)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.Logger.Warn("proxy response copy failed", "target", target, "err", err)
	}
}

func (p *Proxy) fail(w http.ResponseWriter, r *http.Request, target string, err error) {
	p.Logger.Error("proxy request failed", "method", r.Method, "target", target, "err", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "proxy request failed"})
}
