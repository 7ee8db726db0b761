package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPVerifier validates bearer tokens against the identity provider's
// verification endpoint.
type HTTPVerifier struct {
	URL       string
	AppID     string
	AppSecret string
	Client    *http.Client
	Logger    *slog.Logger
}

type verifyResponse struct {
	Subject       string `json:"sub"`
	UserID        string `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
}

func NewHTTPVerifier(url, appID, appSecret string, timeout time.Duration, logger *slog.Logger) *HTTPVerifier {
	return &HTTPVerifier{
		URL:       url,
		AppID:     appID,
		AppSecret: appSecret,
		Client:    &http.Client{Timeout: timeout},
		Logger:    logger,
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthorized
	}
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return Identity{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL, bytes.NewReader(body))
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.AppID != "" {
		req.Header.Set("X-App-Id", v.AppID)
		req.SetBasicAuth(v.AppID, v.AppSecret)
	}

	resp, err := v.Client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Identity{}, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		v.Logger.Warn("token verification failed", "status", resp.StatusCode, "body", string(data))
		return Identity{}, fmt.Errorf("verify token: status %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return Identity{}, fmt.Errorf("decode verify response: %w", err)
	}
	sub := out.Subject
	if sub == "" {
		sub = out.UserID
	}
	if sub == "" {
		return Identity{}, ErrUnauthorized
	}
	return Identity{Subject: sub, WalletAddress: out.WalletAddress}, nil
}
