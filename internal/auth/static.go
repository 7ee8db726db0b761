package auth

import (
	"context"
	"strings"
)

// StaticVerifier accepts a fixed token table for local development and
// tests. Values are "<subject>" or "<subject>|<wallet address>".
type StaticVerifier map[string]string

func (v StaticVerifier) Verify(_ context.Context, token string) (Identity, error) {
	entry, ok := v[token]
	if !ok || token == "" {
		return Identity{}, ErrUnauthorized
	}
	sub, wallet, _ := strings.Cut(entry, "|")
	return Identity{Subject: sub, WalletAddress: wallet}, nil
}
