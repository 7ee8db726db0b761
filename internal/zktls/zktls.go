// Package zktls stands in for the PeerAuth browser extension that produces
// zkTLS payment proofs. Simulator is deterministic and never talks to a
// real extension.
package zktls

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotInstalled    = errors.New("zktls extension not installed")
	ErrNotConnected    = errors.New("not connected to zktls extension")
	ErrInvalidSession  = errors.New("invalid session id")
	ErrMetadataPending = errors.New("session metadata not yet available")
	ErrProofNotFound   = errors.New("proof not found")
)

type Connection struct {
	IsConnected bool   `json:"isConnected"`
	ExtensionID string `json:"extensionId,omitempty"`
	Version     string `json:"version,omitempty"`
}

type Status struct {
	IsInstalled bool `json:"isInstalled"`
	IsConnected bool `json:"isConnected"`
}

type AuthenticateRequest struct {
	ActionType string          `json:"actionType"`
	Platform   string          `json:"platform"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

type AuthenticateResponse struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"sessionId"`
	Metadata  SessionSnapshot `json:"metadata"`
}

type SessionSnapshot struct {
	Platform  string `json:"platform"`
	Timestamp int64  `json:"timestamp"`
}

type AccountInfo struct {
	Username  string `json:"username"`
	AccountID string `json:"accountId"`
}

type AvailableProof struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
}

type SessionMetadata struct {
	Platform        string           `json:"platform"`
	AccountInfo     AccountInfo      `json:"accountInfo"`
	AvailableProofs []AvailableProof `json:"availableProofs"`
}

// MetadataMessage is emitted once per session after authentication.
type MetadataMessage struct {
	SessionID string          `json:"sessionId"`
	Metadata  SessionMetadata `json:"metadata"`
}

type ProofRequest struct {
	IntentHashDecimal string `json:"intentHashDecimal"`
	OriginalIndex     int    `json:"originalIndex"`
	Platform          string `json:"platform"`
	SessionID         string `json:"sessionId"`
}

type ProofResponse struct {
	Success    bool       `json:"success"`
	ProofID    string     `json:"proofId"`
	Proof      *ProofData `json:"proof"`
	ProofBytes string     `json:"proofBytes"`
}

// Groth16 is the shape of a snarkjs proof.
type Groth16 struct {
	PiA []string   `json:"pi_a"`
	PiB [][]string `json:"pi_b"`
	PiC []string   `json:"pi_c"`
}

type ProofData struct {
	Proof         Groth16  `json:"proof"`
	PublicSignals []string `json:"publicSignals"`
	Provider      string   `json:"provider"`
	Timestamp     int64    `json:"timestamp"`
	Nullifier     string   `json:"nullifier"`
	PayeeHash     string   `json:"payeeHash"`
}

// Extension is the browser extension surface the ramp depends on.
type Extension interface {
	Connect(ctx context.Context) (Connection, error)
	Authenticate(ctx context.Context, req AuthenticateRequest) (AuthenticateResponse, error)
	Metadata(ctx context.Context, sessionID string) (MetadataMessage, error)
	// OnMetadata registers fn for metadata emitted after the call and
	// returns a func that removes it.
	OnMetadata(fn func(MetadataMessage)) func()
	GenerateProof(ctx context.Context, req ProofRequest) (ProofResponse, error)
	FetchProof(ctx context.Context, proofID string) (ProofData, error)
	Status() Status
}

// WaitMetadata returns the metadata for sessionID, blocking until it is
// emitted or ctx is done. A timed out wait reports ErrMetadataPending.
func WaitMetadata(ctx context.Context, ext Extension, sessionID string) (MetadataMessage, error) {
	ch := make(chan MetadataMessage, 1)
	stop := ext.OnMetadata(func(m MetadataMessage) {
		if m.SessionID != sessionID {
			return
		}
		select {
		case ch <- m:
		default:
		}
	})
	defer stop()

	msg, err := ext.Metadata(ctx, sessionID)
	if !errors.Is(err, ErrMetadataPending) {
		return msg, err
	}
	select {
	case msg := <-ch:
		return msg, nil
	case <-ctx.Done():
		return MetadataMessage{}, ErrMetadataPending
	}
}
