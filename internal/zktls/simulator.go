package zktls

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strings"
	"sync"
	"time"

	"NovaRamp/internal/ids"

	"golang.org/x/crypto/sha3"
)

const (
	extensionID      = "mock-extension-id"
	extensionVersion = "1.0.0"

	// MaxSessions is how many authenticated sessions a simulator keeps.
	// The oldest is dropped first.
	MaxSessions = 32
)

type Options struct {
	Installed         bool
	Seed              string
	ConnectDelay      time.Duration
	AuthenticateDelay time.Duration
	MetadataDelay     time.Duration
	ProofDelay        time.Duration
}

type session struct {
	req      AuthenticateRequest
	metadata *MetadataMessage
}

// Simulator is a deterministic Extension. Hex values are keccak-256 of
// (seed, id, field), so the same ids always produce the same proof.
type Simulator struct {
	owner string
	opts  Options
	store ProofStore
	newID ids.Generator
	now   func() time.Time

	mu          sync.Mutex
	connected   bool
	sessions    map[string]*session
	sessionIDs  []string
	subscribers map[int]func(MetadataMessage)
	nextSub     int
}

var _ Extension = (*Simulator)(nil)

// NewSimulator returns a simulator acting for owner. Proofs are persisted to store.
func NewSimulator(owner string, opts Options, store ProofStore) *Simulator {
	return &Simulator{
		owner:       owner,
		opts:        opts,
		store:       store,
		newID:       ids.New,
		now:         time.Now,
		sessions:    make(map[string]*session),
		subscribers: make(map[int]func(MetadataMessage)),
	}
}

// WithIDs replaces the session and proof id generator.
func (s *Simulator) WithIDs(gen ids.Generator) *Simulator {
	s.newID = gen
	return s
}

func (s *Simulator) WithClock(now func() time.Time) *Simulator {
	s.now = now
	return s
}

func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{IsInstalled: s.opts.Installed, IsConnected: s.connected}
}

func (s *Simulator) Connect(ctx context.Context) (Connection, error) {
	if err := sleep(ctx, s.opts.ConnectDelay); err != nil {
		return Connection{}, err
	}
	if !s.opts.Installed {
		return Connection{}, ErrNotInstalled
	}
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return Connection{IsConnected: true, ExtensionID: extensionID, Version: extensionVersion}, nil
}

func (s *Simulator) Authenticate(ctx context.Context, req AuthenticateRequest) (AuthenticateResponse, error) {
	if !s.isConnected() {
		return AuthenticateResponse{}, ErrNotConnected
	}
	if err := sleep(ctx, s.opts.AuthenticateDelay); err != nil {
		return AuthenticateResponse{}, err
	}

	now := s.now()
	s.mu.Lock()
	id := s.newID("session")
	s.sessions[id] = &session{req: req}
	s.sessionIDs = append(s.sessionIDs, id)
	if len(s.sessionIDs) > MaxSessions {
		delete(s.sessions, s.sessionIDs[0])
		s.sessionIDs = s.sessionIDs[1:]
	}
	s.mu.Unlock()

	time.AfterFunc(s.opts.MetadataDelay, func() { s.emitMetadata(id) })

	return AuthenticateResponse{
		Success:   true,
		SessionID: id,
		Metadata:  SessionSnapshot{Platform: req.Platform, Timestamp: now.UnixMilli()},
	}, nil
}

func (s *Simulator) emitMetadata(sessionID string) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := s.now()
	platform := sess.req.Platform
	msg := MetadataMessage{
		SessionID: sessionID,
		Metadata: SessionMetadata{
			Platform: platform,
			AccountInfo: AccountInfo{
				Username:  "mock_" + platform + "_user",
				AccountID: "mock_account_" + s.field(sessionID, "account")[2:10],
			},
			AvailableProofs: []AvailableProof{
				{Index: 0, Description: "Recent payment verification", Timestamp: now.Add(-time.Hour).UnixMilli()},
				{Index: 1, Description: "Account balance verification", Timestamp: now.Add(-2 * time.Hour).UnixMilli()},
			},
		},
	}
	sess.metadata = &msg
	subs := make([]func(MetadataMessage), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(msg)
	}
}

// OnMetadata registers fn for every metadata message emitted after the call.
// The returned func removes the subscription.
func (s *Simulator) OnMetadata(fn func(MetadataMessage)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Simulator) Metadata(_ context.Context, sessionID string) (MetadataMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return MetadataMessage{}, ErrInvalidSession
	}
	if sess.metadata == nil {
		return MetadataMessage{}, ErrMetadataPending
	}
	return *sess.metadata, nil
}

func (s *Simulator) GenerateProof(ctx context.Context, req ProofRequest) (ProofResponse, error) {
	if !s.isConnected() {
		return ProofResponse{}, ErrNotConnected
	}
	s.mu.Lock()
	_, ok := s.sessions[req.SessionID]
	s.mu.Unlock()
	if !ok {
		return ProofResponse{}, ErrInvalidSession
	}
	if err := sleep(ctx, s.opts.ProofDelay); err != nil {
		return ProofResponse{}, err
	}

	s.mu.Lock()
	id := s.newID("proof")
	s.mu.Unlock()

	proof := s.buildProof(id, req)
	if err := s.store.Put(ctx, s.owner, id, proof); err != nil {
		return ProofResponse{}, err
	}
	encoded, err := EncodeProof(proof)
	if err != nil {
		return ProofResponse{}, err
	}
	return ProofResponse{Success: true, ProofID: id, Proof: &proof, ProofBytes: encoded}, nil
}

// EncodeProof renders a proof as the 0x-prefixed hex of its JSON, the form
// submitted as proofBytes when fulfilling an intent.
func EncodeProof(p ProofData) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(data), nil
}

func (s *Simulator) FetchProof(ctx context.Context, proofID string) (ProofData, error) {
	return s.store.Get(ctx, s.owner, proofID)
}

func (s *Simulator) buildProof(id string, req ProofRequest) ProofData {
	f := func(name string) string { return s.field(id, name) }
	amount := new(big.Int).SetBytes(keccak(s.opts.Seed, id, "amount")[:8])
	amount.Mod(amount, big.NewInt(1000000))

	nullifier := f("nullifier")
	payeeHash := f("payeeHash")
	return ProofData{
		Proof: Groth16{
			PiA: []string{f("pi_a.0"), f("pi_a.1")},
			PiB: [][]string{
				{f("pi_b.0.0"), f("pi_b.0.1")},
				{f("pi_b.1.0"), f("pi_b.1.1")},
			},
			PiC: []string{f("pi_c.0"), f("pi_c.1")},
		},
		PublicSignals: []string{req.IntentHashDecimal, nullifier, payeeHash, amount.String()},
		Provider:      req.Platform,
		Timestamp:     s.now().UnixMilli(),
		Nullifier:     nullifier,
		PayeeHash:     payeeHash,
	}
}

func (s *Simulator) field(id, name string) string {
	return "0x" + hex.EncodeToString(keccak(s.opts.Seed, id, name))
}

func (s *Simulator) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func keccak(parts ...string) []byte {
	h := sha3.NewLegacyKeccak256()
	_, _ = h.Write([]byte(strings.Join(parts, "|")))
	return h.Sum(nil)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
