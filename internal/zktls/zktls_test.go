package zktls

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"NovaRamp/internal/ids"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSim(installed bool) *Simulator {
	clock := time.UnixMilli(1700000000000)
	return NewSimulator("user-1", Options{Installed: installed, Seed: "test"}, NewMemoryProofStore()).
		WithIDs(ids.Sequence()).
		WithClock(func() time.Time { return clock })
}

func TestConnectRequiresInstall(t *testing.T) {
	sim := newSim(false)
	_, err := sim.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNotInstalled)
	assert.Equal(t, Status{}, sim.Status())

	sim = newSim(true)
	conn, err := sim.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, conn.IsConnected)
	assert.Equal(t, "mock-extension-id", conn.ExtensionID)
	assert.Equal(t, Status{IsInstalled: true, IsConnected: true}, sim.Status())
}

func TestAuthenticateRequiresConnection(t *testing.T) {
	sim := newSim(true)
	_, err := sim.Authenticate(context.Background(), AuthenticateRequest{Platform: "venmo"})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = sim.GenerateProof(context.Background(), ProofRequest{SessionID: "x"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSessionMetadataIsEmitted(t *testing.T) {
	ctx := context.Background()
	sim := newSim(true)
	_, err := sim.Connect(ctx)
	require.NoError(t, err)

	var mu sync.Mutex
	var got []MetadataMessage
	cancel := sim.OnMetadata(func(m MetadataMessage) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, m)
	})
	defer cancel()

	resp, err := sim.Authenticate(ctx, AuthenticateRequest{ActionType: "payment", Platform: "venmo"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "session_1", resp.SessionID)
	assert.Equal(t, "venmo", resp.Metadata.Platform)

	require.Eventually(t, func() bool {
		_, err := sim.Metadata(ctx, resp.SessionID)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	msg, err := sim.Metadata(ctx, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "mock_venmo_user", msg.Metadata.AccountInfo.Username)
	assert.Len(t, msg.Metadata.AvailableProofs, 2)
	assert.True(t, strings.HasPrefix(msg.Metadata.AccountInfo.AccountID, "mock_account_"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	_, err = sim.Metadata(ctx, "session_unknown")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestGenerateProofIsDeterministic(t *testing.T) {
	ctx := context.Background()
	run := func() ProofResponse {
		sim := newSim(true)
		_, err := sim.Connect(ctx)
		require.NoError(t, err)
		auth, err := sim.Authenticate(ctx, AuthenticateRequest{Platform: "cashapp"})
		require.NoError(t, err)

		_, err = sim.GenerateProof(ctx, ProofRequest{SessionID: "bogus"})
		require.ErrorIs(t, err, ErrInvalidSession)

		resp, err := sim.GenerateProof(ctx, ProofRequest{
			IntentHashDecimal: "12345",
			Platform:          "cashapp",
			SessionID:         auth.SessionID,
		})
		require.NoError(t, err)

		fetched, err := sim.FetchProof(ctx, resp.ProofID)
		require.NoError(t, err)
		assert.Equal(t, *resp.Proof, fetched)
		return resp
	}

	a, b := run(), run()
	assert.Equal(t, "proof_2", a.ProofID)
	assert.Equal(t, a.Proof, b.Proof)
	assert.Equal(t, "12345", a.Proof.PublicSignals[0])
	assert.Len(t, a.Proof.PublicSignals, 4)
	assert.Len(t, a.Proof.Nullifier, 66)
	assert.NotEqual(t, a.Proof.Nullifier, a.Proof.PayeeHash)

	raw, err := hex.DecodeString(strings.TrimPrefix(a.ProofBytes, "0x"))
	require.NoError(t, err)
	var decoded ProofData
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, *a.Proof, decoded)
}

func TestFetchProofScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryProofStore()
	require.NoError(t, store.Put(ctx, "alice", "proof_1", ProofData{Provider: "venmo"}))

	bob := NewSimulator("bob", Options{Installed: true}, store)
	_, err := bob.FetchProof(ctx, "proof_1")
	assert.ErrorIs(t, err, ErrProofNotFound)

	alice := NewSimulator("alice", Options{Installed: true}, store)
	p, err := alice.FetchProof(ctx, "proof_1")
	require.NoError(t, err)
	assert.Equal(t, "venmo", p.Provider)
}

func TestDelayHonoursContext(t *testing.T) {
	sim := NewSimulator("u", Options{Installed: true, ConnectDelay: time.Hour}, NewMemoryProofStore())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := sim.Connect(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSessionsAreCapped(t *testing.T) {
	ctx := context.Background()
	sim := newSim(true)
	_, err := sim.Connect(ctx)
	require.NoError(t, err)

	var first, last string
	for i := 0; i < MaxSessions+1; i++ {
		resp, err := sim.Authenticate(ctx, AuthenticateRequest{Platform: "venmo"})
		require.NoError(t, err)
		if i == 0 {
			first = resp.SessionID
		}
		last = resp.SessionID
	}

	sim.mu.Lock()
	assert.Len(t, sim.sessions, MaxSessions)
	sim.mu.Unlock()

	_, err = sim.Metadata(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidSession)
	_, err = sim.GenerateProof(ctx, ProofRequest{SessionID: first})
	assert.ErrorIs(t, err, ErrInvalidSession)

	require.Eventually(t, func() bool {
		_, err := sim.Metadata(ctx, last)
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestWaitMetadata(t *testing.T) {
	ctx := context.Background()
	sim := NewSimulator("u", Options{Installed: true, MetadataDelay: 50 * time.Millisecond}, NewMemoryProofStore()).
		WithIDs(ids.Sequence())
	_, err := sim.Connect(ctx)
	require.NoError(t, err)
	resp, err := sim.Authenticate(ctx, AuthenticateRequest{Platform: "zelle"})
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, time.Millisecond)
	defer cancel()
	_, err = WaitMetadata(short, sim, resp.SessionID)
	assert.ErrorIs(t, err, ErrMetadataPending)

	long, cancel2 := context.WithTimeout(ctx, 2*time.Second)
	defer cancel2()
	msg, err := WaitMetadata(long, sim, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, msg.SessionID)
	assert.Equal(t, "mock_zelle_user", msg.Metadata.AccountInfo.Username)

	// already emitted: returns without waiting
	msg, err = WaitMetadata(short, sim, resp.SessionID)
	require.NoError(t, err)
	assert.Equal(t, resp.SessionID, msg.SessionID)

	_, err = WaitMetadata(long, sim, "session_missing")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRegistry(t *testing.T) {
	created := 0
	reg, err := NewRegistry(2, func(owner string) *Simulator {
		created++
		return NewSimulator(owner, Options{Installed: true}, NewMemoryProofStore())
	})
	require.NoError(t, err)

	a := reg.For("a")
	assert.Same(t, a, reg.For("a"))
	reg.For("b")
	reg.For("c")
	assert.Equal(t, 2, reg.Len())
	assert.NotSame(t, a, reg.For("a"))
	assert.Equal(t, 4, created)
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3ProofStore(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	s := &S3ProofStore{client: fake, bucket: "ramp", prefix: "proofs"}

	require.NoError(t, s.Put(ctx, "user-1", "proof_1", ProofData{Provider: "wise", Nullifier: "0x01"}))
	assert.Contains(t, fake.objects, "ramp/proofs/user-1/proof_1.json")

	p, err := s.Get(ctx, "user-1", "proof_1")
	require.NoError(t, err)
	assert.Equal(t, "wise", p.Provider)

	_, err = s.Get(ctx, "user-2", "proof_1")
	assert.ErrorIs(t, err, ErrProofNotFound)
}
