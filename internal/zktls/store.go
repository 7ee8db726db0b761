package zktls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ProofStore persists generated proofs per owner.
type ProofStore interface {
	Put(ctx context.Context, owner, proofID string, p ProofData) error
	Get(ctx context.Context, owner, proofID string) (ProofData, error)
}

type MemoryProofStore struct {
	mu     sync.RWMutex
	proofs map[string]ProofData
}

func NewMemoryProofStore() *MemoryProofStore {
	return &MemoryProofStore{proofs: make(map[string]ProofData)}
}

func (m *MemoryProofStore) Put(_ context.Context, owner, proofID string, p ProofData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proofs[owner+"/"+proofID] = p
	return nil
}

func (m *MemoryProofStore) Get(_ context.Context, owner, proofID string) (ProofData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.proofs[owner+"/"+proofID]
	if !ok {
		return ProofData{}, ErrProofNotFound
	}
	return p, nil
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ProofStore archives proofs as JSON objects at <prefix>/<owner>/<proofId>.json.
// Any S3 compatible endpoint works (R2, MinIO).
type S3ProofStore struct {
	client objectAPI
	bucket string
	prefix string
}

type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func NewS3ProofStore(ctx context.Context, o S3Options) (*S3ProofStore, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(o.Region)}
	if o.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		if o.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.Endpoint)
			opts.UsePathStyle = true
		}
	})
	return &S3ProofStore{client: client, bucket: o.Bucket, prefix: o.Prefix}, nil
}

func (s *S3ProofStore) key(owner, proofID string) string {
	return path.Join(s.prefix, owner, proofID+".json")
}

func (s *S3ProofStore) Put(ctx context.Context, owner, proofID string, p ProofData) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(owner, proofID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload proof: %w", err)
	}
	return nil
}

func (s *S3ProofStore) Get(ctx context.Context, owner, proofID string) (ProofData, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(owner, proofID)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return ProofData{}, ErrProofNotFound
		}
		return ProofData{}, fmt.Errorf("download proof: %w", err)
	}
	defer out.Body.Close()

	var p ProofData
	if err := json.NewDecoder(out.Body).Decode(&p); err != nil {
		return ProofData{}, fmt.Errorf("decode proof: %w", err)
	}
	return p, nil
}
