// Package storage reads and writes raw recording audio in an S3-compatible
// bucket (Supabase Storage exposes one).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DefaultMaxObjectSize caps how much of an object Fetch reads into memory.
const DefaultMaxObjectSize = 512 << 20

var (
	// ErrNotFound indicates the object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrTooLarge indicates the object exceeds the configured maximum.
	ErrTooLarge = errors.New("object too large")
)

// Config holds S3 connection settings.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	MaxSize   int64
}

// Store is an S3-backed audio store.
type Store struct {
	client  *awss3.Client
	bucket  string
	maxSize int64
	logger  *slog.Logger
}

// NewStore creates an S3 client for the configured bucket.
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxObjectSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			// S3-compatible services reject the newer default checksum trailers.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})

	return &Store{client: client, bucket: cfg.Bucket, maxSize: cfg.MaxSize, logger: logger}, nil
}

// Fetch downloads the object at path fully into memory.
func (s *Store) Fetch(ctx context.Context, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("storage: fetch %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("storage: fetch %s: %w", path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, fmt.Errorf("storage: fetch %s: %w", path, ErrTooLarge)
	}

	s.logger.Debug("fetched audio", "path", path, "bytes", len(data))
	return data, nil
}

// Upload stores data at path.
func (s *Store) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	input := &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(path),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("storage: upload %s: %w", path, err)
	}

	s.logger.Debug("uploaded audio", "path", path, "bytes", len(data))
	return nil
}

// Delete removes the object at path. Deleting a missing object succeeds.
func (s *Store) Delete(ctx context.Context, path string) error {
	if _, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	}); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	s.logger.Debug("deleted audio", "path", path)
	return nil
}
