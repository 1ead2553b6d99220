package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/oklog/ulid/v2"
)

const keyPrefix = "books/"

// Config configures the S3 media store.
type Config struct {
	Bucket       string
	Region       string
	Endpoint     string // Custom endpoint for MinIO and other S3-compatible hosts
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PublicURL    string // Base URL under which uploaded objects are served
	MaxBytes     int64
}

// s3API is the part of the S3 client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Store uploads and deletes book images.
type S3Store struct {
	client    s3API
	bucket    string
	publicURL string
	maxBytes  int64
}

// NewS3Store creates a store backed by an S3 client built from cfg.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		// Static credentials for MinIO or AWS with explicit keys
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3Store(client, cfg), nil
}

func newS3Store(client s3API, cfg Config) *S3Store {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &S3Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		maxBytes:  maxBytes,
	}
}

// Upload decodes payload, stores it under a fresh key and returns its public URL.
func (s *S3Store) Upload(ctx context.Context, payload string) (string, error) {
	img, err := DecodeImage(payload, s.maxBytes)
	if err != nil {
		return "", err
	}

	key := keyPrefix + ulid.Make().String() + img.Ext()
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentType:   aws.String(img.ContentType),
		ContentLength: aws.Int64(int64(len(img.Data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return s.publicURL + "/" + key, nil
}

// Owns reports whether imageURL points at an object this store uploaded.
func (s *S3Store) Owns(imageURL string) bool {
	_, ok := s.keyFor(imageURL)
	return ok
}

// Delete removes the object behind imageURL. URLs the store does not own are
// ignored.
func (s *S3Store) Delete(ctx context.Context, imageURL string) error {
	key, ok := s.keyFor(imageURL)
	if !ok {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// Ping verifies the bucket is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("media health check failed: %w", err)
	}
	return nil
}

func (s *S3Store) keyFor(imageURL string) (string, bool) {
	key, ok := strings.CutPrefix(imageURL, s.publicURL+"/")
	if !ok || !strings.HasPrefix(key, keyPrefix) || len(key) == len(keyPrefix) {
		return "", false
	}
	if strings.Contains(key, "..") {
		return "", false
	}
	return key, true
}
