// Package s3 stores the crawl checkpoint as a text object in an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/JakeFAU/bgg-catalog-harvester/internal/crawler"
	"github.com/JakeFAU/bgg-catalog-harvester/internal/storage"
)

// Config captures the parameters required to reach the checkpoint object.
// Endpoint points the client at an S3-compatible service (MinIO, R2,
// localstack). The static keys override the default credential chain when
// both are set.
type Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// ObjectAPI is the subset of *s3.Client used by CheckpointStore.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// CheckpointStore reads and writes the cursor object.
type CheckpointStore struct {
	client ObjectAPI
	bucket string
	key    string
}

// NewClient builds an S3 client from static keys or the default AWS
// credential chain.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// New creates an S3-backed checkpoint store.
func New(client ObjectAPI, cfg Config) (*CheckpointStore, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, fmt.Errorf("object key is required")
	}
	return &CheckpointStore{client: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

// Location renders the object address for logs.
func (s *CheckpointStore) Location() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.key)
}

// Get downloads and parses the cursor object.
func (s *CheckpointStore) Get(ctx context.Context) (crawler.Cursor, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, storage.NotFound(s.Location())
		}
		return 0, storage.Failure("get", s.Location(), err)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return 0, storage.Failure("read", s.Location(), err)
	}
	return storage.DecodeCursor(data)
}

// Put overwrites the cursor object.
func (s *CheckpointStore) Put(ctx context.Context, cursor crawler.Cursor) error {
	body := storage.EncodeCursor(cursor)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(storage.ContentType),
	})
	if err != nil {
		return storage.Failure("put", s.Location(), err)
	}
	return nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
