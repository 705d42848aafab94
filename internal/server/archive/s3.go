// Package archive stores purged allowlist rows in S3-compatible object
// storage as JSON lines.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/jwtkeeper/internal/server/models"
)

// Archiver persists a batch of purged tokens and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, tokens []models.AllowlistedToken, at time.Time) (string, error)
}

// Options configures the S3 connection. Endpoint may point at MinIO.
type Options struct {
	Bucket         string
	Region         string
	AccessKey      string
	SecretKey      string
	BaseEndpoint   string
	ForcePathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Seams for tests.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Archiver writes batches as objects under allowlist/YYYY/MM/DD/.
type S3Archiver struct {
	bucket string
	client objectPutter
}

// NewS3Archiver builds an archiver with static credentials.
func NewS3Archiver(ctx context.Context, opts Options) (*S3Archiver, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})

	return &S3Archiver{bucket: opts.Bucket, client: client}, nil
}

// ObjectKey returns a unique key for a batch archived at t.
func ObjectKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("allowlist/%04d/%02d/%02d/%v.jsonl", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Archive uploads tokens as one JSON object per line. An empty batch is
// not uploaded and yields an empty key.
func (a *S3Archiver) Archive(ctx context.Context, tokens []models.AllowlistedToken, at time.Time) (string, error) {
	if len(tokens) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range tokens {
		if err := enc.Encode(&tokens[i]); err != nil {
			return "", fmt.Errorf("encode token %s: %w", tokens[i].TokenID, err)
		}
	}

	key := ObjectKey(at)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}

var _ Archiver = (*S3Archiver)(nil)
