// Package archive keeps a copy of raw billing webhook bodies in an S3
// compatible bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/ManuelReschke/ScoreEngine/internal/pkg/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// putObjectAPI is the slice of the S3 client the archive needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive writes payloads to <prefix>/<yyyy>/<mm>/<dd>/<log-id>.json.
type S3Archive struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Archive builds the archive from config. Returns nil when no bucket is
// configured.
func NewS3Archive(ctx context.Context, cfg config.Archive) (*S3Archive, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	log.Infof("[Archive] Webhook archive enabled (bucket %s)", cfg.Bucket)
	return newS3Archive(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3Archive(client putObjectAPI, bucket, prefix string) *S3Archive {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "webhooks"
	}
	return &S3Archive{client: client, bucket: bucket, prefix: prefix}
}

// ObjectKey returns the key a payload is stored under.
func (a *S3Archive) ObjectKey(logID uint, receivedAt time.Time) string {
	t := receivedAt.UTC()
	return path.Join(a.prefix, t.Format("2006"), t.Format("01"), t.Format("02"), fmt.Sprintf("%d.json", logID))
}

func (a *S3Archive) ArchiveWebhook(ctx context.Context, logID uint, receivedAt time.Time, body []byte) error {
	key := a.ObjectKey(logID, receivedAt)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata: map[string]string{
			"upload-source": "scoreengine-webhook",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}
