package export

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/KaramelBytes/vidnarr-cli/internal/observe"
)

// S3Config holds the bucket settings. Credentials fall back to the default
// AWS chain (environment, shared config, instance role) when empty.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // optional; e.g. a MinIO URL
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// Publisher uploads run artifacts to a single bucket.
type Publisher struct {
	client *s3.Client
	bucket string
	prefix string
	log    observe.Logger
}

// NewPublisher builds an S3 client from cfg.
func NewPublisher(ctx context.Context, cfg S3Config, log observe.Logger) (*Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newPublisher(client, cfg.Bucket, cfg.Prefix, log), nil
}

func newPublisher(client *s3.Client, bucket, prefix string, log observe.Logger) *Publisher {
	if log == nil {
		log = observe.Nop()
	}
	return &Publisher{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), log: log}
}

// Key is the object key for a local file: <prefix>/<runID>/<basename>.
func (p *Publisher) Key(runID, file string) string {
	return path.Join(p.prefix, runID, filepath.Base(file))
}

// Publish uploads files under the run's key prefix and returns the keys
// written, in order. It stops at the first failure.
func (p *Publisher) Publish(ctx context.Context, runID string, files []string) ([]string, error) {
	var keys []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return keys, err
		}
		key := p.Key(runID, f)
		if err := p.put(ctx, key, f); err != nil {
			p.log.Error("s3 upload failed", "bucket", p.bucket, "key", key, "error", err)
			return keys, fmt.Errorf("upload %s: %w", filepath.Base(f), err)
		}
		p.log.Info("s3 upload", "bucket", p.bucket, "key", key)
		keys = append(keys, key)
	}
	return keys, nil
}

func (p *Publisher) put(ctx context.Context, key, file string) error {
	fh, err := os.Open(file)
	if err != nil {
		return err
	}
	defer fh.Close()
	input := &s3.PutObjectInput{
		Bucket:      &p.bucket,
		Key:         &key,
		Body:        fh,
		ContentType: aws.String(contentType(file)),
	}
	_, err = p.client.PutObject(ctx, input)
	return err
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".txt", ".prom":
		return "text/plain; charset=utf-8"
	case ".db", ".sqlite":
		return "application/vnd.sqlite3"
	}
	return "application/octet-stream"
}
