// Package s3 provides an AssetStager backed by AWS S3 or an
// S3-compatible service.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	onboarding "github.com/goliatone/go-onboarding"
)

// Config holds the connection settings. Endpoint is only needed for
// S3-compatible services; leave it empty for AWS.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Endpoint        string
	KeyPrefix       string
}

// Stager stores attachments as S3 objects. Keys are minted per upload
// so identical content never collides.
type Stager struct {
	client *awss3.Client
	bucket string
	prefix string
}

// New creates a stager from explicit credentials.
func New(ctx context.Context, cfg Config) (*Stager, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Stager{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

// NewFromClient wraps an existing client, used by tests and callers
// that manage AWS config themselves.
func NewFromClient(client *awss3.Client, bucket, prefix string) *Stager {
	return &Stager{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Stage uploads the content under a fresh category-scoped key.
func (s *Stager) Stage(ctx context.Context, content []byte, meta onboarding.AssetMeta) (onboarding.AssetRef, error) {
	key := s.objectKey(meta)

	contentType := meta.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return onboarding.AssetRef{}, fmt.Errorf("failed to put object: %w", err)
	}

	return onboarding.AssetRef{
		Key:      key,
		Category: meta.Category,
	}, nil
}

// Unstage removes the object. Deleting a key that is already gone is
// not an error on S3, which suits compensation retries.
func (s *Stager) Unstage(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

func (s *Stager) objectKey(meta onboarding.AssetMeta) string {
	name := uuid.NewString()
	if ext := path.Ext(meta.FileName); ext != "" {
		name += ext
	}

	category := meta.Category
	if category == "" {
		category = "misc"
	}

	if s.prefix == "" {
		return path.Join(category, name)
	}
	return path.Join(s.prefix, category, name)
}

var _ onboarding.AssetStager = (*Stager)(nil)
