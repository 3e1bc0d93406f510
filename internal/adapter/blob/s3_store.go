// Package blob stores admin uploads in an S3-compatible bucket.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bwmarrin/snowflake"

	"github.com/smallbiznis/homeservice-site/internal/domain/integration"
)

const maxNameLen = 100

// Config describes the target bucket.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
}

// ObjectPutter is the part of *s3.Client the store needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes uploaded files under the uploads/ prefix.
type Store struct {
	client        ObjectPutter
	bucket        string
	publicBaseURL string
	node          *snowflake.Node
}

// New builds an S3-backed store. With no bucket configured the store is
// returned unusable and Put reports integration.ErrNotConfigured.
func New(ctx context.Context, cfg Config, node *snowflake.Node) (*Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return &Store{node: node}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		if cfg.Endpoint != "" {
			base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return NewWithClient(client, cfg.Bucket, base, node), nil
}

// NewWithClient wires a store around an existing client.
func NewWithClient(client ObjectPutter, bucket, publicBaseURL string, node *snowflake.Node) *Store {
	return &Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		node:          node,
	}
}

// Put uploads body and returns its public URL.
func (s *Store) Put(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if s.client == nil || s.bucket == "" {
		return "", fmt.Errorf("blob store: missing BLOB_BUCKET: %w", integration.ErrNotConfigured)
	}

	key := s.objectKey(filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.publicBaseURL + "/" + key, nil
}

func (s *Store) objectKey(filename string) string {
	name := SanitizeFilename(filename)
	if name == "" {
		name = "upload"
	}
	return path.Join("uploads", fmt.Sprintf("%d-%s", s.node.Generate().Int64(), name))
}

// SanitizeFilename keeps letters, digits, '-', '_' and '.', drops the rest
// and caps the length.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	out := strings.Trim(b.String(), ".")
	if len(out) > maxNameLen {
		out = out[len(out)-maxNameLen:]
	}
	return out
}
