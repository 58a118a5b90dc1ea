package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var errEmptyBucket = errors.New("bucket is required")

type S3Config struct {
	Bucket          string `env:"FLCOORD_S3_BUCKET"`
	Region          string `env:"FLCOORD_S3_REGION"            envDefault:"us-east-1"`
	Endpoint        string `env:"FLCOORD_S3_ENDPOINT"`
	AccessKeyID     string `env:"FLCOORD_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"FLCOORD_S3_SECRET_ACCESS_KEY"`
	Prefix          string `env:"FLCOORD_S3_PREFIX"            envDefault:"flcoord/"`
	UsePathStyle    bool   `env:"FLCOORD_S3_PATH_STYLE"        envDefault:"false"`
}

var _ Mirror = (*S3Mirror)(nil)

// S3Mirror uploads checkpoints to S3 or any S3-compatible store.
type S3Mirror struct {
	client *s3.Client
	cfg    S3Config
}

func NewS3Mirror(ctx context.Context, cfg S3Config) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, errEmptyBucket
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	return &S3Mirror{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		cfg:    cfg,
	}, nil
}

func (m *S3Mirror) Upload(ctx context.Context, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.cfg.Bucket),
		Key:         aws.String(m.cfg.Prefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-snappy"),
	})
	if err != nil {
		return fmt.Errorf("S3 put object failed: %w", err)
	}

	return nil
}
