package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/cluso-modeler/pkg/logging"
	"github.com/dd0wney/cluso-modeler/pkg/model"
)

// S3Config selects the bucket exports are uploaded to. Static keys are optional;
// without them the default AWS credential chain is used.
type S3Config struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	Region          string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader uploads exports to a bucket.
type S3Uploader struct {
	client putObjectAPI
	bucket string
	prefix string
	logger logging.Logger
}

// NewS3Uploader builds an uploader from cfg.
func NewS3Uploader(ctx context.Context, cfg S3Config, logger logging.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Uploader(client, cfg, logger), nil
}

func newS3Uploader(client putObjectAPI, cfg S3Config, logger logging.Logger) *S3Uploader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &S3Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger.With(logging.Component("s3-export")),
	}
}

// Upload stores body under key, below the configured prefix.
func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	fullKey := key
	if u.prefix != "" {
		fullKey = path.Join(u.prefix, key)
	}
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(fullKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		u.logger.Error("upload failed", logging.Path(fullKey), logging.Error(err))
		return fmt.Errorf("uploading s3://%s/%s: %w", u.bucket, fullKey, err)
	}
	u.logger.Info("export uploaded", logging.Path(fullKey), logging.String("bucket", u.bucket))
	return nil
}

// UploadSnapshot compresses nodes and edges and uploads them under key.
func (u *S3Uploader) UploadSnapshot(ctx context.Context, key string, nodes []*model.Node, edges []*model.Edge) error {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, nodes, edges); err != nil {
		return err
	}
	return u.Upload(ctx, key, "application/x-snappy", &buf)
}
