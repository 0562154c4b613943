package source

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
	"go.uber.org/zap"

	"github.com/xhad/paperchat/internal/models"
	"github.com/xhad/paperchat/pkg/errs"
	"github.com/xhad/paperchat/pkg/logging"
)

type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Logger    *zap.Logger
}

// S3API is the subset of the S3 client the feed needs.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Feed reads every PDF under a bucket prefix.
type S3Feed struct {
	client S3API
	bucket string
	prefix string
	logger *zap.Logger
}

func NewS3(ctx context.Context, config S3Config) (*S3Feed, error) {
	if config.Bucket == "" {
		return nil, errs.Configuration(fmt.Errorf("s3 bucket is required"))
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKey != "" && config.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.Configuration(fmt.Errorf("failed to load aws config: %w", err))
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(client, config), nil
}

func NewS3WithClient(client S3API, config S3Config) *S3Feed {
	return &S3Feed{
		client: client,
		bucket: config.Bucket,
		prefix: strings.TrimPrefix(config.Prefix, "/"),
		logger: logging.OrNop(config.Logger),
	}
}

func (f *S3Feed) Fetch(ctx context.Context, limit int) ([]models.Document, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(f.bucket)}
	if f.prefix != "" {
		input.Prefix = aws.String(f.prefix)
	}

	var docs []models.Document
	paginator := s3.NewListObjectsV2Paginator(f.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", f.bucket, f.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !isPDF(key) {
				continue
			}
			content, err := f.get(ctx, key)
			if err != nil {
				return nil, err
			}
			docs = append(docs, models.Document{
				ID:       key,
				FileName: path.Base(key),
				Content:  content,
			})
			if limit > 0 && len(docs) >= limit {
				return docs, nil
			}
		}
	}

	f.logger.Info("fetched objects", zap.String("bucket", f.bucket), zap.Int("count", len(docs)))
	return docs, nil
}

func (f *S3Feed) get(ctx context.Context, key string) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", f.bucket, key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (f *S3Feed) Close() {}
