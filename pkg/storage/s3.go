package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL overrides the virtual-hosted S3 URL, e.g. for a CDN.
	PublicBaseURL string
	// Buckets maps logical bucket names (e.g. "avatars") to S3 bucket names.
	// Unmapped names are used as-is.
	Buckets map[string]string
}

// S3 is an ObjectStore backed by Amazon S3.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or the environment
// (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY), falling back to the default chain.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using static credentials", zap.String("region", cfg.Region))
	} else {
		logger.Warn("S3 client using default credential chain")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Upload stores body publicly readable and returns its public URL.
func (s *S3) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket(bucket)),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	s.logger.Debug("object uploaded", zap.String("bucket", bucket), zap.String("key", key))
	return s.PublicURL(bucket, key), nil
}

// Get returns the object body and content type. Caller must close the body.
func (s *S3) Get(ctx context.Context, bucket, key string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket(bucket)),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("get object: %w", err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

// PublicURL returns the unsigned URL of an object in a public bucket.
func (s *S3) PublicURL(bucket, key string) string {
	if s.cfg.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.PublicBaseURL, "/"), bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket(bucket), s.cfg.Region, key)
}

func (s *S3) bucket(name string) string {
	if b, ok := s.cfg.Buckets[name]; ok && b != "" {
		return b
	}
	return name
}
