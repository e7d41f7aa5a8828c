package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"webshare-api/config"
	"webshare-api/internal/application/ports"
	"webshare-api/internal/infrastructure/blob"
)

// API is the part of *s3.Client the store calls.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Client struct {
	logger   *zap.Logger
	api      API
	endpoint string
	bucket   string
}

func New(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Blob,
) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://" + cfg.EndpointHost())
		// S3-compatible providers reject the default flexible checksums.
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	logger.Info("s3 blob store configured",
		zap.String("endpoint", cfg.EndpointHost()),
		zap.String("bucket", cfg.Bucket),
	)

	return NewWithAPI(logger, api, cfg), nil
}

func NewWithAPI(logger *zap.Logger, api API, cfg config.Blob) *Client {
	return &Client{
		logger:   logger,
		api:      api,
		endpoint: cfg.EndpointHost(),
		bucket:   cfg.Bucket,
	}
}

func (c *Client) Put(ctx context.Context, obj ports.BlobObject) (string, error) {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(obj.Key),
		Body:          obj.Body,
		ACL:           types.ObjectCannedACL(blob.ACLPublicRead),
		ContentType:   aws.String(obj.ContentType),
		ContentLength: aws.Int64(obj.Size),
		Metadata:      obj.Metadata,
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %q: %w", obj.Key, err)
	}

	return c.GetPublicURL(obj.Key), nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}

func (c *Client) GetPublicURL(key string) string {
	return blob.PublicURL(c.bucket, c.endpoint, key)
}

func (c *Client) GetBucket() string { return c.bucket }
