package minio

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"webshare-api/config"
	"webshare-api/internal/application/ports"
	"webshare-api/internal/infrastructure/blob"
)

// Client stores objects on any S3-compatible endpoint through minio-go.
// Public URLs follow the same rule as the AWS driver, so documents written by
// either driver stay valid when the driver is switched.
type Client struct {
	logger   *zap.Logger
	client   *minio.Client
	endpoint string
	bucket   string
}

func New(logger *zap.Logger, cfg config.Blob) (*Client, error) {
	client, err := minio.New(cfg.EndpointHost(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: !strings.HasPrefix(cfg.Endpoint, "http://"),
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	logger.Info("minio blob store configured",
		zap.String("endpoint", cfg.EndpointHost()),
		zap.String("bucket", cfg.Bucket),
	)

	return &Client{
		logger:   logger,
		client:   client,
		endpoint: cfg.EndpointHost(),
		bucket:   cfg.Bucket,
	}, nil
}

func (c *Client) Put(ctx context.Context, obj ports.BlobObject) (string, error) {
	meta := make(map[string]string, len(obj.Metadata)+1)
	for k, v := range obj.Metadata {
		meta[k] = v
	}
	// x-amz-* keys are sent as headers, not as user metadata.
	meta["x-amz-acl"] = blob.ACLPublicRead

	_, err := c.client.PutObject(ctx, c.bucket, obj.Key, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		UserMetadata: meta,
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", obj.Key, err)
	}

	return c.GetPublicURL(obj.Key), nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

func (c *Client) GetPublicURL(key string) string {
	return blob.PublicURL(c.bucket, c.endpoint, key)
}

func (c *Client) GetBucket() string { return c.bucket }
