// Package spaces reads file bytes from DigitalOcean Spaces through the
// S3-compatible minio client.
package spaces

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Client struct {
	minio  *minio.Client
	bucket string
}

func New(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("spaces connection: %w", err)
	}
	return &Client{minio: mc, bucket: bucket}, nil
}

// Fetch downloads the whole object into memory. The pipeline processes one
// file at a time, so a single in-flight buffer is the expected footprint.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	obj, err := c.minio.GetObject(ctx, c.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", path, err)
	}
	defer obj.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		return nil, fmt.Errorf("read object %s: %w", path, err)
	}
	return buf.Bytes(), nil
}
