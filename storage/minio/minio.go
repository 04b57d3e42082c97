// Package minio provides a storage.Backend for MinIO and S3-compatible
// object stores. Each resource blob becomes one object under a
// configurable key prefix.
package minio

import (
	"bytes"
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/flatarc/storage"
)

// Backend implements storage.Backend on a MinIO bucket.
type Backend struct {
	client *minio.Client
	bucket string
	prefix string
}

// New creates a MinIO backend. rootPrefix is prepended to all keys
// (e.g. "archives/").
func New(client *minio.Client, bucket, rootPrefix string) *Backend {
	return &Backend{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (b *Backend) key(name string) string {
	return path.Join(b.prefix, name)
}

// Exists reports whether an object exists under name.
func (b *Backend) Exists(ctx context.Context, name string) bool {
	_, err := b.client.StatObject(ctx, b.bucket, b.key(name), minio.StatObjectOptions{})
	return err == nil
}

// Read downloads the whole object stored under name.
func (b *Backend) Read(ctx context.Context, name string) ([]byte, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, b.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write uploads data as the object under name.
func (b *Backend) Write(ctx context.Context, name string, data []byte) error {
	_, err := b.client.PutObject(ctx, b.bucket, b.key(name),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	return err
}

var _ storage.Backend = (*Backend)(nil)
