// Package s3 provides a storage.Backend for AWS S3. Each resource blob
// becomes one object under a configurable key prefix; uploads stream
// through the SDK's managed uploader.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/time/rate"

	"github.com/hupe1980/flatarc/storage"
)

// Client is the subset of the S3 API the backend uses. It matches
// *s3.Client and allows substituting a fake in tests.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// Backend implements storage.Backend on an S3 bucket.
type Backend struct {
	client  Client
	bucket  string
	prefix  string
	limiter *rate.Limiter
}

// Option configures a Backend.
type Option func(*Backend)

// WithPrefix prepends a key prefix to all objects (e.g. "archives/").
func WithPrefix(prefix string) Option {
	return func(b *Backend) { b.prefix = prefix }
}

// WithRateLimit caps the request rate against the bucket. Useful when
// an archive build shares a bucket with latency-sensitive readers.
func WithRateLimit(rps rate.Limit, burst int) Option {
	return func(b *Backend) { b.limiter = rate.NewLimiter(rps, burst) }
}

// New creates an S3 backend using the default AWS configuration chain.
func New(ctx context.Context, bucket string, opts ...Option) (*Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewWithClient(s3.NewFromConfig(cfg), bucket, opts...), nil
}

// NewWithClient creates an S3 backend with a caller-provided client.
func NewWithClient(client Client, bucket string, opts ...Option) *Backend {
	b := &Backend{
		client: client,
		bucket: bucket,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) key(name string) string {
	return path.Join(b.prefix, name)
}

func (b *Backend) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	return b.limiter.Wait(ctx)
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}

// Exists reports whether an object exists under name.
func (b *Backend) Exists(ctx context.Context, name string) bool {
	if err := b.wait(ctx); err != nil {
		return false
	}
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	return err == nil
}

// Read downloads the whole object stored under name.
func (b *Backend) Read(ctx context.Context, name string) ([]byte, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// Write uploads data as the object under name via the managed uploader.
func (b *Backend) Write(ctx context.Context, name string, data []byte) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	uploader := manager.NewUploader(b.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
		Body:   bytes.NewReader(data),
	})
	return err
}

var _ storage.Backend = (*Backend)(nil)
