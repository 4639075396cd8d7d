package objectstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path"

	"allday/domain/core"
	"allday/internal"
	"allday/internal/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectGetter is the part of the S3 client the source needs
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SnapshotSource opens snapshot files stored under a bucket prefix
type SnapshotSource struct {
	client ObjectGetter
	bucket string
	prefix string
	logger *internal.Logger
}

// NewSnapshotSource builds an S3 client from the default credential chain
func NewSnapshotSource(ctx context.Context, region, bucket, prefix string, logger *internal.Logger) (*SnapshotSource, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.ExternalServiceError("s3", fmt.Errorf("failed to load AWS configuration: %w", err))
	}
	return NewSnapshotSourceWithClient(s3.NewFromConfig(cfg), bucket, prefix, logger), nil
}

// NewSnapshotSourceWithClient wraps an existing client
func NewSnapshotSourceWithClient(client ObjectGetter, bucket, prefix string, logger *internal.Logger) *SnapshotSource {
	return &SnapshotSource{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.WithComponent("s3_source").WithField("bucket", bucket),
	}
}

// Key returns the object key for a snapshot file name
func (s *SnapshotSource) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Open streams one snapshot file. The caller closes the body.
func (s *SnapshotSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.Key(name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if stderrors.As(err, &missing) {
			return nil, fmt.Errorf("%w: s3://%s/%s", core.ErrNotFound, s.bucket, key)
		}
		return nil, errors.ExternalServiceError("s3", err)
	}
	s.logger.Debug("opened s3://%s/%s (%d bytes)", s.bucket, key, aws.ToInt64(out.ContentLength))
	return out.Body, nil
}
