package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"photoportal/internal/sentinel"
	"photoportal/internal/storage/tracer"
	dErrors "photoportal/pkg/domain-errors"
)

// endpointRegion extracts the region embedded in Backblaze-style endpoints
// (https://s3.us-west-000.backblazeb2.com).
var endpointRegion = regexp.MustCompile(`s3\.([a-z0-9-]+)\.`)

// S3Store implements ObjectStore over any S3-compatible provider.
type S3Store struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
	tracer  tracer.Tracer
}

// NewS3Store validates the credentials and builds a client against the
// credential's endpoint. No network call is made here; credential liveness is
// checked separately via TestConnection.
func NewS3Store(creds Credentials, tr tracer.Tracer) (*S3Store, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if tr == nil {
		tr = tracer.NewNoop()
	}

	cfg := aws.Config{
		Region:      regionFromEndpoint(creds.Endpoint),
		Credentials: awscreds.NewStaticCredentialsProvider(creds.KeyID, creds.Key, ""),
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if creds.Endpoint != "" {
			o.BaseEndpoint = aws.String(creds.Endpoint)
		}
	})

	return &S3Store{
		bucket:  creds.Bucket,
		client:  client,
		presign: s3.NewPresignClient(client),
		tracer:  tr,
	}, nil
}

func regionFromEndpoint(endpoint string) string {
	if m := endpointRegion.FindStringSubmatch(endpoint); m != nil {
		return m[1]
	}
	return "us-east-1"
}

// PresignUpload mints a PUT URL for the object key.
func (s *S3Store) PresignUpload(ctx context.Context, key, contentType string) (_ string, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanPresignUpload,
		tracer.String(tracer.AttrBucket, s.bucket),
		tracer.String(tracer.AttrKey, key),
	)
	defer func() { span.End(err) }()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := s.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(UploadURLTTL))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to presign upload")
	}
	return req.URL, nil
}

// PresignDownload mints a GET URL for the object key.
func (s *S3Store) PresignDownload(ctx context.Context, key string) (_ string, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanPresignDownload,
		tracer.String(tracer.AttrBucket, s.bucket),
		tracer.String(tracer.AttrKey, key),
	)
	defer func() { span.End(err) }()

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(DownloadURLTTL))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to presign download")
	}
	return req.URL, nil
}

// Head returns object metadata, with the authoritative size.
func (s *S3Store) Head(ctx context.Context, key string) (_ *ObjectInfo, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanHead,
		tracer.String(tracer.AttrBucket, s.bucket),
		tracer.String(tracer.AttrKey, key),
	)
	defer func() { span.End(err) }()

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s: %w", key, sentinel.ErrNotFound)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to stat object")
	}

	info := &ObjectInfo{Key: key}
	if out.ContentLength != nil {
		info.SizeBytes = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	span.SetAttributes(tracer.Int64(tracer.AttrSizeBytes, info.SizeBytes))
	return info, nil
}

// Delete removes the object. S3 deletes are idempotent; an absent key is
// success.
func (s *S3Store) Delete(ctx context.Context, key string) (err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanDelete,
		tracer.String(tracer.AttrBucket, s.bucket),
		tracer.String(tracer.AttrKey, key),
	)
	defer func() { span.End(err) }()

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to delete object")
	}
	return nil
}

// ListPrefix returns objects under the prefix.
func (s *S3Store) ListPrefix(ctx context.Context, prefix string) (_ []ObjectInfo, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanAggregate,
		tracer.String(tracer.AttrBucket, s.bucket),
		tracer.String(tracer.AttrKey, prefix),
	)
	defer func() { span.End(err) }()

	var objects []ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list objects")
		}
		for _, obj := range page.Contents {
			info := ObjectInfo{}
			if obj.Key != nil {
				info.Key = *obj.Key
			}
			if obj.Size != nil {
				info.SizeBytes = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

// AggregateSize sums object sizes under the prefix.
func (s *S3Store) AggregateSize(ctx context.Context, prefix string) (int64, int, error) {
	objects, err := s.ListPrefix(ctx, prefix)
	if err != nil {
		return 0, 0, err
	}
	var total int64
	for _, obj := range objects {
		total += obj.SizeBytes
	}
	return total, len(objects), nil
}

// TestConnection verifies the credentials can reach the bucket.
func (s *S3Store) TestConnection(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storage connection test failed")
	}
	return nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}

var _ ObjectStore = (*S3Store)(nil)
