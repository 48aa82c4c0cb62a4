package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Backend signs download and upload URLs against a single private
// bucket. All calls are time-bounded so a slow AWS endpoint degrades
// into an error response instead of a hung request.
type S3Backend struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

const s3CallTimeout = 5 * time.Second

func NewS3Backend(client *s3.Client, bucket string) *S3Backend {
	return &S3Backend{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
	}
}

func (b *S3Backend) SignedDownloadURL(ctx context.Context, key string, opts SignedDownloadOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s3CallTimeout)
	defer cancel()

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(key)
	}

	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(b.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(ContentDisposition(opts.Disposition, opts.Filename)),
		ResponseContentType:        aws.String(contentType),
	}, s3.WithPresignExpires(opts.ExpiresIn))
	if err != nil {
		return "", fmt.Errorf("presign get %q: %v: %w", key, err, ErrUnavailable)
	}
	return req.URL, nil
}

func (b *S3Backend) PresignedPutURL(ctx context.Context, key string, opts PresignPutOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s3CallTimeout)
	defer cancel()

	req, err := b.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(opts.ContentType),
	}, s3.WithPresignExpires(opts.ExpiresIn))
	if err != nil {
		return "", fmt.Errorf("presign put %q: %v: %w", key, err, ErrUnavailable)
	}
	return req.URL, nil
}

func (b *S3Backend) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, s3CallTimeout)
	defer cancel()

	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("head %q: %v: %w", key, err, ErrUnavailable)
	}

	info := &ObjectInfo{ContentType: aws.ToString(out.ContentType)}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if info.ContentType == "" {
		info.ContentType = detectContentType(key)
	}
	return info, nil
}

func detectContentType(key string) string {
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
