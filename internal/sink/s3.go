package sink

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
)

// S3Options configure the S3 client. Credentials come from the default
// AWS chain.
type S3Options struct {
	Region     string
	Endpoint   string // custom endpoint, e.g. MinIO
	PathStyle  bool
	HTTPClient *http.Client
	Creds      aws.CredentialsProvider
}

// S3 stores objects in an S3-compatible bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 creates an S3 sink.
func NewS3(ctx context.Context, bucket, prefix string, opts S3Options) (*S3, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if opts.Creds != nil {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(opts.Creds))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "sink: load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.PathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		if opts.HTTPClient != nil {
			o.HTTPClient = opts.HTTPClient
		}
	})
	return &S3{client: client, bucket: bucket, prefix: prefix}, nil
}

// Put uploads r. The body is buffered so the request is seekable.
func (s *S3) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "sink: buffer object")
	}
	name := joinKey(s.prefix, key)

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", eris.Wrapf(err, "sink: put s3://%s/%s", s.bucket, name)
	}
	return "s3://" + s.bucket + "/" + name, nil
}

// Get opens an object for reading.
func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	name := joinKey(s.prefix, key)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "sink: get s3://%s/%s", s.bucket, name)
	}
	return out.Body, nil
}

// Close is a no-op; the SDK client holds no resources to release.
func (s *S3) Close() error { return nil }
