package s3

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"

	"fiscaldoc/internal/config"
	"fiscaldoc/internal/port"
)

// MaxObjectBytes caps the size of a downloaded source document.
const MaxObjectBytes = 64 << 20

// Client stores source documents and exported results in S3 or any
// S3-compatible endpoint.
type Client struct {
	client   *s3.Client
	uploader *manager.Uploader
}

var _ port.ObjectStorage = (*Client)(nil)

// NewClient creates an S3-backed ObjectStorage. A custom endpoint switches
// to path-style addressing for MinIO and similar servers.
func NewClient(ctx context.Context, cfg config.S3Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &Client{
		client:   client,
		uploader: manager.NewUploader(client),
	}, nil
}

func (c *Client) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	put := &s3.PutObjectInput{
		Bucket: aws.String(input.Bucket),
		Key:    aws.String(input.Key),
		Body:   input.Body,
	}
	if input.ContentType != "" {
		put.ContentType = aws.String(input.ContentType)
	}
	result, err := c.uploader.Upload(ctx, put)
	if err != nil {
		return nil, errors.Wrapf(err, "s3 upload s3://%s/%s", input.Bucket, input.Key)
	}
	return &port.UploadOutput{
		Location: result.Location,
		ETag:     aws.ToString(result.ETag),
	}, nil
}

// Download reads a whole object, refusing anything above MaxObjectBytes.
func (c *Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "s3 download s3://%s/%s", bucket, key)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(io.LimitReader(result.Body, MaxObjectBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "s3 download read")
	}
	if len(data) > MaxObjectBytes {
		return nil, errors.Newf("s3 object s3://%s/%s exceeds %d bytes", bucket, key, MaxObjectBytes)
	}
	return data, nil
}
