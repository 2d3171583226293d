// Package s3store stores device photos in an S3-compatible bucket.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/CaioWing/checkpoint/internal/domain"
	"github.com/CaioWing/checkpoint/internal/storage"
)

// Config describes the bucket and how its objects are addressed publicly.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type S3Store struct {
	client    objectAPI
	bucket    string
	publicURL *url.URL
}

var _ storage.PhotoStore = (*S3Store)(nil)

func New(ctx context.Context, cfg Config) (*S3Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newWithClient(client, cfg)
}

func newWithClient(client objectAPI, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	public := cfg.PublicURL
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	u, err := url.Parse(public)
	if err != nil {
		return nil, fmt.Errorf("parse public url: %w", err)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, publicURL: u}, nil
}

func (s *S3Store) Save(ctx context.Context, photo *storage.Photo, deviceID string) (string, error) {
	if err := photo.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	if !storage.SafeID(deviceID) {
		return "", fmt.Errorf("%w: invalid device id %q", domain.ErrUploadFailed, deviceID)
	}

	// The SDK needs a seekable body to sign the payload.
	data, err := io.ReadAll(photo.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read photo: %v", domain.ErrUploadFailed, err)
	}

	key := storage.ObjectName(deviceID, photo.Extension())
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if photo.ContentType != "" {
		in.ContentType = aws.String(photo.ContentType)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("%w: put object: %v", domain.ErrUploadFailed, err)
	}

	return s.publicURL.JoinPath(key).String(), nil
}

// Delete removes every object stored for the device regardless of extension.
func (s *S3Store) Delete(ctx context.Context, deviceID string) bool {
	if !storage.SafeID(deviceID) {
		return false
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(deviceID + "."),
	})
	if err != nil {
		return false
	}

	deleted := false
	for _, obj := range out.Contents {
		if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    obj.Key,
		}); err == nil {
			deleted = true
		}
	}
	return deleted
}

func (s *S3Store) Lookup(ctx context.Context, deviceID, ext string) (string, bool) {
	key := storage.ObjectName(deviceID, ext)
	if !storage.SafeID(deviceID) || !storage.SafeID(key) {
		return "", false
	}

	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return "", false
	}
	return s.publicURL.JoinPath(key).String(), true
}
