// Package storage adapts S3-compatible object storage for contract
// documents: upload, time-boxed presigned read URLs, and deletion.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fleetops/contractd/internal/common"
	sc "github.com/fleetops/contractd/internal/server/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Store stores contract documents in a single bucket of an S3-compatible
// backend (MinIO in development).
type S3Store struct {
	config *sc.Config
}

// NewS3Store constructs a store bound to the server config.
func NewS3Store(config *sc.Config) *S3Store {
	return &S3Store{config: config}
}

// MakeDocumentKey derives a fresh object key for a contract's document.
// The time-based suffix keeps re-renders of the same contract from
// colliding; old objects stay addressable until deleted.
func MakeDocumentKey(contractID string) string {
	return fmt.Sprintf("contracts/%s-%d.pdf", contractID, time.Now().UnixMilli())
}

func (s *S3Store) getClient() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

// Upload writes data under key. Failures are reported as ErrorStorage.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte) error {
	client, err := s.getClient()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	bucket := s.config.S3Bucket
	contentType := "application/pdf"

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	return nil
}

// PresignGet returns a time-boxed read URL for key. An empty key yields an
// empty URL without error, so records without a document stay cheap to list.
func (s *S3Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", nil
	}

	client, err := s.getClient()
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}
	presignClient := newS3PresignClient(client)

	bucket := s.config.S3Bucket

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	return req.URL, nil
}

// PresignGetBatch resolves read URLs for several keys in one call. Empty
// keys are skipped. Presigning is local computation, so the batch variant
// is a loop over a shared client.
func (s *S3Store) PresignGetBatch(ctx context.Context, keys []string, ttl time.Duration) (map[string]string, error) {
	urls := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return urls, nil
	}

	client, err := s.getClient()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}
	presignClient := newS3PresignClient(client)

	bucket := s.config.S3Bucket

	for _, key := range keys {
		if key == "" {
			continue
		}
		req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
			Bucket: &bucket,
			Key:    aws.String(key),
		}, s3.WithPresignExpires(ttl))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrorStorage, err)
		}
		urls[key] = req.URL
	}

	return urls, nil
}

// Delete removes the object under key. Callers treat failures as
// best-effort; the error is returned for logging only.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	client, err := s.getClient()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	bucket := s.config.S3Bucket

	_, err = deleteObject(client, ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorStorage, err)
	}

	return nil
}
