package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"cvstudio/internal/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Store keeps uploaded source files (PDFs, scans) in an S3 bucket so a
// user can re-run extraction later without re-uploading. Objects are keyed
// per user and purpose; the bucket is never exposed directly, reads go
// through presigned URLs.
type Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	uploader  *manager.Uploader
	bucket    string
	expiry    time.Duration
}

// Config holds the S3 connection settings. Endpoint is only set for
// S3-compatible stores (minio in development).
type Config struct {
	Region        string
	Bucket        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PresignExpiry time.Duration
}

// Object describes a stored upload
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// NewStore builds the S3-backed blob store
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"Failed to load AWS configuration", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		uploader:  manager.NewUploader(client),
		bucket:    cfg.Bucket,
		expiry:    expiry,
	}, nil
}

// Put stores an upload under a fresh per-user key and returns the object
// with a presigned read URL.
func (s *Store) Put(ctx context.Context, userID, purpose, filename, contentType string, data []byte) (*Object, error) {
	key := objectKey(userID, purpose, filename)

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeBlobUploadFailed,
			fmt.Sprintf("Failed to upload %s", filename), err)
	}

	url, err := s.PresignGet(ctx, key)
	if err != nil {
		return nil, err
	}

	return &Object{
		Key:         key,
		URL:         url,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// Get fetches object bytes by key
func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", errors.NewStorageError(errors.ErrCodeNotFound,
			fmt.Sprintf("Object %s not found", key), err)
	}
	defer func() { _ = result.Body.Close() }()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, "", errors.NewStorageError(errors.ErrCodeStorageFailed,
			"Failed to read object body", err)
	}

	contentType := ""
	if result.ContentType != nil {
		contentType = *result.ContentType
	}
	return buf.Bytes(), contentType, nil
}

// Delete removes a stored object
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed,
			fmt.Sprintf("Failed to delete object %s", key), err)
	}
	return nil
}

// PresignGet returns a time-limited read URL for an object
func (s *Store) PresignGet(ctx context.Context, key string) (string, error) {
	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", errors.NewStorageError(errors.ErrCodeStorageFailed,
			fmt.Sprintf("Failed to presign object %s", key), err)
	}
	return result.URL, nil
}

// objectKey builds users/<id>/<purpose>/<uuid>-<filename>. The uuid keeps
// repeated uploads of the same filename from clobbering each other.
func objectKey(userID, purpose, filename string) string {
	return path.Join("users", userID, purpose,
		fmt.Sprintf("%s-%s", uuid.New().String(), path.Base(filename)))
}
