// Package s3 implements storage.AttachmentStorage on Amazon S3 or an
// S3-compatible endpoint.
package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/upb/todo-app/storage"
	"go.uber.org/zap"
)

// DefaultURLExpiration is how long an upload URL stays valid
const DefaultURLExpiration = 300 * time.Second

var _ storage.AttachmentStorage = (*Storage)(nil)

// Config holds the bucket location and optional credentials
type Config struct {
	Bucket string
	Region string
	// Endpoint overrides the S3 endpoint; path-style addressing is used with it
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	URLExpiration   time.Duration
}

// Storage stores attachments in a single bucket
type Storage struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	endpoint   string
	expiration time.Duration
	logger     *zap.Logger
}

// New creates a Storage from cfg, loading the default AWS credential chain
// unless static credentials are given.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("attachments bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.URLExpiration <= 0 {
		cfg.URLExpiration = DefaultURLExpiration
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken,
		)
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	var clientOpts []func(*s3.Options)
	if endpoint != "" {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	return &Storage{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		endpoint:   endpoint,
		expiration: cfg.URLExpiration,
		logger:     logger,
	}, nil
}

// GetUploadURL presigns a PUT of attachmentID
func (s *Storage) GetUploadURL(ctx context.Context, attachmentID string) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(attachmentID),
	}, s3.WithPresignExpires(s.expiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", attachmentID, err)
	}

	s.logger.Debug("upload URL issued",
		zap.String("attachment_id", attachmentID),
		zap.Duration("expires_in", s.expiration))
	return req.URL, nil
}

// GetDownloadURL returns the object URL of attachmentID
func (s *Storage) GetDownloadURL(attachmentID string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, attachmentID)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, attachmentID)
}

// DeleteAttachment removes the object for attachmentID
func (s *Storage) DeleteAttachment(ctx context.Context, attachmentID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(attachmentID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete attachment %s: %w", attachmentID, err)
	}

	s.logger.Debug("attachment deleted", zap.String("attachment_id", attachmentID))
	return nil
}
