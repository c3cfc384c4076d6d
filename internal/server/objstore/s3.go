// Package objstore wraps the S3-compatible backend that stores voucher
// attachments. It is constructed once at startup and injected wherever an
// upload is needed; using the zero value fails fast.
package objstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/transdovic/backoffice/internal/common"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Config holds the object-storage settings.
type Config struct {
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	BaseEndpoint  string
	PublicBaseURL string
}

// Client is the voucher storage collaborator.
type Client struct {
	cfg    Config
	s3     *s3.Client
	inited bool
}

// New builds a Client from cfg and establishes the S3 client eagerly so a
// misconfiguration surfaces at startup, not on the first upload.
func New(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("object storage config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{cfg: cfg, s3: client, inited: true}, nil
}

// Upload stores body under key in the configured bucket.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	if c == nil || !c.inited {
		return common.ErrNotInitialized
	}

	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return common.NewRemoteError(fmt.Sprintf("upload %s: %v", key, err), err)
	}
	return nil
}

// PublicURL returns the stable public URL for a stored object.
func (c *Client) PublicURL(key string) string {
	base := strings.TrimSuffix(c.cfg.PublicBaseURL, "/")
	return fmt.Sprintf("%s/%s/%s", base, c.cfg.Bucket, key)
}

// PresignedGetURL returns a short-lived signed GET URL for key, for
// vouchers stored in a private bucket.
func (c *Client) PresignedGetURL(ctx context.Context, key string) (string, error) {
	if c == nil || !c.inited {
		return "", common.ErrNotInitialized
	}

	pc := s3.NewPresignClient(c.s3)
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", common.NewRemoteError(fmt.Sprintf("presign %s: %v", key, err), err)
	}
	return req.URL, nil
}
