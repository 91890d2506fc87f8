// Package s3 implements the remote-storage adapter against an S3-compatible
// bucket (AWS or MinIO). The snapshot lives under a single fixed object key;
// the bearer token argument of the Storage contract is ignored because S3
// authenticates with the client's own credentials.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/lexora-app/lexora-sync/internal/remote"
	"github.com/lexora-app/lexora-sync/internal/syncerr"
)

// api is the subset of the S3 client the adapter needs; *s3.Client
// satisfies it and tests provide fakes.
type api interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) api {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Config holds bucket coordinates and credentials. Endpoint is optional and
// overrides the AWS endpoint for MinIO-style deployments.
type Config struct {
	Bucket    string
	Key       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Client is a stateless S3 adapter for the snapshot object.
type Client struct {
	api    api
	bucket string
	key    string
}

// New builds the adapter with static credentials, matching how the rest of
// the deployment provisions bucket access.
func New(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, syncerr.Wrap(syncerr.CodeAuthConfigMissing, "failed to load S3 credentials", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{api: client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

// classify maps SDK errors onto the taxonomy. S3 reports "not found" both as
// typed errors (NoSuchKey, NotFound) and as generic API errors with a 404
// status, so both shapes are checked.
func classify(err error, missingMsg string) error {
	var se *syncerr.Error
	if errors.As(err, &se) {
		return se
	}

	var noSuchKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return &syncerr.Error{Code: syncerr.CodeMissingFile, Message: missingMsg, Status: http.StatusNotFound, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return &syncerr.Error{Code: syncerr.CodeMissingFile, Message: missingMsg, Status: http.StatusNotFound, Err: err}
		case "ExpiredToken", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied":
			return &syncerr.Error{
				Code:      syncerr.CodeTokenExpired,
				Message:   "bucket credentials expired or are invalid",
				Retryable: true,
				Err:       err,
			}
		case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
			return &syncerr.Error{
				Code:      syncerr.CodeRemoteAPI,
				Message:   "bucket request failed: " + apiErr.ErrorCode(),
				Retryable: true,
				Err:       err,
			}
		default:
			return &syncerr.Error{
				Code:    syncerr.CodeRemoteAPI,
				Message: "bucket request failed: " + apiErr.ErrorCode(),
				Err:     err,
			}
		}
	}

	return &syncerr.Error{
		Code:      syncerr.CodeNetworkFailure,
		Message:   "network failure while calling the bucket",
		Retryable: true,
		Err:       err,
	}
}

func (c *Client) metadata(modified *time.Time) remote.FileMetadata {
	md := remote.FileMetadata{ID: c.key, Name: c.key}
	if modified != nil {
		md.ModifiedTime = modified.UTC().Format(time.RFC3339Nano)
	}
	return md
}

// Find checks whether the snapshot object exists. The bearer token is
// unused; credentials live in the client.
func (c *Client) Find(ctx context.Context, _ string) (*remote.FileMetadata, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key),
	})
	if err != nil {
		classified := classify(err, "sync object was not found")
		if syncerr.HasCode(classified, syncerr.CodeMissingFile) {
			return nil, nil
		}
		return nil, classified
	}
	md := c.metadata(out.LastModified)
	return &md, nil
}

// Download fetches the snapshot object. The preferred id is irrelevant for
// a fixed-key backend, so any hint simply resolves to the key.
func (c *Client) Download(ctx context.Context, _ string, _ string) (*remote.Payload, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key),
	})
	if err != nil {
		return nil, classify(err, "sync object was not found")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &syncerr.Error{
			Code:      syncerr.CodeNetworkFailure,
			Message:   "network failure while downloading the sync object",
			Retryable: true,
			Err:       err,
		}
	}

	return &remote.Payload{File: c.metadata(out.LastModified), JSON: data}, nil
}

// Upload writes the snapshot object. Created reports whether the object did
// not exist before the write, mirroring the Drive adapter's contract.
func (c *Client) Upload(ctx context.Context, token string, payload []byte, existingFileID string) (*remote.UploadResult, error) {
	created := existingFileID == ""
	if created {
		// The id hint is empty on bootstrap; double-check against the
		// bucket so re-uploads after a lost hint do not misreport.
		if md, err := c.Find(ctx, token); err != nil {
			return nil, err
		} else if md != nil {
			created = false
		}
	}

	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, classify(err, "sync object was not found")
	}

	now := time.Now()
	return &remote.UploadResult{File: c.metadata(&now), Created: created}, nil
}
