// pkg/storage/s3.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/David-Botos/qguide-analysis/pkg/config"
)

// PutObjectAPI is the part of the S3 client the uploader needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies finished run outputs to a bucket
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3Uploader builds an S3 client from cfg. A non-empty endpoint points
// the client at an S3 compatible server such as MinIO.
func NewS3Uploader(ctx context.Context, cfg *config.S3Config, logger *zap.Logger) (*S3Uploader, error) {
	if cfg == nil || cfg.Bucket == "" {
		return nil, errors.New("S3 bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "http://" + endpoint
		}
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint, HostnameImmutable: true}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewS3UploaderWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3UploaderWithClient wraps an existing client
func NewS3UploaderWithClient(client PutObjectAPI, bucket, prefix string, logger *zap.Logger) *S3Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Uploader{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.Named("s3-uploader"),
	}
}

// Key returns the object key of a run output file
func (u *S3Uploader) Key(runID, name string) string {
	if u.prefix == "" {
		return path.Join(runID, name)
	}
	return path.Join(u.prefix, runID, name)
}

// UploadFiles uploads the named files from dir and returns their s3:// refs
func (u *S3Uploader) UploadFiles(ctx context.Context, runID, dir string, names []string) ([]string, error) {
	if runID == "" {
		return nil, errors.New("run id is required")
	}

	refs := make([]string, 0, len(names))
	for _, name := range names {
		ref, err := u.upload(ctx, runID, filepath.Join(dir, name))
		if err != nil {
			return refs, err
		}
		refs = append(refs, ref)
	}

	u.logger.Info("Uploaded outputs",
		zap.String("bucket", u.bucket),
		zap.String("runId", runID),
		zap.Int("files", len(refs)))
	return refs, nil
}

func (u *S3Uploader) upload(ctx context.Context, runID, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	key := u.Key(runID, filepath.Base(file))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(file)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	u.logger.Debug("Uploaded object", zap.String("key", key))
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "text/plain"
	}
}
