package remotestore

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sethvargo/go-retry"

	"github.com/vexport/vexport/internal/config"
	"github.com/vexport/vexport/internal/staging"
)

// S3Store implements Store over an S3-compatible endpoint.
type S3Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
	timeout       time.Duration
	retryAttempts int
	logger        *slog.Logger
}

// NewS3Store builds the adapter from configuration. Missing credentials do
// not fail construction; HealthCheck reports them before any operation runs.
func NewS3Store(log *slog.Logger, cfg config.StoreConfig) (*S3Store, error) {
	if log == nil {
		log = slog.Default()
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultStoreTimeout) * time.Second
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3Store{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: base,
		timeout:       timeout,
		retryAttempts: cfg.RetryAttempts,
		logger:        log.With(slog.String("service", "remotestore")),
	}, nil
}

// HealthCheck fails fast on missing credentials, then verifies the bucket is
// reachable within the network timeout.
func (s *S3Store) HealthCheck(ctx context.Context) error {
	creds, err := s.client.Options().Credentials.Retrieve(ctx)
	if err != nil || creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return fmt.Errorf("%w: credentials not configured", ErrUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Upload pushes the file at localPath into the category folder. The stored
// key is "<folder>/<basename>"; the basename was already made unique by the
// staging store.
func (s *S3Store) Upload(ctx context.Context, localPath string, category staging.Category) (RemoteAsset, error) {
	name := filepath.Base(localPath)
	key := path.Join(FolderFor(category), name)

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return RemoteAsset{}, fmt.Errorf("stat staged file: %w", err)
	}

	put := func(ctx context.Context) error {
		f, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("open staged file: %w", err)
		}
		defer f.Close()

		opCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		_, err = s.client.PutObject(opCtx, &s3.PutObjectInput{
			Bucket:        aws.String(s.bucket),
			Key:           aws.String(key),
			Body:          f,
			ContentType:   aws.String(contentType),
			ContentLength: aws.Int64(info.Size()),
		})
		return err
	}

	if err := s.withRetry(ctx, put); err != nil {
		return RemoteAsset{}, fmt.Errorf("%w: %v", ErrRejected, err)
	}

	s.logger.Info("uploaded asset",
		slog.String("key", key),
		slog.String("category", string(category)),
		slog.Int64("bytes", info.Size()))

	return RemoteAsset{
		ObjectID:  key,
		URL:       s.publicBaseURL + "/" + key,
		Size:      info.Size(),
		Kind:      KindFor(category),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Delete removes the object with the given key.
func (s *S3Store) Delete(ctx context.Context, objectID string) error {
	del := func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		_, err := s.client.DeleteObject(opCtx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(objectID),
		})
		return err
	}
	if err := s.withRetry(ctx, del); err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	s.logger.Info("deleted asset", slog.String("key", objectID))
	return nil
}

// List enumerates objects under prefix, at most limit entries.
func (s *S3Store) List(ctx context.Context, prefix string, limit int) ([]RemoteAsset, error) {
	if limit <= 0 {
		limit = config.DefaultListLimit
	}
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.client.ListObjectsV2(opCtx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}

	assets := make([]RemoteAsset, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		asset := RemoteAsset{
			ObjectID: *obj.Key,
			URL:      s.publicBaseURL + "/" + *obj.Key,
			Kind:     kindFromKey(*obj.Key),
		}
		if obj.Size != nil {
			asset.Size = *obj.Size
		}
		if obj.LastModified != nil {
			asset.CreatedAt = *obj.LastModified
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// withRetry runs op directly when retries are disabled, otherwise wraps it
// in bounded exponential backoff. Only remote upload/delete calls go through
// here; every other failure surfaces immediately.
func (s *S3Store) withRetry(ctx context.Context, op func(context.Context) error) error {
	if s.retryAttempts <= 0 {
		return op(ctx)
	}
	backoff := retry.WithMaxRetries(uint64(s.retryAttempts), retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func kindFromKey(key string) Kind {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(key), ".")) {
	case "jpg", "jpeg", "png", "webp", "gif":
		return KindImage
	case "mp4", "webm", "mov", "avi":
		return KindVideo
	default:
		return KindAuto
	}
}
