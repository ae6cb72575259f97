package checks

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"workspace-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// CheckArchive returns what is missing for report archiving: the bucket
// itself, or the report prefix inside it.
func CheckArchive(ctx context.Context, client storage.Client, bucket, prefix string) ([]string, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return []string{bucket}, nil
	}

	if prefix == "" {
		return nil, nil
	}
	folderPath := folder(prefix)

	opts := minio.ListObjectsOptions{
		Prefix:    folderPath,
		Recursive: false,
		MaxKeys:   1,
	}
	for range client.ListObjects(ctx, bucket, opts) {
		return nil, nil
	}

	return []string{folderPath}, nil
}

// FixArchive creates the bucket and the report prefix.
func FixArchive(ctx context.Context, client storage.Client, bucket, prefix string, logger *zap.Logger, missing []string) error {
	for _, m := range missing {
		if m == bucket {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				logger.Error("Failed to create bucket", zap.String("bucket", bucket), zap.Error(err))
				return err
			}
			logger.Info("Created missing bucket", zap.String("bucket", bucket))
			if prefix == "" {
				continue
			}
			m = folder(prefix)
		}

		_, err := client.PutObject(ctx, bucket, m, bytes.NewReader([]byte{}), 0, minio.PutObjectOptions{})
		if err != nil {
			logger.Error("Failed to create folder", zap.String("folder", m), zap.Error(err))
			return err
		}
		logger.Info("Created missing folder", zap.String("folder", m))
	}
	return nil
}

func folder(prefix string) string {
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}
