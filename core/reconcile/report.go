package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"workspace-sync/core/storage"

	"github.com/minio/minio-go/v7"
)

// ReportKey returns the object name a report is archived under.
func ReportKey(prefix string, r *RunReport) string {
	name := fmt.Sprintf("%s-%s.json", r.StartedAt.UTC().Format("20060102T150405Z"), r.RunID)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// ArchiveReport stores a report as JSON in bucket, creating the bucket if needed.
// It returns the object name.
func ArchiveReport(ctx context.Context, client storage.Client, bucket, prefix string, r *RunReport) (string, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return "", fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return "", fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	key := ReportKey(prefix, r)
	_, err = client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload report %s: %w", key, err)
	}

	return key, nil
}

// ListReports returns the archived report names under prefix, newest first.
func ListReports(ctx context.Context, client storage.Client, bucket, prefix string) ([]string, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var keys []string
	for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, ".json") {
			keys = append(keys, obj.Key)
		}
	}

	// Names start with the UTC start time.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys, nil
}

// GetReport loads an archived report.
func GetReport(ctx context.Context, client storage.Client, bucket, key string) (*RunReport, error) {
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", key, err)
	}
	defer obj.Close()

	var r RunReport
	if err := json.NewDecoder(obj).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", key, err)
	}
	return &r, nil
}

// PruneReports removes all but the newest keep reports and returns how many were removed.
func PruneReports(ctx context.Context, client storage.Client, bucket, prefix string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	keys, err := ListReports(ctx, client, bucket, prefix)
	if err != nil {
		return 0, err
	}
	if len(keys) <= keep {
		return 0, nil
	}

	stale := keys[keep:]
	objects := make(chan minio.ObjectInfo, len(stale))
	for _, k := range stale {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	for rerr := range client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return 0, fmt.Errorf("failed to remove report %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return len(stale), nil
}
