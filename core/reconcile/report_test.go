package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"workspace-sync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleReport() *RunReport {
	return &RunReport{
		RunID:     "run-1",
		StartedAt: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Tables:    []TableReport{{Table: "CRM_CONTACTS", Status: StatusWritten, Inserted: 2}},
	}
}

func objectChan(keys ...string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		ch <- minio.ObjectInfo{Key: k}
	}
	close(ch)
	return ch
}

func TestReportKey(t *testing.T) {
	assert.Equal(t, "reports/20240501T123000Z-run-1.json", ReportKey("reports", sampleReport()))
	assert.Equal(t, "20240501T123000Z-run-1.json", ReportKey("", sampleReport()))
}

func TestArchiveReport(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "sync-reports").Return(false, nil)
	client.On("MakeBucket", mock.Anything, "sync-reports", mock.Anything).Return(nil)

	var uploaded []byte
	client.On("PutObject", mock.Anything, "sync-reports", "reports/20240501T123000Z-run-1.json", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			uploaded, _ = io.ReadAll(args.Get(3).(io.Reader))
		}).
		Return(minio.UploadInfo{}, nil)

	key, err := ArchiveReport(context.Background(), client, "sync-reports", "reports", sampleReport())
	require.NoError(t, err)
	assert.Equal(t, "reports/20240501T123000Z-run-1.json", key)

	var decoded RunReport
	require.NoError(t, json.Unmarshal(uploaded, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, 2, decoded.Tables[0].Inserted)
	client.AssertExpectations(t)
}

func TestArchiveReport_UploadFailure(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "b").Return(true, nil)
	client.On("PutObject", mock.Anything, "b", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("denied"))

	_, err := ArchiveReport(context.Background(), client, "b", "reports", sampleReport())
	assert.ErrorContains(t, err, "denied")
	client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func TestListReports_NewestFirst(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "b", minio.ListObjectsOptions{Prefix: "reports/", Recursive: true}).
		Return(objectChan("reports/20240101T000000Z-a.json", "reports/notes.txt", "reports/20240301T000000Z-c.json"))

	keys, err := ListReports(context.Background(), client, "b", "reports")
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/20240301T000000Z-c.json", "reports/20240101T000000Z-a.json"}, keys)
}

func TestGetReport(t *testing.T) {
	data, err := json.Marshal(sampleReport())
	require.NoError(t, err)

	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, "b", "k.json", mock.Anything).Return(io.NopCloser(bytes.NewReader(data)), nil)

	r, err := GetReport(context.Background(), client, "b", "k.json")
	require.NoError(t, err)
	assert.Equal(t, "run-1", r.RunID)
}

func TestPruneReports(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "b", mock.Anything).
		Return(objectChan("r/3.json", "r/1.json", "r/2.json"))

	var removed []string
	done := make(chan minio.RemoveObjectError)
	close(done)
	client.On("RemoveObjects", mock.Anything, "b", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			for obj := range args.Get(2).(<-chan minio.ObjectInfo) {
				removed = append(removed, obj.Key)
			}
		}).
		Return((<-chan minio.RemoveObjectError)(done))

	n, err := PruneReports(context.Background(), client, "b", "r", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"r/2.json", "r/1.json"}, removed)
}
