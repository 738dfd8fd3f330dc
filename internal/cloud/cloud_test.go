// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-audio-quality/internal/cloud"
	"github.com/jaycherian/gcp-go-audio-quality/internal/config"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGCSURI(t *testing.T) {
	obj, err := cloud.ParseGCSURI("gs://reports/runs/2024/out.txt")
	require.NoError(t, err)
	assert.Equal(t, "reports", obj.Bucket)
	assert.Equal(t, "runs/2024/out.txt", obj.Name)
	assert.Equal(t, "gs://reports/runs/2024/out.txt", obj.String())

	for _, bad := range []string{"reports/out.txt", "gs://", "gs://bucket", "gs://bucket/", "gs:///out.txt", "gs://bucket/dir/"} {
		_, err := cloud.ParseGCSURI(bad)
		assert.ErrorIs(t, err, cloud.ErrInvalidGCSURI, bad)
	}
}

func TestIsGCSURI(t *testing.T) {
	assert.True(t, cloud.IsGCSURI("gs://b/o"))
	assert.False(t, cloud.IsGCSURI("/tmp/report.txt"))
}

func TestClientOptions(t *testing.T) {
	assert.Empty(t, cloud.ClientOptions(config.Cloud{}))
	assert.Len(t, cloud.ClientOptions(config.Cloud{CredentialsFile: "/etc/key.json"}), 1)
}

func TestNoClientsRequested(t *testing.T) {
	clients, err := cloud.NewCloudServiceClients(context.Background(), config.NewConfig(), cloud.ClientNeeds{})
	require.NoError(t, err)
	assert.Nil(t, clients.StorageClient)
	assert.Nil(t, clients.BigQueryClient)
	assert.NoError(t, clients.Close())
}

func TestBigQueryNeedsProject(t *testing.T) {
	_, err := cloud.NewCloudServiceClients(context.Background(), config.NewConfig(), cloud.ClientNeeds{BigQuery: true})
	assert.Error(t, err)
}

func sampleRecords() []*model.ProcessingRecord {
	ok := model.NewSuccessRecord(model.NewMediaFile("in/a.wav", model.KindAudio), map[string]float64{"PQ": 7.5, "CE": 6.1})
	ok.Attempts = 1
	bad := model.NewFailureRecord(model.NewMediaFile("in/b.mkv", model.KindVideo), model.CategoryTranscodeFailed, "Failed to extract audio: boom")
	return []*model.ProcessingRecord{ok, bad}
}

func TestNewRecordRows(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := cloud.NewRecordRows("run-1", "aesthetics", at, sampleRecords())
	require.Len(t, rows, 2)

	assert.Equal(t, cloud.StatusSucceeded, rows[0].Status)
	assert.Equal(t, []cloud.MetricValue{{Name: "CE", Value: 6.1}, {Name: "PQ", Value: 7.5}}, rows[0].Metrics)
	assert.Equal(t, 1, rows[0].Attempts)
	assert.Equal(t, "a.wav", rows[0].Name)
	assert.Equal(t, at, rows[0].RecordedAt)

	assert.Equal(t, cloud.StatusFailed, rows[1].Status)
	assert.Equal(t, "transcode_failed", rows[1].Category)
	assert.Equal(t, "Failed to extract audio: boom", rows[1].Message)
	assert.Equal(t, "video", rows[1].Kind)
	assert.Empty(t, rows[1].Metrics)
}

type fakeInserter struct {
	rows []*cloud.RecordRow
	err  error
}

func (f *fakeInserter) Put(_ context.Context, src interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, src.([]*cloud.RecordRow)...)
	return nil
}

func TestPersist(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ins := &fakeInserter{}
	sink := cloud.NewRecordSinkWithInserter(ins, func() time.Time { return at })

	require.NoError(t, sink.EnsureTable(context.Background()))
	require.NoError(t, sink.Persist(context.Background(), "run-2", "squim", sampleRecords()))
	require.Len(t, ins.rows, 2)
	assert.Equal(t, "run-2", ins.rows[1].RunID)
	assert.Equal(t, "squim", ins.rows[1].Model)

	require.NoError(t, sink.Persist(context.Background(), "run-3", "squim", nil))
	assert.Len(t, ins.rows, 2)

	ins.err = errors.New("quota exceeded")
	err := sink.Persist(context.Background(), "run-4", "squim", sampleRecords())
	assert.ErrorContains(t, err, "quota exceeded")
}
