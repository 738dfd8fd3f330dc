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

package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"google.golang.org/api/googleapi"
)

// Row status values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// MetricValue is one repeated metric entry of a RecordRow.
type MetricValue struct {
	Name  string  `bigquery:"name"`
	Value float64 `bigquery:"value"`
}

// RecordRow is the BigQuery shape of a model.ProcessingRecord.
type RecordRow struct {
	RunID      string        `bigquery:"run_id"`
	Model      string        `bigquery:"model"`
	Path       string        `bigquery:"path"`
	Name       string        `bigquery:"name"`
	Kind       string        `bigquery:"kind"`
	Status     string        `bigquery:"status"`
	Category   string        `bigquery:"category"`
	Message    string        `bigquery:"message"`
	Metrics    []MetricValue `bigquery:"metrics"`
	Attempts   int           `bigquery:"attempts"`
	Converted  bool          `bigquery:"converted"`
	RecordedAt time.Time     `bigquery:"recorded_at"`
}

// NewRecordRows converts records into rows. Metrics are sorted by name.
func NewRecordRows(runID, modelName string, recordedAt time.Time, records []*model.ProcessingRecord) []*RecordRow {
	rows := make([]*RecordRow, 0, len(records))
	for _, r := range records {
		row := &RecordRow{
			RunID:      runID,
			Model:      modelName,
			Path:       r.SourcePath,
			Name:       r.DisplayName,
			Kind:       string(r.Kind),
			Attempts:   r.Attempts,
			Converted:  r.Converted,
			RecordedAt: recordedAt.UTC(),
		}
		if r.Outcome.Succeeded() {
			row.Status = StatusSucceeded
			for k, v := range r.Outcome.Metrics {
				row.Metrics = append(row.Metrics, MetricValue{Name: k, Value: v})
			}
			sort.Slice(row.Metrics, func(i, j int) bool { return row.Metrics[i].Name < row.Metrics[j].Name })
		} else {
			row.Status = StatusFailed
			row.Category = string(r.Outcome.Failure.Category)
			row.Message = r.Outcome.Failure.Message
		}
		rows = append(rows, row)
	}
	return rows
}

// RowInserter is the part of *bigquery.Inserter the sink uses.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// BigQueryRecordSink streams processing records into a BigQuery table.
type BigQueryRecordSink struct {
	inserter RowInserter
	table    *bigquery.Table
	now      func() time.Time
}

// NewBigQueryRecordSink creates a sink writing to dataset.table.
func NewBigQueryRecordSink(client *bigquery.Client, dataset, table string) *BigQueryRecordSink {
	t := client.Dataset(dataset).Table(table)
	return &BigQueryRecordSink{inserter: t.Inserter(), table: t, now: time.Now}
}

// NewRecordSinkWithInserter creates a sink over an arbitrary inserter. The
// table is not managed.
func NewRecordSinkWithInserter(inserter RowInserter, now func() time.Time) *BigQueryRecordSink {
	return &BigQueryRecordSink{inserter: inserter, now: now}
}

// EnsureTable creates the destination table with the RecordRow schema when it
// does not exist yet.
func (s *BigQueryRecordSink) EnsureTable(ctx context.Context) error {
	if s.table == nil {
		return nil
	}
	_, err := s.table.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("bigquery table metadata: %w", err)
	}
	schema, err := bigquery.InferSchema(RecordRow{})
	if err != nil {
		return fmt.Errorf("bigquery schema: %w", err)
	}
	if err := s.table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return fmt.Errorf("bigquery create table: %w", err)
	}
	slog.Info("created bigquery table", "table", s.table.FullyQualifiedName())
	return nil
}

// Persist inserts one row per record.
//
// Inputs:
//   - ctx: request context.
//   - runID: identifier shared by every row of the run.
//   - modelName: the profile that produced the records.
//   - records: the run's processing records.
//
// Outputs:
//   - error: the insert failure, if any.
func (s *BigQueryRecordSink) Persist(ctx context.Context, runID, modelName string, records []*model.ProcessingRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := NewRecordRows(runID, modelName, s.now(), records)
	if err := s.inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("bigquery insert of %d rows for run %s failed: %w", len(rows), runID, err)
	}
	slog.Info("persisted processing records to bigquery", "run_id", runID, "rows", len(rows))
	return nil
}
