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

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/commands"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/cor"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// Runner pushes every discovered file through the workflow, one at a time,
// and turns each terminal state into exactly one ProcessingRecord.
type Runner struct {
	workflow cor.Command
}

func NewRunner(workflow cor.Command) *Runner {
	return &Runner{workflow: workflow}
}

// Run processes files in order. The returned records match files one to one.
// The only error is an interrupted run, in which case no records are returned.
func (r *Runner) Run(ctx context.Context, files []*model.MediaFile) ([]*model.ProcessingRecord, error) {
	records := make([]*model.ProcessingRecord, 0, len(files))
	for i, media := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted before %s: %w", media.Path, err)
		}
		slog.InfoContext(ctx, "processing file", "index", i+1, "total", len(files), "file", media.Path, "kind", media.Kind)

		record := r.ProcessFile(ctx, media)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted while processing %s: %w", media.Path, err)
		}
		if record.Outcome.Succeeded() {
			slog.InfoContext(ctx, "file processed", "file", media.Path, "attempts", record.Attempts, "converted", record.Converted)
		} else {
			slog.WarnContext(ctx, "file failed", "file", media.Path,
				"category", record.Outcome.Failure.Category, "error", record.Outcome.Failure.Message)
		}
		records = append(records, record)
	}
	return records, nil
}

// ProcessFile runs the workflow for a single file. Temporary assets created
// for the file are removed before it returns, whatever the outcome.
func (r *Runner) ProcessFile(ctx context.Context, media *model.MediaFile) *model.ProcessingRecord {
	chCtx := cor.NewBaseContext()
	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, media)

	r.workflow.Execute(chCtx)
	record := BuildRecord(media, chCtx)

	if err := chCtx.Close(); err != nil {
		slog.WarnContext(ctx, "temporary files left behind", "file", media.Path, "error", err)
	}
	return record
}

// BuildRecord converts the terminal state of a chain context into a record.
func BuildRecord(media *model.MediaFile, chCtx cor.Context) *model.ProcessingRecord {
	var record *model.ProcessingRecord
	if chCtx.HasErrors() {
		stage := firstStageError(chCtx.GetErrors())
		record = model.NewFailureRecord(media, stage.Category, stage.Message)
	} else if metrics, ok := chCtx.Get(commands.MetricsParam).(map[string]float64); ok && len(metrics) > 0 {
		record = model.NewSuccessRecord(media, metrics)
	} else {
		record = model.NewFailureRecord(media, model.CategoryNoPrediction, commands.MsgNoPrediction)
	}
	if m := commands.GetMedia(chCtx); m != nil {
		record.Kind = m.Kind
	}
	record.Attempts, _ = chCtx.Get(commands.AttemptsParam).(int)
	record.Converted = commands.IsConverted(chCtx)
	return record
}

// firstStageError picks the error to report. Stage errors win over anything
// else; ties are broken by command name so the choice is deterministic.
func firstStageError(errs map[string]error) *model.StageError {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var stage *model.StageError
		if errors.As(errs[k], &stage) {
			return stage
		}
	}
	return model.NewStageError(model.CategoryInferenceFailed, "", errs[keys[0]])
}

// NewScratchDir creates the run-scoped directory every temporary asset is
// written to. The returned function removes it and anything left inside.
func NewScratchDir(parent string) (string, func(), error) {
	dir, err := os.MkdirTemp(parent, "audioqc-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			slog.Warn("failed to remove scratch directory", "dir", dir, "error", err)
		}
	}, nil
}
