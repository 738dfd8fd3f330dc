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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-audio-quality/internal/cloud"
	"github.com/jaycherian/gcp-go-audio-quality/internal/config"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/discovery"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/inference"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/transcode"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/workflow"
)

// StateManager holds the collaborators of one run.
type StateManager struct {
	config       *config.Config
	modelName    string
	profile      *model.Profile
	classifier   *discovery.Classifier
	transcoder   *transcode.Transcoder
	adapter      inference.Adapter
	formatErrors *inference.FormatErrorClassifier
	cloud        *cloud.ServiceClients
}

// GetConfig loads the layered configuration and applies the command line
// overrides.
func GetConfig(opts *options) (*config.Config, error) {
	prefix, runtime := config.ResolveLocation(opts.configPrefix, opts.runtime)
	cfg := config.NewConfig()
	if err := config.LoadConfig(prefix, runtime, cfg); err != nil {
		return nil, err
	}
	if opts.model != "" {
		cfg.Application.Model = opts.model
	}
	if opts.device != "" {
		cfg.Application.Device = opts.device
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// InitState builds the profile, the transcoder and the model adapter, and
// creates the cloud clients the run needs. The adapter is not initialized
// here.
func InitState(ctx context.Context, cfg *config.Config, opts *options) (*StateManager, error) {
	name := cfg.Application.Model
	mc, ok := cfg.ModelConfig(name)
	if !ok {
		return nil, fmt.Errorf("%w: no configuration for model %q (configured: %v)", model.ErrModelInitFailed, name, cfg.ModelNames())
	}
	profile, err := inference.ResolveProfile(name, mc, cfg.Transcoder.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrModelInitFailed, err)
	}
	adapter, err := inference.NewAdapter(name, mc, profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrModelInitFailed, err)
	}

	state := &StateManager{
		config:       cfg,
		modelName:    name,
		profile:      profile,
		classifier:   discovery.NewClassifierFromConfig(cfg.Media),
		adapter:      adapter,
		formatErrors: inference.ClassifierFor(mc),
	}

	needs := cloud.ClientNeeds{
		Storage:  cloud.IsGCSURI(opts.output),
		BigQuery: cfg.Sinks.BigQuery.Enabled,
	}
	if needs.Any() {
		clients, err := cloud.NewCloudServiceClients(ctx, cfg, needs)
		if err != nil {
			return nil, err
		}
		state.cloud = clients
	}
	return state, nil
}

// Close releases the cloud clients.
func (s *StateManager) Close() {
	if s.cloud == nil {
		return
	}
	if err := s.cloud.Close(); err != nil {
		slog.Warn("failed to close cloud clients", "error", err)
	}
}

// InitModel runs the adapter's startup health check.
func (s *StateManager) InitModel(ctx context.Context) error {
	if err := s.adapter.Init(ctx); err != nil {
		if errors.Is(err, model.ErrModelInitFailed) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", model.ErrModelInitFailed, s.modelName, err)
	}
	slog.InfoContext(ctx, "model ready", "model", s.modelName, "adapter", s.adapter.Name())
	return nil
}

// NewWorkflow builds the per-file chain writing temporary assets to scratchDir.
func (s *StateManager) NewWorkflow(scratchDir string) *workflow.MediaQualityWorkflow {
	s.transcoder = transcode.NewTranscoder(s.config.Transcoder, scratchDir)
	if err := s.transcoder.Available(); err != nil {
		slog.Warn("transcoder not available; video and conversion fallbacks will fail", "command", s.config.Transcoder.Command, "error", err)
	}
	return workflow.NewMediaQualityWorkflow(workflow.Options{
		Classifier:   s.classifier,
		Transcoder:   s.transcoder,
		Adapter:      s.adapter,
		Profile:      s.profile,
		FormatErrors: s.formatErrors,
		Device:       s.config.Application.Device,
		ScratchDir:   scratchDir,
	})
}

// PersistRecords streams the records to BigQuery when the sink is enabled.
// Sink failures are logged; the report remains the run's result.
func (s *StateManager) PersistRecords(ctx context.Context, runID string, records []*model.ProcessingRecord) {
	if !s.config.Sinks.BigQuery.Enabled || s.cloud == nil || s.cloud.BigQueryClient == nil {
		return
	}
	bq := s.config.Sinks.BigQuery
	sink := cloud.NewBigQueryRecordSink(s.cloud.BigQueryClient, bq.DatasetName, bq.Table)
	err := sink.EnsureTable(ctx)
	if err == nil {
		err = sink.Persist(ctx, runID, s.modelName, records)
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to persist records to bigquery", "run_id", runID, "error", err)
	}
}
