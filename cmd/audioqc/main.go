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

// Command audioqc runs an audio quality model over every audio and video
// file under a directory and writes a plain-text report.
//
//	audioqc [-model name] [-device d] [-config dir] [-runtime name] <input_directory> <output_file>
//
// The output file may be a gs://bucket/object URI. The process exits 0 once
// a report is written, even when individual files failed, and 1 otherwise.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-audio-quality/internal/cloud"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/discovery"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/report"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/workflow"
	"github.com/jaycherian/gcp-go-audio-quality/internal/telemetry"
)

// ErrUsage marks command line errors.
var ErrUsage = errors.New("usage error")

type options struct {
	model        string
	device       string
	configPrefix string
	runtime      string
	input        string
	output       string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("audioqc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.model, "model", "", "model profile to run (aesthetics, squim, utmos); defaults to application.model")
	fs.StringVar(&opts.device, "device", "", "compute device passed to the model; defaults to application.device")
	fs.StringVar(&opts.configPrefix, "config", "", "configuration directory (env AUDIOQC_CONFIG_PREFIX, default configs)")
	fs.StringVar(&opts.runtime, "runtime", "", "configuration runtime overlay (env AUDIOQC_RUNTIME, default local)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: audioqc [flags] <input_directory> <output_file>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return nil, fmt.Errorf("%w: expected <input_directory> <output_file>, got %d arguments", ErrUsage, fs.NArg())
	}
	opts.input, opts.output = fs.Arg(0), fs.Arg(1)
	if cloud.IsGCSURI(opts.output) {
		if _, err := cloud.ParseGCSURI(opts.output); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUsage, err)
		}
	}
	return opts, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one batch. Any returned error maps to exit code 1.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := GetConfig(opts)
	if err != nil {
		return err
	}

	logCloser, err := telemetry.SetupLogging(cfg)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	shutdown, err := telemetry.SetupOpenTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to setup OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	runID := uuid.NewString()
	slog.InfoContext(ctx, "starting run", "run_id", runID, "model", cfg.Application.Model,
		"device", cfg.Application.Device, "input", opts.input, "output", opts.output)

	classifier := discovery.NewClassifierFromConfig(cfg.Media)
	files, err := discovery.Discover(opts.input, classifier, cfg.Media.Recursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w in %s", model.ErrNoMediaFound, opts.input)
	}
	slog.InfoContext(ctx, "discovered media", "count", len(files))

	state, err := InitState(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer state.Close()

	if err := state.InitModel(ctx); err != nil {
		return err
	}

	scratchDir, cleanup, err := workflow.NewScratchDir(cfg.Media.TempDir)
	if err != nil {
		return err
	}
	defer cleanup()

	runner := workflow.NewRunner(state.NewWorkflow(scratchDir))
	records, err := runner.Run(ctx, files)
	if err != nil {
		return err
	}

	if err := writeReport(ctx, state, opts.output, scratchDir, records); err != nil {
		return err
	}
	state.PersistRecords(ctx, runID, records)

	failed := 0
	for _, r := range records {
		if !r.Outcome.Succeeded() {
			failed++
		}
	}
	slog.InfoContext(ctx, "run complete", "run_id", runID, "files", len(records), "failed", failed)
	fmt.Fprintf(stdout, "Results saved to %s\n", opts.output)
	return nil
}

// writeReport writes the report locally, or renders it into the scratch
// directory and uploads it for gs:// destinations.
func writeReport(ctx context.Context, state *StateManager, output, scratchDir string, records []*model.ProcessingRecord) error {
	if !cloud.IsGCSURI(output) {
		return report.WriteFile(output, state.profile, records)
	}
	obj, err := cloud.ParseGCSURI(output)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrReportWriteFailed, err)
	}
	local := filepath.Join(scratchDir, "report.txt")
	if err := report.WriteFile(local, state.profile, records); err != nil {
		return err
	}
	if err := cloud.NewReportUploader(state.cloud.StorageClient).Upload(ctx, local, obj); err != nil {
		return fmt.Errorf("%w: %w", model.ErrReportWriteFailed, err)
	}
	return nil
}
