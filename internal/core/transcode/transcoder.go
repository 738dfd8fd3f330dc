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

// Package transcode wraps the external ffmpeg process that turns arbitrary
// audio or video into mono 16-bit PCM WAV at a fixed sample rate. The
// process is opaque: success is exit status zero plus a non-empty output
// file, and stderr is only ever logged.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-audio-quality/internal/config"
)

// Intent selects the argument template.
type Intent int

const (
	// IntentExtractFromVideo drops the video stream.
	IntentExtractFromVideo Intent = iota
	// IntentReencodeAudio re-encodes an audio file the model could not read.
	IntentReencodeAudio
)

func (i Intent) String() string {
	switch i {
	case IntentExtractFromVideo:
		return "extract"
	case IntentReencodeAudio:
		return "reencode"
	default:
		return "unknown"
	}
}

// Transcoder runs ffmpeg with a fixed argument template.
type Transcoder struct {
	command    string
	sampleRate int
	channels   int
	codec      string
	tempDir    string
}

// NewTranscoder creates a Transcoder writing its outputs into tempDir.
func NewTranscoder(cfg config.Transcoder, tempDir string) *Transcoder {
	return &Transcoder{
		command:    cfg.Command,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		codec:      cfg.Codec,
		tempDir:    tempDir,
	}
}

// WithSampleRate returns a copy producing the given sample rate. Non-positive
// rates leave the copy unchanged.
func (t *Transcoder) WithSampleRate(rate int) *Transcoder {
	out := *t
	if rate > 0 {
		out.sampleRate = rate
	}
	return &out
}

// SampleRate returns the output sample rate.
func (t *Transcoder) SampleRate() int {
	return t.sampleRate
}

// Available reports whether the ffmpeg executable can be resolved.
func (t *Transcoder) Available() error {
	_, err := exec.LookPath(t.command)
	return err
}

// Args returns the ffmpeg arguments (without the executable) for one run.
func (t *Transcoder) Args(input, output string, intent Intent) []string {
	args := []string{"-i", input}
	if intent == IntentExtractFromVideo {
		args = append(args, "-vn")
	}
	return append(args,
		"-acodec", t.codec,
		"-ar", strconv.Itoa(t.sampleRate),
		"-ac", strconv.Itoa(t.channels),
		"-y", output,
	)
}

// OutputPath returns a fresh, unique WAV path in the temp directory.
func (t *Transcoder) OutputPath(input string, intent Intent) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(t.tempDir, fmt.Sprintf("%s-%s-%s.wav", stem, intent, uuid.NewString()))
}

// Transcode converts input to a PCM WAV file and returns its path. On success
// the caller owns the file and must delete it. On failure any partial output
// has already been removed.
//
// Inputs:
//   - ctx: Cancelling ctx kills the ffmpeg process.
//   - input: The source media path.
//   - intent: Extraction from video or re-encoding of audio.
//
// Outputs:
//   - string: Path of the newly created WAV file.
//   - error: A *Error wrapping model.ErrTranscodeFailed.
func (t *Transcoder) Transcode(ctx context.Context, input string, intent Intent) (string, error) {
	output := t.OutputPath(input, intent)
	args := t.Args(input, output, intent)

	cmd := exec.CommandContext(ctx, t.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.DebugContext(ctx, "running transcoder", "command", t.command, "args", args)
	runErr := cmd.Run()
	if stderr.Len() > 0 {
		slog.DebugContext(ctx, "transcoder stderr", "input", input, "stderr", stderr.String())
	}

	if runErr != nil {
		removePartial(output)
		return "", classifyRunError(input, intent, runErr, stderr.String())
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		removePartial(output)
		return "", &Error{Input: input, Intent: intent, Reason: ReasonEmptyOutput, Stderr: stderr.String(), Err: err}
	}
	return output, nil
}

func classifyRunError(input string, intent Intent, err error, stderr string) *Error {
	out := &Error{Input: input, Intent: intent, Stderr: stderr, Err: err, ExitCode: -1}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		out.Reason = ReasonExecutableNotFound
	case errors.As(err, &exitErr):
		out.Reason = ReasonProcessFailed
		out.ExitCode = exitErr.ExitCode()
	default:
		out.Reason = ReasonStartFailed
	}
	return out
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to remove partial transcoder output", "file", path, "error", err)
	}
}
