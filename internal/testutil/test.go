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

// Package test holds fixtures shared by the package tests: the repository's
// test configuration, WAV files, a fake ffmpeg executable and a scripted
// inference adapter.
package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/jaycherian/gcp-go-audio-quality/internal/config"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/inference"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/wav"
)

// TestSampleRate is the sample rate of every generated fixture.
const TestSampleRate = 16000

type StateManager struct {
	mu     sync.Mutex
	config *config.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// RepoRoot returns the repository root directory.
func RepoRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

// GetConfig loads configs/.env.toml with the "test" runtime overrides. The
// result is cached; callers must not mutate it.
func GetConfig() *config.Config {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.config == nil {
		cfg := config.NewConfig()
		if err := config.LoadConfig(filepath.Join(RepoRoot(), config.DefaultConfigPrefix), "test", cfg); err != nil {
			panic(fmt.Sprintf("failed to load test configuration: %v", err))
		}
		state.config = cfg
	}
	return state.config
}

// WriteWAV writes a mono 16-bit WAV file of the given duration.
func WriteWAV(t *testing.T, path string, seconds float64) string {
	t.Helper()
	samples := make([]int16, int(seconds*TestSampleRate))
	for i := range samples {
		samples[i] = int16((i % 64) * 256)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := wav.Write(path, TestSampleRate, 1, samples); err != nil {
		t.Fatal(err)
	}
	return path
}

// WriteFile writes arbitrary bytes, creating parent directories.
func WriteFile(t *testing.T, path string, body []byte) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// FakeFFmpeg is a shell script standing in for ffmpeg. Its behaviour depends
// on the base name of the input:
//   - "*corrupt*" exits 1 with a decoder message on stderr.
//   - "*silent*" exits 0 and leaves an empty output file.
//   - "*short*" writes a 0.1 second WAV.
//   - anything else writes a one second WAV.
//
// Every invocation's arguments are appended to a log file.
type FakeFFmpeg struct {
	Path    string
	LogPath string
}

const fakeFFmpegScript = `#!/bin/sh
in=""
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
  out="$a"
done
echo "$*" >> "%[1]s"
case "$(basename "$in")" in
  *corrupt*) echo "$in: Invalid data found when processing input" >&2; exit 1 ;;
  *silent*) : > "$out"; exit 0 ;;
  *short*) cp "%[2]s" "$out" ;;
  *) cp "%[3]s" "$out" ;;
esac
`

// NewFakeFFmpeg writes the fake ffmpeg and its fixtures into a temp directory.
func NewFakeFFmpeg(t *testing.T) *FakeFFmpeg {
	t.Helper()
	dir := t.TempDir()
	short := WriteWAV(t, filepath.Join(dir, "short.wav"), 0.1)
	long := WriteWAV(t, filepath.Join(dir, "long.wav"), 1)
	f := &FakeFFmpeg{
		Path:    filepath.Join(dir, "ffmpeg"),
		LogPath: filepath.Join(dir, "calls.log"),
	}
	script := fmt.Sprintf(fakeFFmpegScript, f.LogPath, short, long)
	if err := os.WriteFile(f.Path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return f
}

// Calls returns the argument lines of every invocation so far.
func (f *FakeFFmpeg) Calls() []string {
	raw, err := os.ReadFile(f.LogPath)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}

// FakeAdapter is a scripted inference.Adapter. Respond decides the outcome
// of every call; requests are recorded in order.
type FakeAdapter struct {
	InitErr  error
	Respond  func(req inference.Request) (map[string]float64, error)
	Requests []inference.Request
}

func (f *FakeAdapter) Name() string {
	return "fake"
}

func (f *FakeAdapter) Init(_ context.Context) error {
	return f.InitErr
}

func (f *FakeAdapter) Infer(_ context.Context, req inference.Request) (map[string]float64, error) {
	f.Requests = append(f.Requests, req)
	if f.Respond == nil {
		return map[string]float64{"MOS": 3}, nil
	}
	return f.Respond(req)
}

// FormatError returns an inference error the pipeline treats as an
// unreadable input.
func FormatError(msg string) error {
	return &inference.Error{Adapter: "fake", Message: msg, Format: true}
}

// InferenceError returns any other inference error.
func InferenceError(msg string) error {
	return &inference.Error{Adapter: "fake", Message: msg}
}
