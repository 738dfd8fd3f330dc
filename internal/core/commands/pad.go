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

package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/cor"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/wav"
)

// Padder zero-pads short PCM WAV inputs up to a minimum duration, measured
// at each file's own sample rate. Inputs that are not PCM WAV are passed
// through untouched; the model decides what to do with them.
type Padder struct {
	minSeconds float64
	tempDir    string
}

// NewPadder creates a Padder. A non-positive minSeconds disables padding.
func NewPadder(minSeconds float64, tempDir string) *Padder {
	return &Padder{minSeconds: minSeconds, tempDir: tempDir}
}

// Prepare returns the path to hand to the model: path itself, or a padded
// copy registered on the context for cleanup.
func (p *Padder) Prepare(context cor.Context, path string) string {
	if p == nil || p.minSeconds <= 0 {
		return path
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dst := filepath.Join(p.tempDir, fmt.Sprintf("%s-pad-%s.wav", stem, uuid.NewString()))

	padded, err := wav.PadTo(path, dst, p.minSeconds)
	switch {
	case errors.Is(err, wav.ErrNotWAV), errors.Is(err, wav.ErrUnsupported):
		return path
	case err != nil:
		slog.WarnContext(context.GetContext(), "padding failed, using input as is", "file", path, "error", err)
		return path
	case !padded:
		return path
	}
	context.AddTempFile(dst)
	slog.DebugContext(context.GetContext(), "padded short input", "file", path, "min_seconds", p.minSeconds)
	return dst
}
