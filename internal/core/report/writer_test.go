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

package report_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/inference"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/report"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/assert"
)

func profile(t *testing.T, name string) *model.Profile {
	p, err := inference.LookupProfile(name)
	require.NoError(t, err)
	return p
}

func squimRecords() []*model.ProcessingRecord {
	a := model.NewMediaFile("in/a.wav", model.KindAudio)
	b := model.NewMediaFile("in/b.mp4", model.KindVideo)
	c := model.NewMediaFile("in/c.flac", model.KindAudio)
	return []*model.ProcessingRecord{
		model.NewSuccessRecord(a, map[string]float64{"STOI": 0.9, "PESQ": 3.0, "SI-SDR": 10, "MOS": 4}),
		model.NewFailureRecord(b, model.CategoryTranscodeFailed, "Failed to extract audio: exit status 1"),
		model.NewSuccessRecord(c, map[string]float64{"STOI": 0.7, "PESQ": 2.0, "SI-SDR": 20, "MOS": 3}),
	}
}

func TestRenderSquim(t *testing.T) {
	var buf bytes.Buffer
	err := report.Render(&buf, profile(t, inference.ModelSquim), squimRecords())
	assert.NoError(t, err)

	want := "Speech Quality Assessment Results (SQUIM)\n" +
		strings.Repeat("=", 50) + "\n\n" +
		"File: a.wav\nPath: in/a.wav\nSpeech Quality Metrics:\n" +
		"  STOI (Speech Intelligibility): 0.900\n" +
		"  PESQ (Perceptual Quality): 3.000\n" +
		"  SI-SDR (Signal Distortion): 10.000 dB\n" +
		"  MOS (Mean Opinion Score): 4.000\n" +
		"\n" + strings.Repeat("-", 30) + "\n\n" +
		"File: b.mp4\nPath: in/b.mp4\nError: Failed to extract audio: exit status 1\n" +
		"\n" + strings.Repeat("-", 30) + "\n\n" +
		"File: c.flac\nPath: in/c.flac\nSpeech Quality Metrics:\n" +
		"  STOI (Speech Intelligibility): 0.700\n" +
		"  PESQ (Perceptual Quality): 2.000\n" +
		"  SI-SDR (Signal Distortion): 20.000 dB\n" +
		"  MOS (Mean Opinion Score): 3.000\n" +
		"\n" + strings.Repeat("-", 30) + "\n\n" +
		"Summary Statistics:\n" + strings.Repeat("=", 20) + "\n" +
		"Total files processed: 3\nSuccessful: 2\nFailed: 1\n" +
		"Average STOI: 0.800\nAverage PESQ: 2.500\nAverage SI-SDR: 15.000 dB\nAverage MOS: 3.500\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderUtmosRangeAndNotes(t *testing.T) {
	recs := []*model.ProcessingRecord{
		model.NewSuccessRecord(model.NewMediaFile("x.wav", model.KindAudio), map[string]float64{"MOS": 2}),
		model.NewSuccessRecord(model.NewMediaFile("y.wav", model.KindAudio), map[string]float64{"MOS": 4}),
	}
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, profile(t, inference.ModelUtmos), recs))

	out := buf.String()
	require.Contains(t, out, "Speech Naturalness Metrics:\n  MOS (Mean Opinion Score): 2.000\n")
	require.Contains(t, out, "Average MOS: 3.000\nMinimum MOS: 2.000\nMaximum MOS: 4.000\n")
	require.True(t, strings.HasSuffix(out,
		"\nNote: UTMOSv2 predicts naturalness of synthetic speech.\nHigher MOS scores indicate more natural-sounding speech.\n"))
}

func TestRenderAllFailedHasNoSummary(t *testing.T) {
	recs := []*model.ProcessingRecord{
		model.NewFailureRecord(model.NewMediaFile("x.ogg", model.KindAudio), model.CategoryNoPrediction, "No prediction returned"),
	}
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, profile(t, inference.ModelAesthetics), recs))
	require.NotContains(t, buf.String(), "Summary Statistics")
	require.Contains(t, buf.String(), "Error: No prediction returned\n")
}

func TestRenderMissingMetric(t *testing.T) {
	recs := []*model.ProcessingRecord{
		model.NewSuccessRecord(model.NewMediaFile("x.wav", model.KindAudio), map[string]float64{"CE": 5}),
	}
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, profile(t, inference.ModelAesthetics), recs))
	require.Contains(t, buf.String(), "  Content Usefulness (CU): N/A\n")
	require.Contains(t, buf.String(), "Average CE: 5.000\n")
	require.NotContains(t, buf.String(), "Average CU")
}

func TestSummarize(t *testing.T) {
	stats := report.Summarize(profile(t, inference.ModelSquim), squimRecords())
	require.Len(t, stats, 4)
	assert.Equal(t, "SI-SDR", stats[2].Metric.Key)
	assert.Equal(t, 2, stats[2].Count)
	assert.Equal(t, 10.0, stats[2].Min)
	assert.Equal(t, 20.0, stats[2].Max)
}

func TestWriteFileIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	p := profile(t, inference.ModelSquim)

	require.NoError(t, report.WriteFile(path, p, squimRecords()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, report.WriteFile(path, p, squimRecords()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestWriteFileUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "report.txt")
	err := report.WriteFile(path, profile(t, inference.ModelSquim), squimRecords())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrReportWriteFailed))
}
