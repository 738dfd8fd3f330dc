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

package inference_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-audio-quality/internal/config"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/inference"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func profile(t *testing.T, name string) *model.Profile {
	t.Helper()
	p, err := inference.LookupProfile(name)
	require.NoError(t, err)
	return p
}

func TestExecAdapterSuccess(t *testing.T) {
	script := writeScript(t, `echo "device=$2" >&2; printf '{"CE": 5.5, "CU": 6.25, "PC": 3, "PQ": 7.125}'`)
	a := inference.NewExecAdapter("aesthetics", []string{script, "{input}", "{device}"}, profile(t, "aesthetics"), nil)

	require.NoError(t, a.Init(context.Background()))
	metrics, err := a.Infer(context.Background(), inference.Request{Path: "in.wav", Device: "cpu", SampleRate: 16000})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"CE": 5.5, "CU": 6.25, "PC": 3, "PQ": 7.125}, metrics)
}

func TestExecAdapterSubstitutesPlaceholders(t *testing.T) {
	a := inference.NewExecAdapter("squim", []string{"squim", "--device", "{device}", "--sr={sample_rate}"}, nil, nil)
	argv := a.Command(inference.Request{Path: "/tmp/x.wav", Device: "cuda:1", SampleRate: 16000})
	assert.Equal(t, []string{"squim", "--device", "cuda:1", "--sr=16000", "/tmp/x.wav"}, argv)
}

func TestExecAdapterBareScore(t *testing.T) {
	script := writeScript(t, `echo 3.75`)
	a := inference.NewExecAdapter("utmos", []string{script}, profile(t, "utmos"), nil)

	metrics, err := a.Infer(context.Background(), inference.Request{Path: "in.wav"})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"MOS": 3.75}, metrics)
}

func TestExecAdapterTypedFormatError(t *testing.T) {
	script := writeScript(t, `echo "cannot decode input" >&2; exit 65`)
	a := inference.NewExecAdapter("aesthetics", []string{script}, profile(t, "aesthetics"), nil)

	_, err := a.Infer(context.Background(), inference.Request{Path: "in.m4a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, inference.ErrUnreadableFormat)
	assert.ErrorIs(t, err, model.ErrInferenceFailed)
	assert.Equal(t, "cannot decode input", err.Error())
}

func TestExecAdapterSignatureShim(t *testing.T) {
	script := writeScript(t, `echo "Traceback (most recent call last):" >&2
echo "soundfile.LibsndfileError: Error opening 'in.m4a': Format not recognised." >&2
exit 1`)
	classifier := inference.NewFormatErrorClassifier(config.DefaultFormatErrorSignatures)
	a := inference.NewExecAdapter("aesthetics", []string{script}, profile(t, "aesthetics"), classifier)

	_, err := a.Infer(context.Background(), inference.Request{Path: "in.m4a"})
	assert.ErrorIs(t, err, inference.ErrUnreadableFormat)
	assert.Equal(t, "soundfile.LibsndfileError: Error opening 'in.m4a': Format not recognised.", err.Error())
}

func TestExecAdapterOtherFailure(t *testing.T) {
	script := writeScript(t, `echo "CUDA out of memory" >&2; exit 1`)
	a := inference.NewExecAdapter("squim", []string{script}, profile(t, "squim"),
		inference.NewFormatErrorClassifier(config.DefaultFormatErrorSignatures))

	_, err := a.Infer(context.Background(), inference.Request{Path: "in.wav"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, inference.ErrUnreadableFormat))
	assert.Equal(t, "CUDA out of memory", err.Error())
}

func TestExecAdapterInitMissingCommand(t *testing.T) {
	a := inference.NewExecAdapter("squim", []string{filepath.Join(t.TempDir(), "missing")}, nil, nil)
	assert.ErrorIs(t, a.Init(context.Background()), model.ErrModelInitFailed)
}

func TestParseMetrics(t *testing.T) {
	aest := profile(t, "aesthetics")
	utmos := profile(t, "utmos")

	m, err := inference.ParseMetrics([]byte(`{"metrics": {"CE": 1, "PQ": 2}}`), aest)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"CE": 1, "PQ": 2}, m)

	m, err = inference.ParseMetrics([]byte(`{"score": 4.1}`), utmos)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"MOS": 4.1}, m)

	m, err = inference.ParseMetrics([]byte("  \n"), utmos)
	require.NoError(t, err)
	assert.Empty(t, m)

	_, err = inference.ParseMetrics([]byte(`2.0`), aest)
	assert.Error(t, err, "a bare score is ambiguous for multi-metric profiles")

	_, err = inference.ParseMetrics([]byte(`{"CE": "high"}`), aest)
	assert.Error(t, err)

	_, err = inference.ParseMetrics([]byte(`not json`), aest)
	assert.Error(t, err)
}

func TestFormatErrorClassifier(t *testing.T) {
	c := inference.NewFormatErrorClassifier([]string{"Format not recognised", " ", ""})

	assert.True(t, c.IsFormatError(&inference.Error{Message: "x", Format: true}))
	assert.True(t, c.IsFormatError(errors.New("Error: Format not recognised")))
	assert.False(t, c.IsFormatError(errors.New("file is empty")))
	assert.False(t, c.IsFormatError(nil))
}

func TestResolveProfileOverrides(t *testing.T) {
	no := false
	p, err := inference.ResolveProfile("utmos", config.Model{SampleRate: 22050, NormalizeNonWAV: &no}, 16000)
	require.NoError(t, err)
	assert.Equal(t, 22050, p.SampleRate)
	assert.False(t, p.NormalizeNonWAV)

	p, err = inference.ResolveProfile("squim", config.Model{}, 16000)
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.MinDuration)

	_, err = inference.ResolveProfile("wavlm", config.Model{}, 16000)
	assert.Error(t, err)
}

func TestNewAdapterWrapsRateLimit(t *testing.T) {
	p := profile(t, "utmos")
	a, err := inference.NewAdapter("utmos", config.Model{Kind: config.AdapterHTTP, Endpoint: "http://127.0.0.1:1/v1", RequestsPerSecond: 2}, p)
	require.NoError(t, err)
	_, ok := a.(*inference.QuotaAwareAdapter)
	assert.True(t, ok)

	a, err = inference.NewAdapter("squim", config.Model{Kind: config.AdapterExec, Command: []string{"squim"}}, p)
	require.NoError(t, err)
	_, ok = a.(*inference.ExecAdapter)
	assert.True(t, ok)

	_, err = inference.NewAdapter("x", config.Model{Kind: "grpc"}, p)
	assert.Error(t, err)
}
