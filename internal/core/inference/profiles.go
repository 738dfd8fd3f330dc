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

package inference

import (
	"fmt"
	"sort"

	"github.com/jaycherian/gcp-go-audio-quality/internal/config"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// Built-in model names.
const (
	ModelAesthetics = "aesthetics"
	ModelSquim      = "squim"
	ModelUtmos      = "utmos"
)

const defaultSampleRate = 16000

var builtinProfiles = map[string]func() *model.Profile{
	ModelAesthetics: func() *model.Profile {
		return &model.Profile{
			Name:           ModelAesthetics,
			Title:          "Audio File Aesthetics Metrics",
			MetricsHeading: "Metrics",
			Metrics: []model.MetricSpec{
				{Key: "CE", Label: "Content Enjoyment (CE)"},
				{Key: "CU", Label: "Content Usefulness (CU)"},
				{Key: "PC", Label: "Production Complexity (PC)"},
				{Key: "PQ", Label: "Production Quality (PQ)"},
			},
			SampleRate: defaultSampleRate,
		}
	},
	ModelSquim: func() *model.Profile {
		return &model.Profile{
			Name:           ModelSquim,
			Title:          "Speech Quality Assessment Results (SQUIM)",
			MetricsHeading: "Speech Quality Metrics",
			Metrics: []model.MetricSpec{
				{Key: "STOI", Label: "STOI (Speech Intelligibility)"},
				{Key: "PESQ", Label: "PESQ (Perceptual Quality)"},
				{Key: "SI-SDR", Label: "SI-SDR (Signal Distortion)", Unit: "dB"},
				{Key: "MOS", Label: "MOS (Mean Opinion Score)"},
			},
			SampleRate:  defaultSampleRate,
			MinDuration: 0.5,
		}
	},
	ModelUtmos: func() *model.Profile {
		return &model.Profile{
			Name:           ModelUtmos,
			Title:          "Speech Quality Assessment Results (UTMOSv2)",
			MetricsHeading: "Speech Naturalness Metrics",
			Metrics: []model.MetricSpec{
				{Key: "MOS", Label: "MOS (Mean Opinion Score)"},
			},
			SampleRate:      defaultSampleRate,
			NormalizeNonWAV: true,
			RangeStats:      true,
			Notes: []string{
				"Note: UTMOSv2 predicts naturalness of synthetic speech.",
				"Higher MOS scores indicate more natural-sounding speech.",
			},
		}
	},
}

// ProfileNames lists the built-in profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(builtinProfiles))
	for k := range builtinProfiles {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LookupProfile returns a fresh copy of a built-in profile.
func LookupProfile(name string) (*model.Profile, error) {
	build, ok := builtinProfiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown model %q (known: %v)", name, ProfileNames())
	}
	return build(), nil
}

// ResolveProfile returns the built-in profile for name with the configured
// overrides applied. The transcoder rate is used when neither the model
// configuration nor the profile sets a sample rate.
func ResolveProfile(name string, mc config.Model, transcoderRate int) (*model.Profile, error) {
	p, err := LookupProfile(name)
	if err != nil {
		return nil, err
	}
	switch {
	case mc.SampleRate > 0:
		p.SampleRate = mc.SampleRate
	case p.SampleRate == 0:
		p.SampleRate = transcoderRate
	}
	if mc.MinDurationSeconds > 0 {
		p.MinDuration = mc.MinDurationSeconds
	}
	if mc.NormalizeNonWAV != nil {
		p.NormalizeNonWAV = *mc.NormalizeNonWAV
	}
	return p, nil
}

// ClassifierFor returns the format error classifier for a model, falling
// back to the default signatures.
func ClassifierFor(mc config.Model) *FormatErrorClassifier {
	if len(mc.FormatErrorSignatures) == 0 {
		return NewFormatErrorClassifier(config.DefaultFormatErrorSignatures)
	}
	return NewFormatErrorClassifier(mc.FormatErrorSignatures)
}

// NewAdapter builds the adapter described by mc. A positive request rate
// wraps the adapter in a QuotaAwareAdapter.
func NewAdapter(name string, mc config.Model, profile *model.Profile) (Adapter, error) {
	classifier := ClassifierFor(mc)

	var adapter Adapter
	switch mc.Kind {
	case config.AdapterExec:
		if len(mc.Command) == 0 {
			return nil, fmt.Errorf("model %s: exec adapter requires a command", name)
		}
		adapter = NewExecAdapter(name, mc.Command, profile, classifier)
	case config.AdapterHTTP:
		h, err := NewHTTPAdapter(name, mc.Endpoint, mc.HealthPath, nil, profile, classifier)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", name, err)
		}
		adapter = h
	default:
		return nil, fmt.Errorf("model %s: unknown adapter kind %q", name, mc.Kind)
	}

	if mc.RequestsPerSecond > 0 {
		adapter = NewQuotaAwareAdapter(adapter, mc.RequestsPerSecond)
	}
	return adapter, nil
}
