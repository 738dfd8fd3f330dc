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

// Package workflow assembles the per-file chain and drives it over a run.
// This file defines MediaQualityWorkflow, the chain every input file goes
// through:
//
//  1. classify-media: validates the kind and seeds the context.
//  2. extract-audio: video only; pulls the audio track into a temp WAV.
//  3. normalize-audio: non-WAV audio, for profiles that ask for it.
//  4. infer-with-fallback: calls the model, with one re-encode and retry
//     for audio the model cannot decode.
package workflow

import (
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/commands"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/cor"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/discovery"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/inference"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/transcode"
)

// Options are the collaborators of a MediaQualityWorkflow.
type Options struct {
	Classifier   *discovery.Classifier
	Transcoder   *transcode.Transcoder
	Adapter      inference.Adapter
	Profile      *model.Profile
	FormatErrors *inference.FormatErrorClassifier
	Device       string
	ScratchDir   string // Where padded copies are written.
}

type MediaQualityWorkflow struct {
	cor.BaseCommand
	options Options
	chain   cor.Chain
}

func (m *MediaQualityWorkflow) IsExecutable(context cor.Context) bool {
	return m.chain.IsExecutable(context)
}

func (m *MediaQualityWorkflow) Execute(context cor.Context) {
	m.chain.Execute(context)
}

// Profile returns the model profile the workflow runs with.
func (m *MediaQualityWorkflow) Profile() *model.Profile {
	return m.options.Profile
}

func (m *MediaQualityWorkflow) initializeChain() {
	o := m.options
	transcoder := o.Transcoder.WithSampleRate(o.Profile.SampleRate)

	out := cor.NewBaseChain(m.GetName())
	out.AddCommand(commands.NewClassifyMedia("classify-media", o.Classifier))
	out.AddCommand(commands.NewExtractAudio("extract-audio", transcoder))
	out.AddCommand(commands.NewNormalizeAudio("normalize-audio", transcoder, o.Profile))
	out.AddCommand(commands.NewInferWithFallback(
		"infer-with-fallback",
		o.Adapter,
		transcoder,
		commands.NewPadder(o.Profile.MinDuration, o.ScratchDir),
		o.FormatErrors,
		o.Device,
		o.Profile.SampleRate))
	m.chain = out
}

// NewMediaQualityWorkflow builds the per-file chain.
func NewMediaQualityWorkflow(options Options) *MediaQualityWorkflow {
	if options.FormatErrors == nil {
		options.FormatErrors = inference.NewFormatErrorClassifier(nil)
	}
	out := &MediaQualityWorkflow{
		BaseCommand: *cor.NewBaseCommand("media-quality-workflow"),
		options:     options,
	}
	out.initializeChain()
	return out
}
