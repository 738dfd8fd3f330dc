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
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/cor"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/transcode"
)

// NormalizeAudio re-encodes non-WAV audio before the first attempt, for
// models whose loaders only handle WAV reliably. Such files count as
// converted, so no second re-encode is tried for them.
type NormalizeAudio struct {
	cor.BaseCommand
	transcoder *transcode.Transcoder
	enabled    bool
}

func NewNormalizeAudio(name string, transcoder *transcode.Transcoder, profile *model.Profile) *NormalizeAudio {
	return &NormalizeAudio{BaseCommand: *cor.NewBaseCommand(name), transcoder: transcoder, enabled: profile.NormalizeNonWAV}
}

func (c *NormalizeAudio) IsExecutable(context cor.Context) bool {
	media := GetMedia(context)
	return c.enabled && context.GetContext() != nil && media != nil &&
		media.Kind == model.KindAudio && !media.IsWAV() && !IsConverted(context)
}

func (c *NormalizeAudio) Execute(context cor.Context) {
	media := GetMedia(context)
	out, err := c.transcoder.Transcode(context.GetContext(), media.Path, transcode.IntentReencodeAudio)
	if err != nil {
		fail(c, context, model.NewStageError(model.CategoryTranscodeFailed, "Format conversion failed: "+err.Error(), err))
		return
	}
	context.AddTempFile(out)
	context.Add(InferencePathParam, out)
	context.Add(ConvertedParam, true)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), media)
}
