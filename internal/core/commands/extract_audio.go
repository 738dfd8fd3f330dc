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

// ExtractAudio pulls the audio track out of a video into a temporary WAV.
// Video inputs are always inferred from the extracted asset, and are
// therefore never eligible for the re-encode retry.
type ExtractAudio struct {
	cor.BaseCommand
	transcoder *transcode.Transcoder
}

func NewExtractAudio(name string, transcoder *transcode.Transcoder) *ExtractAudio {
	return &ExtractAudio{BaseCommand: *cor.NewBaseCommand(name), transcoder: transcoder}
}

func (c *ExtractAudio) IsExecutable(context cor.Context) bool {
	media := GetMedia(context)
	return context.GetContext() != nil && media != nil && media.Kind == model.KindVideo
}

func (c *ExtractAudio) Execute(context cor.Context) {
	media := GetMedia(context)
	out, err := c.transcoder.Transcode(context.GetContext(), media.Path, transcode.IntentExtractFromVideo)
	if err != nil {
		fail(c, context, model.NewStageError(model.CategoryTranscodeFailed, "Failed to extract audio: "+err.Error(), err))
		return
	}
	context.AddTempFile(out)
	context.Add(InferencePathParam, out)
	context.Add(ConvertedParam, true)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), media)
}
