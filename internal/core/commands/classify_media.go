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
	"fmt"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/cor"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/discovery"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// ClassifyMedia takes the *model.MediaFile on the chain input, classifies it
// and seeds the context keys the later steps read.
type ClassifyMedia struct {
	cor.BaseCommand
	classifier *discovery.Classifier
}

func NewClassifyMedia(name string, classifier *discovery.Classifier) *ClassifyMedia {
	return &ClassifyMedia{BaseCommand: *cor.NewBaseCommand(name), classifier: classifier}
}

func (c *ClassifyMedia) Execute(context cor.Context) {
	media, ok := context.Get(c.GetInputParam()).(*model.MediaFile)
	if !ok {
		fail(c, context, model.NewStageError(model.CategoryUnsupported, "no media file on the chain input", nil))
		return
	}
	if kind := c.classifier.Classify(media.Path); kind != media.Kind {
		classified := *media
		classified.Kind = kind
		media = &classified
	}
	context.Add(MediaParam, media)

	if media.Kind == model.KindUnsupported {
		fail(c, context, model.NewStageError(model.CategoryUnsupported,
			fmt.Sprintf("Unsupported file type: %s", media.Ext), nil))
		return
	}

	context.Add(InferencePathParam, media.Path)
	context.Add(ConvertedParam, false)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), media)
}
