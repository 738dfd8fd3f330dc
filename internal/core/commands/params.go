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

// Package commands contains the steps of the per-file pipeline. Each step is
// a cor.Command; they communicate through the well-known context keys below.
package commands

import (
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/cor"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// Context keys shared by the pipeline commands.
const (
	MediaParam         = "__MEDIA__"      // *model.MediaFile being processed.
	InferencePathParam = "__INFER_PATH__" // string: the path the model will be given.
	ConvertedParam     = "__CONVERTED__"  // bool: InferencePathParam is a transcoded asset.
	MetricsParam       = "__METRICS__"    // map[string]float64: the model's output.
	AttemptsParam      = "__ATTEMPTS__"   // int: number of inference calls made.
)

// GetMedia returns the media file stored in the context, if any.
func GetMedia(context cor.Context) *model.MediaFile {
	m, _ := context.Get(MediaParam).(*model.MediaFile)
	return m
}

// IsConverted reports whether the current inference path is a transcoded asset.
func IsConverted(context cor.Context) bool {
	v, _ := context.Get(ConvertedParam).(bool)
	return v
}

func fail(c cor.Command, context cor.Context, err *model.StageError) {
	c.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(c.GetName(), err)
}
