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

package model_test

import (
	"errors"
	"testing"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestNewMediaFile(t *testing.T) {
	m := model.NewMediaFile("/data/in/Clip.MP4", model.KindVideo)
	assert.Equal(t, "Clip.MP4", m.Name)
	assert.Equal(t, ".mp4", m.Ext)
	assert.False(t, m.IsWAV())
}

func TestRecordsCarryOneOutcome(t *testing.T) {
	m := model.NewMediaFile("a.wav", model.KindAudio)

	ok := model.NewSuccessRecord(m, map[string]float64{"MOS": 3.2})
	assert.True(t, ok.Outcome.Succeeded())
	assert.Nil(t, ok.Outcome.Failure)

	bad := model.NewFailureRecord(m, model.CategoryInferenceFailed, "boom")
	assert.False(t, bad.Outcome.Succeeded())
	assert.Nil(t, bad.Outcome.Metrics)
	assert.Equal(t, "boom", bad.Outcome.Failure.Message)
}

func TestStageErrorUnwraps(t *testing.T) {
	cause := errors.Join(model.ErrTranscodeFailed, errors.New("exit status 1"))
	err := model.NewStageError(model.CategoryTranscodeFailed, "", cause)

	assert.True(t, errors.Is(err, model.ErrTranscodeFailed))
	assert.Equal(t, cause.Error(), err.Message)

	var stage *model.StageError
	assert.True(t, errors.As(error(err), &stage))
	assert.Equal(t, model.CategoryTranscodeFailed, stage.Category)
}
