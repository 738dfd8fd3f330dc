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

// Package discovery finds candidate media files under a directory and
// classifies them by extension. Nothing here opens a file.
package discovery

import (
	"path/filepath"

	"github.com/jaycherian/gcp-go-audio-quality/internal/config"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// Classifier maps extensions onto media kinds using two disjoint sets.
type Classifier struct {
	audio map[string]bool
	video map[string]bool
}

// NewClassifier builds a classifier. Extensions are matched case-insensitively
// and may be given with or without the leading dot.
func NewClassifier(audioExtensions, videoExtensions []string) *Classifier {
	c := &Classifier{audio: make(map[string]bool), video: make(map[string]bool)}
	for _, ext := range audioExtensions {
		c.audio[config.NormalizeExtension(ext)] = true
	}
	for _, ext := range videoExtensions {
		c.video[config.NormalizeExtension(ext)] = true
	}
	return c
}

// NewClassifierFromConfig builds a classifier from the media settings.
func NewClassifierFromConfig(media config.Media) *Classifier {
	return NewClassifier(media.AudioExtensions, media.VideoExtensions)
}

// Classify returns the kind of path based on its extension.
func (c *Classifier) Classify(path string) model.MediaKind {
	ext := config.NormalizeExtension(filepath.Ext(path))
	switch {
	case ext == "":
		return model.KindUnsupported
	case c.audio[ext]:
		return model.KindAudio
	case c.video[ext]:
		return model.KindVideo
	default:
		return model.KindUnsupported
	}
}
