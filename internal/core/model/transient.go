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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains the in-memory types that flow through a
// single run: the media files found on disk and the processing records built
// for them. None of these are mutated once they have been handed to the next
// stage of the run.
package model

import (
	"path/filepath"
	"strings"
)

// MediaKind is the coarse classification of an input file, derived from its
// extension only.
type MediaKind string

const (
	KindAudio       MediaKind = "audio"
	KindVideo       MediaKind = "video"
	KindUnsupported MediaKind = "unsupported"
)

// MediaFile is a discovered input file. It is read-only once discovered.
type MediaFile struct {
	Path string    // Path as found during discovery (root joined with the relative path).
	Name string    // Base name, used as the display name in reports.
	Ext  string    // Lower-cased extension including the leading dot.
	Kind MediaKind // Classification derived from Ext.
}

// NewMediaFile builds a MediaFile for the given path and kind.
func NewMediaFile(path string, kind MediaKind) *MediaFile {
	return &MediaFile{
		Path: path,
		Name: filepath.Base(path),
		Ext:  strings.ToLower(filepath.Ext(path)),
		Kind: kind,
	}
}

// IsWAV reports whether the file already carries a .wav extension.
func (m *MediaFile) IsWAV() bool {
	return m.Ext == ".wav"
}

// FailureCategory groups per-file failures for reporting and persistence.
type FailureCategory string

const (
	CategoryUnsupported     FailureCategory = "unsupported"
	CategoryTranscodeFailed FailureCategory = "transcode_failed"
	CategoryInferenceFailed FailureCategory = "inference_failed"
	CategoryNoPrediction    FailureCategory = "no_prediction"
)

// Failure is the failure payload of a ProcessingRecord.
type Failure struct {
	Category FailureCategory
	Message  string
}

// Outcome holds exactly one of Metrics or Failure.
type Outcome struct {
	Metrics map[string]float64
	Failure *Failure
}

// Succeeded reports whether the outcome is a success payload.
func (o Outcome) Succeeded() bool {
	return o.Failure == nil
}

// ProcessingRecord is the unit of output for one input file. The run produces
// exactly one record for every discovered file, in discovery order.
type ProcessingRecord struct {
	SourcePath  string
	DisplayName string
	Kind        MediaKind
	Outcome     Outcome
	Attempts    int  // Number of inference calls made for this file.
	Converted   bool // True when the model saw a transcoded asset rather than the original file.
}

// NewSuccessRecord creates a record carrying the model's metrics.
func NewSuccessRecord(media *MediaFile, metrics map[string]float64) *ProcessingRecord {
	return &ProcessingRecord{
		SourcePath:  media.Path,
		DisplayName: media.Name,
		Kind:        media.Kind,
		Outcome:     Outcome{Metrics: metrics},
	}
}

// NewFailureRecord creates a record carrying a failure payload.
func NewFailureRecord(media *MediaFile, category FailureCategory, message string) *ProcessingRecord {
	return &ProcessingRecord{
		SourcePath:  media.Path,
		DisplayName: media.Name,
		Kind:        media.Kind,
		Outcome:     Outcome{Failure: &Failure{Category: category, Message: message}},
	}
}
