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

package model

import (
	"errors"
	"fmt"
)

// Run level failures. Everything except ErrTranscodeFailed and
// ErrInferenceFailed terminates the run.
var (
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrNoMediaFound      = errors.New("no media files found")
	ErrModelInitFailed   = errors.New("model initialization failed")
	ErrTranscodeFailed   = errors.New("transcode failed")
	ErrInferenceFailed   = errors.New("inference failed")
	ErrReportWriteFailed = errors.New("report write failed")
)

// StageError is the error a pipeline command records on the per-file context.
// Message is the text that ends up in the report; Err keeps the cause chain.
type StageError struct {
	Category FailureCategory
	Message  string
	Err      error
}

// NewStageError creates a StageError. An empty message falls back to the cause's text.
func NewStageError(category FailureCategory, message string, err error) *StageError {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &StageError{Category: category, Message: message, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil || e.Message == e.Err.Error() {
		return fmt.Sprintf("%s: %s", e.Category, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
