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

// Package inference defines how the pipeline talks to a model. A model is an
// opaque collaborator behind the Adapter interface: it receives the path of a
// decodable audio file and returns named scalar metrics. Adapters classify
// their own failures so the pipeline can tell an unreadable input, which is
// worth one re-encode and retry, from any other error.
package inference

import (
	"context"
	"errors"
	"strings"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// ErrUnreadableFormat marks an inference failure caused by the model being
// unable to decode its input.
var ErrUnreadableFormat = errors.New("unreadable audio format")

// Request is a single inference call.
type Request struct {
	Path       string // File handed to the model.
	Device     string // Compute device, e.g. "cpu" or "cuda:0".
	SampleRate int    // Sample rate the model expects.
}

// Adapter is implemented once per model transport.
type Adapter interface {
	// Name identifies the adapter in logs and spans.
	Name() string
	// Init checks that the model is reachable. Failures wrap model.ErrModelInitFailed.
	Init(ctx context.Context) error
	// Infer runs the model on req.Path. Failures wrap model.ErrInferenceFailed
	// and, when the model could not decode the input, ErrUnreadableFormat.
	Infer(ctx context.Context, req Request) (map[string]float64, error)
}

// Error is an inference failure. Message is the model's own error text and
// is what ends up in the report.
type Error struct {
	Adapter string
	Message string
	Format  bool // The model could not decode the input.
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := []error{model.ErrInferenceFailed}
	if e.Format {
		errs = append(errs, ErrUnreadableFormat)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// FormatErrorClassifier decides whether an inference error is an unreadable
// input. Typed errors (ErrUnreadableFormat) are always recognized. The
// signatures are a compatibility shim for models that only report the decoder's
// message text; keep the list narrow.
type FormatErrorClassifier struct {
	signatures []string
}

// NewFormatErrorClassifier creates a classifier matching the given substrings.
func NewFormatErrorClassifier(signatures []string) *FormatErrorClassifier {
	out := &FormatErrorClassifier{}
	for _, s := range signatures {
		if s = strings.TrimSpace(s); s != "" {
			out.signatures = append(out.signatures, s)
		}
	}
	return out
}

// IsFormatError reports whether err means the input could not be decoded.
func (c *FormatErrorClassifier) IsFormatError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnreadableFormat) {
		return true
	}
	return c.MatchesSignature(err.Error())
}

// MatchesSignature reports whether text contains one of the signatures.
func (c *FormatErrorClassifier) MatchesSignature(text string) bool {
	for _, s := range c.signatures {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
