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
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/inference"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/transcode"
	"github.com/jaycherian/gcp-go-audio-quality/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Messages recorded for failures on the conversion path.
const (
	MsgConversionFailed      = "Format conversion failed: "
	MsgFailedAfterConversion = "Failed after format conversion: "
	MsgNoPrediction          = "No prediction returned"
	MsgAfterConversion       = " after format conversion"
	MsgOriginalError         = " (original error: "
)

type fallbackState int

const (
	stateDirectAttempt fallbackState = iota
	stateConvert
	stateRetryAttempt
)

func (s fallbackState) String() string {
	switch s {
	case stateDirectAttempt:
		return "direct_attempt"
	case stateConvert:
		return "convert"
	default:
		return "retry_attempt"
	}
}

// InferWithFallback calls the model for the current inference path. An audio
// file the model cannot decode on the first attempt is re-encoded once and
// retried once; every other failure, and any failure after a conversion, is
// final.
type InferWithFallback struct {
	cor.BaseCommand
	adapter    inference.Adapter
	transcoder *transcode.Transcoder
	padder     *Padder
	classifier *inference.FormatErrorClassifier
	device     string
	sampleRate int
}

// NewInferWithFallback creates the command.
//
// Inputs:
//   - name: Command name.
//   - adapter: The model.
//   - transcoder: Used for the single re-encode.
//   - padder: Applied before every attempt; nil disables padding.
//   - classifier: Decides which failures are unreadable-format errors.
//   - device: Compute device forwarded to the model.
//   - sampleRate: Sample rate forwarded to the model.
func NewInferWithFallback(
	name string,
	adapter inference.Adapter,
	transcoder *transcode.Transcoder,
	padder *Padder,
	classifier *inference.FormatErrorClassifier,
	device string,
	sampleRate int) *InferWithFallback {
	return &InferWithFallback{
		BaseCommand: *cor.NewBaseCommand(name),
		adapter:     adapter,
		transcoder:  transcoder,
		padder:      padder,
		classifier:  classifier,
		device:      device,
		sampleRate:  sampleRate,
	}
}

func (c *InferWithFallback) IsExecutable(context cor.Context) bool {
	_, ok := context.Get(InferencePathParam).(string)
	return context.GetContext() != nil && GetMedia(context) != nil && ok
}

func (c *InferWithFallback) Execute(context cor.Context) {
	media := GetMedia(context)
	path := context.Get(InferencePathParam).(string)
	converted := IsConverted(context)
	attempts := 0
	defer func() { context.Add(AttemptsParam, attempts) }()

	var firstErr error
	state := stateDirectAttempt
	for {
		switch state {
		case stateDirectAttempt, stateRetryAttempt:
			attempts++
			metrics, err := c.attempt(context, path, state)
			if err == nil {
				if len(metrics) == 0 {
					msg := MsgNoPrediction
					if state == stateRetryAttempt {
						msg += MsgAfterConversion
					}
					fail(c, context, model.NewStageError(model.CategoryNoPrediction, msg, nil))
					return
				}
				c.GetSuccessCounter().Add(context.GetContext(), 1)
				context.Add(MetricsParam, metrics)
				context.Add(c.GetOutputParam(), metrics)
				return
			}
			if state == stateDirectAttempt && !converted && media.Kind == model.KindAudio && c.classifier.IsFormatError(err) {
				firstErr = err
				state = stateConvert
				continue
			}
			msg := err.Error()
			if state == stateRetryAttempt {
				msg = MsgFailedAfterConversion + msg
			}
			fail(c, context, model.NewStageError(model.CategoryInferenceFailed, msg, err))
			return

		case stateConvert:
			trace.SpanFromContext(context.GetContext()).AddEvent("format conversion",
				trace.WithAttributes(attribute.String("cause", firstErr.Error())))
			out, err := c.transcoder.Transcode(context.GetContext(), media.Path, transcode.IntentReencodeAudio)
			if err != nil {
				msg := MsgConversionFailed + err.Error() + MsgOriginalError + firstErr.Error() + ")"
				fail(c, context, model.NewStageError(model.CategoryTranscodeFailed, msg,
					fmt.Errorf("%w (after: %w)", err, firstErr)))
				return
			}
			context.AddTempFile(out)
			context.Add(InferencePathParam, out)
			context.Add(ConvertedParam, true)
			path, converted = out, true
			state = stateRetryAttempt
		}
	}
}

func (c *InferWithFallback) attempt(context cor.Context, path string, state fallbackState) (map[string]float64, error) {
	input := c.padder.Prepare(context, path)
	req := inference.Request{Path: input, Device: c.device, SampleRate: c.sampleRate}

	done := telemetry.Timed(context.GetContext(), "inference",
		"model", c.adapter.Name(), "file", GetMedia(context).Path, "state", state.String())
	metrics, err := c.adapter.Infer(context.GetContext(), req)
	done(err)
	return metrics, err
}
