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

package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const timingScope = "github.com/jaycherian/gcp-go-audio-quality/telemetry"

// Timed starts timing an operation. Call the returned function with the
// operation's error when it finishes: it logs the elapsed time at debug level
// (warn on error) and records it in the "<name>.duration" histogram.
//
//	done := telemetry.Timed(ctx, "inference", "file", path)
//	metrics, err := adapter.Infer(ctx, req)
//	elapsed := done(err)
func Timed(ctx context.Context, name string, args ...any) func(error) time.Duration {
	start := time.Now()
	return func(err error) time.Duration {
		elapsed := time.Since(start)

		hist, herr := otel.Meter(timingScope).Float64Histogram(name+".duration",
			metric.WithUnit("s"),
			metric.WithDescription("Wall clock duration of "+name))
		if herr == nil {
			hist.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.Bool("error", err != nil)))
		}

		attrs := append([]any{"operation", name, "elapsed", elapsed}, args...)
		if err != nil {
			slog.WarnContext(ctx, "timed operation failed", append(attrs, "error", err)...)
		} else {
			slog.DebugContext(ctx, "timed operation finished", attrs...)
		}
		return elapsed
	}
}
