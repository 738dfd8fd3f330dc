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

// Package workflow_test exercises the per-file chain and the runner against
// a fake ffmpeg and a scripted model.
package workflow_test

import (
	"log/slog"
	"os"
	"testing"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const tName = "github.com/jaycherian/gcp-go-audio-quality/tests/workflow"

func TestMain(m *testing.M) {
	// Route pipeline logs into the otel log bridge, which drops them unless
	// a logger provider is installed.
	slog.SetDefault(otelslog.NewLogger(tName))
	os.Exit(m.Run())
}
