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

package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// ExitUnreadableFormat is the exit status (sysexits EX_DATAERR) a model
// process uses to say it could not decode its input.
const ExitUnreadableFormat = 65

// Placeholders substituted in an exec adapter's argv.
const (
	PlaceholderInput      = "{input}"
	PlaceholderDevice     = "{device}"
	PlaceholderSampleRate = "{sample_rate}"
)

// ExecAdapter runs a model as a child process, one process per file. The
// process prints its metrics as JSON on stdout and its errors on stderr.
type ExecAdapter struct {
	name       string
	argv       []string
	profile    *model.Profile
	classifier *FormatErrorClassifier
}

// NewExecAdapter creates an adapter for argv. When no argument contains the
// input placeholder the input path is appended.
func NewExecAdapter(name string, argv []string, profile *model.Profile, classifier *FormatErrorClassifier) *ExecAdapter {
	hasInput := false
	for _, a := range argv {
		if strings.Contains(a, PlaceholderInput) {
			hasInput = true
		}
	}
	args := append([]string(nil), argv...)
	if !hasInput {
		args = append(args, PlaceholderInput)
	}
	if classifier == nil {
		classifier = NewFormatErrorClassifier(nil)
	}
	return &ExecAdapter{name: name, argv: args, profile: profile, classifier: classifier}
}

func (a *ExecAdapter) Name() string {
	return a.name
}

// Init resolves the model executable.
func (a *ExecAdapter) Init(_ context.Context) error {
	if len(a.argv) == 0 || a.argv[0] == PlaceholderInput {
		return fmt.Errorf("%w: %s: empty command", model.ErrModelInitFailed, a.name)
	}
	if _, err := exec.LookPath(a.argv[0]); err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrModelInitFailed, a.name, err)
	}
	return nil
}

// Command returns the argv for req with placeholders substituted.
func (a *ExecAdapter) Command(req Request) []string {
	r := strings.NewReplacer(
		PlaceholderInput, req.Path,
		PlaceholderDevice, req.Device,
		PlaceholderSampleRate, strconv.Itoa(req.SampleRate),
	)
	out := make([]string, len(a.argv))
	for i, arg := range a.argv {
		out[i] = r.Replace(arg)
	}
	return out
}

func (a *ExecAdapter) Infer(ctx context.Context, req Request) (map[string]float64, error) {
	argv := a.Command(req)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := lastLine(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		var exitErr *exec.ExitError
		format := errors.As(err, &exitErr) && exitErr.ExitCode() == ExitUnreadableFormat
		return nil, &Error{
			Adapter: a.name,
			Message: msg,
			Format:  format || a.classifier.MatchesSignature(stderr.String()),
			Err:     err,
		}
	}

	metrics, err := ParseMetrics(stdout.Bytes(), a.profile)
	if err != nil {
		return nil, &Error{Adapter: a.name, Message: err.Error(), Err: err}
	}
	return metrics, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
