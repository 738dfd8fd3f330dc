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

package transcode

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// Reason distinguishes the ways a transcode can fail.
type Reason string

const (
	ReasonExecutableNotFound Reason = "executable_not_found"
	ReasonProcessFailed      Reason = "process_failed"
	ReasonEmptyOutput        Reason = "empty_output"
	ReasonStartFailed        Reason = "start_failed"
)

// Error describes a failed transcode. It matches model.ErrTranscodeFailed
// with errors.Is.
type Error struct {
	Input    string
	Intent   Intent
	Reason   Reason
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonExecutableNotFound:
		return fmt.Sprintf("transcoder executable not found: %v", e.Err)
	case ReasonProcessFailed:
		if line := lastLine(e.Stderr); line != "" {
			return fmt.Sprintf("transcoder exited with status %d: %s", e.ExitCode, line)
		}
		return fmt.Sprintf("transcoder exited with status %d", e.ExitCode)
	case ReasonEmptyOutput:
		return "transcoder produced no output"
	default:
		return fmt.Sprintf("transcoder failed to start: %v", e.Err)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{model.ErrTranscodeFailed}
	}
	return []error{model.ErrTranscodeFailed, e.Err}
}

// IsExecutableNotFound reports whether err is a transcode failure caused by a
// missing ffmpeg executable.
func IsExecutableNotFound(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Reason == ReasonExecutableNotFound
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
