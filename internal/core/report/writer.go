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

// Package report renders the plain-text results report. The output depends
// only on the records, so identical runs produce identical reports.
package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

var (
	titleRule   = strings.Repeat("=", 50)
	blockRule   = strings.Repeat("-", 30)
	summaryRule = strings.Repeat("=", 20)
)

// Stat is the summary of one metric across successful records.
type Stat struct {
	Metric model.MetricSpec
	Count  int
	Mean   float64
	Min    float64
	Max    float64
}

// Summarize computes per-metric statistics over successful records, in
// profile order. Metrics no successful record reported are omitted.
func Summarize(profile *model.Profile, records []*model.ProcessingRecord) []Stat {
	var stats []Stat
	for _, spec := range profile.Metrics {
		s := Stat{Metric: spec, Min: math.Inf(1), Max: math.Inf(-1)}
		sum := 0.0
		for _, r := range records {
			if !r.Outcome.Succeeded() {
				continue
			}
			v, ok := r.Outcome.Metrics[spec.Key]
			if !ok {
				continue
			}
			s.Count++
			sum += v
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
		}
		if s.Count == 0 {
			continue
		}
		s.Mean = sum / float64(s.Count)
		stats = append(stats, s)
	}
	return stats
}

func withUnit(v float64, unit string) string {
	if unit == "" {
		return fmt.Sprintf("%.3f", v)
	}
	return fmt.Sprintf("%.3f %s", v, unit)
}

// Render writes the report for records to w.
func Render(w io.Writer, profile *model.Profile, records []*model.ProcessingRecord) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%s\n\n", profile.Title, titleRule)

	succeeded := 0
	for _, r := range records {
		fmt.Fprintf(bw, "File: %s\n", r.DisplayName)
		fmt.Fprintf(bw, "Path: %s\n", r.SourcePath)
		if r.Outcome.Succeeded() {
			succeeded++
			fmt.Fprintf(bw, "%s:\n", profile.MetricsHeading)
			for _, spec := range profile.Metrics {
				if v, ok := r.Outcome.Metrics[spec.Key]; ok {
					fmt.Fprintf(bw, "  %s: %s\n", spec.Label, withUnit(v, spec.Unit))
				} else {
					fmt.Fprintf(bw, "  %s: N/A\n", spec.Label)
				}
			}
		} else {
			fmt.Fprintf(bw, "Error: %s\n", r.Outcome.Failure.Message)
		}
		fmt.Fprintf(bw, "\n%s\n\n", blockRule)
	}

	if succeeded > 0 {
		fmt.Fprintf(bw, "Summary Statistics:\n%s\n", summaryRule)
		fmt.Fprintf(bw, "Total files processed: %d\n", len(records))
		fmt.Fprintf(bw, "Successful: %d\n", succeeded)
		fmt.Fprintf(bw, "Failed: %d\n", len(records)-succeeded)
		for _, s := range Summarize(profile, records) {
			fmt.Fprintf(bw, "Average %s: %s\n", s.Metric.Key, withUnit(s.Mean, s.Metric.Unit))
			if profile.RangeStats {
				fmt.Fprintf(bw, "Minimum %s: %s\n", s.Metric.Key, withUnit(s.Min, s.Metric.Unit))
				fmt.Fprintf(bw, "Maximum %s: %s\n", s.Metric.Key, withUnit(s.Max, s.Metric.Unit))
			}
		}
		if len(profile.Notes) > 0 {
			fmt.Fprintf(bw, "\n%s\n", strings.Join(profile.Notes, "\n"))
		}
	}
	return bw.Flush()
}

// WriteFile renders the report into path, replacing any existing file.
// Every failure wraps model.ErrReportWriteFailed.
func WriteFile(path string, profile *model.Profile, records []*model.ProcessingRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrReportWriteFailed, err)
	}
	if err := Render(f, profile, records); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", model.ErrReportWriteFailed, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrReportWriteFailed, path, err)
	}
	return nil
}
