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

// MetricSpec describes one named scalar produced by a model.
type MetricSpec struct {
	Key   string // Key in the adapter's metric mapping (e.g. "CE", "SI-SDR").
	Label string // Human readable label used in the report.
	Unit  string // Optional unit suffix (e.g. "dB").
}

// Profile is the per-model description used by the pipeline and the report.
// One pipeline serves every model; the profile carries what differs between them.
type Profile struct {
	Name            string
	Title           string       // Report title line.
	MetricsHeading  string       // Heading printed above a record's metrics.
	Metrics         []MetricSpec // Metric order for rendering and averaging.
	SampleRate      int          // Sample rate the model expects.
	MinDuration     float64      // Seconds at the input's own rate. Shorter PCM inputs are zero padded. Zero disables padding.
	NormalizeNonWAV bool         // Re-encode every non-WAV audio input before the first attempt.
	RangeStats      bool         // Print minimum and maximum in the summary.
	Notes           []string     // Trailing lines printed after the summary.
}

// MetricKeys returns the metric keys in rendering order.
func (p *Profile) MetricKeys() []string {
	keys := make([]string, 0, len(p.Metrics))
	for _, m := range p.Metrics {
		keys = append(keys, m.Key)
	}
	return keys
}
