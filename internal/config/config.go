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

// Package config defines the application's configuration structure. The
// struct maps directly onto the hierarchical TOML files read by LoadConfig,
// and NewConfig supplies the defaults that those files override.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Adapter kinds understood by the inference package.
const (
	AdapterExec = "exec"
	AdapterHTTP = "http"
)

// Telemetry exporters.
const (
	ExporterNone = "none"
	ExporterGCP  = "gcp"
)

var (
	DefaultAudioExtensions = []string{".wav", ".flac", ".mp3", ".m4a", ".ogg", ".aac", ".wma", ".aiff", ".au"}
	DefaultVideoExtensions = []string{".mp4", ".mov", ".avi", ".mkv", ".wmv", ".flv", ".webm", ".m4v"}

	// DefaultFormatErrorSignatures are the error fragments the audio decoders
	// behind the models emit when they cannot read a container or codec.
	DefaultFormatErrorSignatures = []string{"Format not recognised", "Error opening"}
)

// Media holds the discovery settings.
type Media struct {
	AudioExtensions []string `toml:"audio_extensions"` // Extensions classified as audio (case-insensitive).
	VideoExtensions []string `toml:"video_extensions"` // Extensions classified as video (case-insensitive).
	Recursive       bool     `toml:"recursive"`        // Walk subdirectories of the input directory.
	TempDir         string   `toml:"temp_dir"`         // Parent of the run-scoped temp directory; empty means os.TempDir().
}

// Transcoder holds the external ffmpeg settings.
type Transcoder struct {
	Command    string `toml:"command"`     // Path or name of the ffmpeg executable.
	SampleRate int    `toml:"sample_rate"` // Default output sample rate; models may override it.
	Channels   int    `toml:"channels"`    // Output channel count.
	Codec      string `toml:"codec"`       // Output audio codec.
}

// Model configures one inference adapter.
type Model struct {
	Kind                  string   `toml:"kind"`                    // "exec" or "http".
	Command               []string `toml:"command"`                 // argv template for exec adapters.
	Endpoint              string   `toml:"endpoint"`                // Inference URL for http adapters.
	HealthPath            string   `toml:"health_path"`             // Health route appended to the endpoint's host.
	SampleRate            int      `toml:"sample_rate"`             // Overrides the transcoder sample rate when set.
	MinDurationSeconds    float64  `toml:"min_duration_seconds"`    // Overrides the profile's minimum duration when set.
	NormalizeNonWAV       *bool    `toml:"normalize_non_wav"`       // Overrides the profile default when set.
	RequestsPerSecond     float64  `toml:"requests_per_second"`     // Zero disables rate limiting.
	FormatErrorSignatures []string `toml:"format_error_signatures"` // Substrings treated as unreadable-format errors.
}

// Telemetry configures the OpenTelemetry exporters.
type Telemetry struct {
	Exporter string `toml:"exporter"` // "none" or "gcp".
}

// Cloud holds Google Cloud settings shared by the storage and BigQuery clients.
type Cloud struct {
	GoogleProjectId string `toml:"google_project_id"`
	CredentialsFile string `toml:"credentials_file"`
}

// BigQuerySink configures the optional per-record BigQuery sink.
type BigQuerySink struct {
	Enabled     bool   `toml:"enabled"`
	DatasetName string `toml:"dataset"`
	Table       string `toml:"table"`
}

// Config is the top-level configuration for the application.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name      string `toml:"name"`       // The name of the application, used as the otel service name.
		Model     string `toml:"model"`      // Default model profile when -model is not given.
		Device    string `toml:"device"`     // Compute device passed to the inference adapter.
		LogLevel  string `toml:"log_level"`  // debug, info, warn or error.
		LogFormat string `toml:"log_format"` // json or text.
		LogFile   string `toml:"log_file"`   // Optional file receiving a copy of the log stream.
	} `toml:"application"`
	Media      Media            `toml:"media"`
	Transcoder Transcoder       `toml:"transcoder"`
	Models     map[string]Model `toml:"models"`
	Telemetry  Telemetry        `toml:"telemetry"`
	Cloud      Cloud            `toml:"cloud"`
	Sinks      struct {
		BigQuery BigQuerySink `toml:"big_query"`
	} `toml:"sinks"`
}

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	c := &Config{
		Media: Media{
			AudioExtensions: append([]string(nil), DefaultAudioExtensions...),
			VideoExtensions: append([]string(nil), DefaultVideoExtensions...),
			Recursive:       true,
		},
		Transcoder: Transcoder{
			Command:    "ffmpeg",
			SampleRate: 16000,
			Channels:   1,
			Codec:      "pcm_s16le",
		},
		Models:    make(map[string]Model),
		Telemetry: Telemetry{Exporter: ExporterNone},
	}
	c.Application.Name = "audioqc"
	c.Application.Model = "aesthetics"
	c.Application.Device = "auto"
	c.Application.LogLevel = "info"
	c.Application.LogFormat = "text"
	return c
}

// ModelConfig returns the adapter settings for a model name.
func (c *Config) ModelConfig(name string) (Model, bool) {
	m, ok := c.Models[name]
	return m, ok
}

// ModelNames returns the configured model names, sorted.
func (c *Config) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for k := range c.Models {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate checks the invariants the pipeline depends on.
func (c *Config) Validate() error {
	var errs []error
	audio := make(map[string]bool)
	for _, ext := range c.Media.AudioExtensions {
		audio[NormalizeExtension(ext)] = true
	}
	for _, ext := range c.Media.VideoExtensions {
		if audio[NormalizeExtension(ext)] {
			errs = append(errs, fmt.Errorf("extension %q is configured as both audio and video", ext))
		}
	}
	if len(c.Media.AudioExtensions)+len(c.Media.VideoExtensions) == 0 {
		errs = append(errs, errors.New("no media extensions configured"))
	}
	if strings.TrimSpace(c.Transcoder.Command) == "" {
		errs = append(errs, errors.New("transcoder command is empty"))
	}
	if c.Transcoder.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("invalid transcoder sample rate %d", c.Transcoder.SampleRate))
	}
	if c.Transcoder.Channels <= 0 {
		errs = append(errs, fmt.Errorf("invalid transcoder channel count %d", c.Transcoder.Channels))
	}
	for name, m := range c.Models {
		switch m.Kind {
		case AdapterExec:
			if len(m.Command) == 0 {
				errs = append(errs, fmt.Errorf("model %s: exec adapter requires a command", name))
			}
		case AdapterHTTP:
			if m.Endpoint == "" {
				errs = append(errs, fmt.Errorf("model %s: http adapter requires an endpoint", name))
			}
		default:
			errs = append(errs, fmt.Errorf("model %s: unknown adapter kind %q", name, m.Kind))
		}
	}
	switch c.Telemetry.Exporter {
	case "", ExporterNone:
	case ExporterGCP:
		if c.Cloud.GoogleProjectId == "" {
			errs = append(errs, errors.New("gcp telemetry requires cloud.google_project_id"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown telemetry exporter %q", c.Telemetry.Exporter))
	}
	if c.Sinks.BigQuery.Enabled && (c.Sinks.BigQuery.DatasetName == "" || c.Sinks.BigQuery.Table == "") {
		errs = append(errs, errors.New("big query sink requires dataset and table"))
	}
	return errors.Join(errs...)
}

// NormalizeExtension lower-cases an extension and guarantees a leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
