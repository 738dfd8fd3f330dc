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

// Package config implements a hierarchical configuration loader. It first
// reads a base configuration file and then overwrites values with a second,
// runtime-specific file (e.g. .env.local.toml, .env.test.toml).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	ConfigFileBaseName  = ".env"                  // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"                 // The file extension for configuration files.
	ConfigSeparator     = "."                     // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "AUDIOQC_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "AUDIOQC_RUNTIME"       // The environment variable for specifying the runtime (e.g., "local", "test").
	DefaultConfigPrefix = "configs"
	DefaultRuntime      = "local"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ResolveLocation returns the config directory and runtime, preferring the
// explicit arguments, then the environment, then the defaults.
func ResolveLocation(prefix, runtime string) (string, string) {
	if prefix == "" {
		prefix = os.Getenv(EnvConfigFilePrefix)
	}
	if prefix == "" {
		prefix = DefaultConfigPrefix
	}
	if runtime == "" {
		runtime = os.Getenv(EnvConfigRuntime)
	}
	if runtime == "" {
		runtime = DefaultRuntime
	}
	return prefix, runtime
}

// LoadConfig decodes <prefix>/.env.toml and then <prefix>/.env.<runtime>.toml
// into baseConfig. Missing files are skipped; decode errors are returned.
//
// Inputs:
//   - prefix: directory holding the configuration files.
//   - runtime: runtime name selecting the override file.
//   - baseConfig: pointer to the struct to populate, usually from NewConfig.
func LoadConfig(prefix string, runtime string, baseConfig interface{}) error {
	baseConfigFileName := filepath.Join(prefix, ConfigFileBaseName+ConfigFileExtension)
	envConfigFileName := filepath.Join(prefix, ConfigFileBaseName+ConfigSeparator+runtime+ConfigFileExtension)

	for _, name := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(name) {
			slog.Debug("configuration file not present", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Debug("loaded configuration file", "file", name)
	}
	return nil
}
