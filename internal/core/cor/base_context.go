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

// Package cor (Chain of Responsibility) provides the building blocks the
// pipeline is assembled from. This file defines `BaseContext`, the default
// Context. Every temporary file a command creates for the current input is
// registered here and removed by Close once the input reaches a terminal state.
package cor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// BaseContext is the default implementation of the Context interface.
type BaseContext struct {
	data      map[string]interface{}
	errors    map[string]error
	tempFiles []string
	context   context.Context
}

// NewBaseContext creates an empty context.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
	}
}

func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes every tracked temporary file. A file that is already gone
// counts as removed. Every other failure is logged and returned joined;
// the remaining files are still attempted. The manifest is cleared.
func (c *BaseContext) Close() error {
	var errs []error
	for _, file := range c.tempFiles {
		err := os.Remove(file)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			continue
		}
		slog.Warn("failed to remove temporary file", "file", file, "error", err)
		errs = append(errs, fmt.Errorf("remove %s: %w", file, err))
	}
	c.tempFiles = c.tempFiles[:0]
	return errors.Join(errs...)
}

func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

// AddTempFile tracks a file for removal by Close. Empty paths are ignored.
func (c *BaseContext) AddTempFile(file string) {
	if file == "" {
		return
	}
	c.tempFiles = append(c.tempFiles, file)
}

func (c *BaseContext) GetTempFiles() []string {
	return c.tempFiles
}

func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}
