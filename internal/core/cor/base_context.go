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

// Package cor (Chain of Responsibility) provides the fundamental building blocks
// for creating workflows. This file defines `BaseContext`, the default
// implementation of the `Context` interface.
//
// The `Context` is the shared "property bag" passed through a chain of
// commands. Each command reads its inputs from the context, does its work and
// writes its results back for subsequent commands.
//
// This implementation includes:
//   - A map to hold arbitrary data (`data`).
//   - A map to collect errors from any command in the chain (`errors`).
//   - The temporary files owned by the request (`tempFiles`). The context is the
//     only component that deletes them, once, when `Close` is called.
//   - A halt flag a command can raise to end the chain early without an error.
//   - A standard Go `context.Context` for cancellation and OpenTelemetry spans.
package cor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
)

// DefaultTempFilePrefix is used for temp files when no prefix has been set.
const DefaultTempFilePrefix = "media-signals-"

// BaseContext is the default implementation of the Context interface. It holds
// the shared state for a workflow execution.
type BaseContext struct {
	data       map[string]interface{} // A map to store arbitrary key-value data.
	errors     map[string]error       // A map to store errors, keyed by the command name that produced them.
	tempFiles  []string               // Paths of temporary files owned by this context.
	tempDir    string                 // Directory used by AcquireTempFile; empty means os.TempDir().
	tempPrefix string                 // File name prefix used by AcquireTempFile.
	halted     bool                   // Set by Halt; the chain stops before the next command.
	context    context.Context        // The standard Go context for cancellation and passing request-scoped values.
}

// NewBaseContext is the constructor for BaseContext.
// It initializes all the internal maps and slices to ensure they are ready for use.
//
// Outputs:
//   - Context: A new, empty context object.
func NewBaseContext() Context {
	return &BaseContext{
		data:       make(map[string]interface{}),
		errors:     make(map[string]error),
		tempFiles:  make([]string, 0),
		tempPrefix: DefaultTempFilePrefix,
	}
}

// NewScopedContext creates a context bound to a Go context whose temporary
// files are created in dir with the given name prefix.
//
// Inputs:
//   - ctx: The request's Go context.
//   - dir: The scratch directory. An empty string selects os.TempDir().
//   - prefix: The file name prefix, typically derived from a request id.
//
// Outputs:
//   - Context: A new context. Callers must `defer Close()`.
func NewScopedContext(ctx context.Context, dir string, prefix string) Context {
	out := NewBaseContext().(*BaseContext)
	out.context = ctx
	out.tempDir = dir
	if prefix != "" {
		out.tempPrefix = prefix
	}
	return out
}

// SetContext sets the underlying standard Go context. This is used by the
// BaseChain to manage the context for OpenTelemetry spans.
func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

// GetContext retrieves the underlying standard Go context.
func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// AcquireTempFile creates a new, empty temporary file and registers it with
// the context before returning it. The caller owns the returned handle and must
// close it, but must never remove the file.
//
// Inputs:
//   - suffix: The file extension to use, including the dot (e.g. ".wav").
//
// Outputs:
//   - *os.File: The open file handle.
//   - error: Non-nil if the file could not be created.
func (c *BaseContext) AcquireTempFile(suffix string) (*os.File, error) {
	file, err := os.CreateTemp(c.tempDir, c.tempPrefix+"*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("could not create temp file: %w", err)
	}
	c.AddTempFile(file.Name())
	return file, nil
}

// Close releases every temporary file tracked by the context. Each file is
// removed at most once; removal failures are logged and never surfaced, so a
// cleanup problem cannot replace the request's result.
func (c *BaseContext) Close() {
	for _, file := range c.tempFiles {
		err := os.Remove(file)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove temporary file", "file", file, "error", err)
		}
	}
	c.tempFiles = c.tempFiles[:0]
}

// Add stores a key-value pair in the context's data map.
//
// Inputs:
//   - key: The string key to store the data under.
//   - value: The data (of any type) to store.
//
// Outputs:
//   - Context: The context instance, allowing for fluent method chaining.
func (c *BaseContext) Add(key string, value interface{}) Context {
	c.data[key] = value
	return c
}

// AddTempFile adds a file path to the list of temporary files that need cleanup.
func (c *BaseContext) AddTempFile(file string) {
	c.tempFiles = append(c.tempFiles, file)
}

// GetTempFiles returns a copy of the tracked temporary file paths.
func (c *BaseContext) GetTempFiles() []string {
	out := make([]string, len(c.tempFiles))
	copy(out, c.tempFiles)
	return out
}

// AddError adds an error to the context's error map, keyed by the command name.
//
// Inputs:
//   - key: The name of the command that generated the error.
//   - err: The error object.
func (c *BaseContext) AddError(key string, err error) {
	c.errors[key] = err
}

// GetErrors returns the map of all errors collected during the workflow.
func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

// Err folds every collected error into one, or returns nil.
func (c *BaseContext) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(c.errors))
	for _, key := range slices.Sorted(maps.Keys(c.errors)) {
		errs = append(errs, c.errors[key])
	}
	return errors.Join(errs...)
}

// Get retrieves a value from the context's data map by its key.
//
// Outputs:
//   - interface{}: The stored value, or `nil` if the key does not exist.
func (c *BaseContext) Get(key string) interface{} {
	return c.data[key]
}

// Remove deletes a key-value pair from the context's data map.
func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

// HasErrors checks if any errors have been added to the context.
func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}

// Halt marks the workflow as finished. Commands already running complete,
// but no further command in the chain is executed.
func (c *BaseContext) Halt() {
	c.halted = true
}

// IsHalted reports whether Halt has been called.
func (c *BaseContext) IsHalted() bool {
	return c.halted
}
