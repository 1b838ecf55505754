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

// Package test provides utility functions and fakes that support the
// application's test suite: locating and loading the test configuration,
// in-memory stand-ins for every model service and the media toolkit, and
// small image and file system helpers.
package test

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ana-landing/media-signals/internal/cloud"
)

// StateManager acts as a simple in-memory cache for the application configuration
// during test runs, so configuration files are read once per test binary.
type StateManager struct {
	once   sync.Once
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test if err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// ProjectRoot walks up from the working directory to the directory holding
// go.mod. Tests run from their package directory, so relative config paths
// must be anchored here.
func ProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to get working directory: %v\n", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			log.Fatalf("go.mod not found above the working directory\n")
		}
		dir = parent
	}
}

// SetupOS points the configuration loader (`cloud.LoadConfig`) at the
// project's `configs` directory and the "test" runtime, so that
// `configs/.env.test.toml` overrides the base settings.
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, filepath.Join(ProjectRoot(), "configs"))
	if err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig loads the test configuration once and returns a copy, so a test
// may change its copy freely.
func GetConfig() *cloud.Config {
	state.once.Do(func() {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load test configuration: %v\n", err)
		}
		state.config = config
	})
	config := *state.config
	return &config
}

// NewTestConfig returns the test configuration with a private scratch
// directory, removed when the test ends.
func NewTestConfig(t *testing.T) *cloud.Config {
	t.Helper()
	config := GetConfig()
	config.Application.TempDir = t.TempDir()
	return config
}

// ScratchFiles lists the entries left in dir.
func ScratchFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
