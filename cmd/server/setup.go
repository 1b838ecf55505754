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

package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/ana-landing/media-signals/internal/core/services"
	"github.com/ana-landing/media-signals/internal/inference"
	"github.com/ana-landing/media-signals/internal/media"
	"github.com/joho/godotenv"
)

// StateManager holds the shared components for the application.
type StateManager struct {
	config   *cloud.Config
	cloud    *cloud.ServiceClients
	registry *inference.Registry
	analysis *services.AnalysisService
}

var state = &StateManager{}

// SetupOS loads a `.env` file, if present, and defaults the configuration
// directory and runtime when the environment does not set them.
func SetupOS() (err error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("unable to read .env file", "error", err)
	}
	if os.Getenv(cloud.EnvConfigFilePrefix) == "" {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if os.Getenv(cloud.EnvConfigRuntime) == "" {
		err = os.Setenv(cloud.EnvConfigRuntime, cloud.DefaultRuntime)
	}
	return err
}

// GetConfig loads and validates the application configuration once.
func GetConfig() *cloud.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to setup environment: %v\n", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			log.Fatalf("failed to load configuration: %v\n", err)
		}
		if err := config.Validate(); err != nil {
			log.Fatalf("invalid configuration: %v\n", err)
		}
		state.config = config
	}
	return state.config
}

// InitState creates the service clients, the model registry and the
// analysis service.
func InitState(ctx context.Context) {
	config := GetConfig()

	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		panic(err)
	}
	state.cloud = cloudClients

	ffmpeg := media.NewFFMpeg(config.Media)
	if !ffmpeg.Available() {
		slog.Warn("ffmpeg not found; every analysis will fail to transcode", "path", config.Media.FFMpegPath)
	}

	state.registry = inference.NewRegistryFromConfig(config, cloudClients)
	if config.Application.PreloadModels {
		if err := state.registry.Warmup(ctx); err != nil {
			slog.Error("some models are unavailable", "error", err)
		}
	}

	state.analysis = services.NewAnalysisService(config, state.registry, ffmpeg)
}
