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

// Command analyze runs the video or voice analysis workflow on a local file
// and prints the report as indented JSON. It uses the same configuration
// files and model services as the server.
//
//	analyze video clip.webm
//	analyze voice --content-type audio/wav answer.wav
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/ana-landing/media-signals/internal/core/services"
	"github.com/ana-landing/media-signals/internal/inference"
	"github.com/ana-landing/media-signals/internal/media"
	"github.com/ana-landing/media-signals/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type options struct {
	contentType string
	configDir   string
	runtime     string
	logLevel    string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "analyze",
		Short:         "Analyse a recorded clip with the media-signals pipeline",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.contentType, "content-type", "", "content type of the file; sniffed from its header when empty")
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "configs", "directory holding the .env*.toml files")
	root.PersistentFlags().StringVar(&opts.runtime, "runtime", cloud.DefaultRuntime, "configuration runtime overlay")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		&cobra.Command{
			Use:   "video <file>",
			Short: "Transcript, traits, emotion and gesture for a video clip",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, opts, model.MediaKindVideo, args[0])
			},
		},
		&cobra.Command{
			Use:   "voice <file>",
			Short: "Transcript and traits for an audio clip",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, opts, model.MediaKindAudio, args[0])
			},
		},
	)
	return root
}

func run(cmd *cobra.Command, opts *options, kind model.MediaKind, path string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	telemetry.SetupLoggingTo(cmd.ErrOrStderr(), opts.logLevel)

	config, err := loadConfig(opts)
	if err != nil {
		return err
	}
	contentType, err := resolveContentType(opts.contentType, kind, path)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	clients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	registry := inference.NewRegistryFromConfig(config, clients)
	service := services.NewAnalysisService(config, registry, media.NewFFMpeg(config.Media))

	upload := &model.MediaUpload{Filename: path, ContentType: contentType, Body: file}
	var report *model.AnalysisReport
	if kind == model.MediaKindVideo {
		report, err = service.AnalyzeVideo(ctx, upload)
	} else {
		report, err = service.AnalyzeVoice(ctx, upload)
	}
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func loadConfig(opts *options) (*cloud.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read .env: %w", err)
	}
	if err := os.Setenv(cloud.EnvConfigFilePrefix, opts.configDir); err != nil {
		return nil, err
	}
	if err := os.Setenv(cloud.EnvConfigRuntime, opts.runtime); err != nil {
		return nil, err
	}
	config := cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return nil, err
	}
	return config, config.Validate()
}
