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

package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/BurntSushi/toml"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"                // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"               // The file extension for configuration files.
	ConfigSeparator     = "."                   // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "MEDIA_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "MEDIA_RUNTIME"       // The environment variable for specifying the runtime context (e.g., "local", "test", "prod").
	DefaultRuntime      = "local"
)

// fileExists checks if a file exists at the given path.
func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// ConfigFiles returns the base and runtime specific configuration file names
// derived from the environment.
func ConfigFiles() (base string, runtime string) {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = DefaultRuntime
	}

	base = configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	runtime = configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension
	return base, runtime
}

// LoadConfig populates baseConfig from TOML files in a hierarchical manner.
// It first loads a base configuration file (e.g., ".env.toml") and then
// loads an environment-specific file (e.g., ".env.local.toml") that can
// override the base settings. Missing files are skipped.
//
// Inputs:
//   - baseConfig: A pointer to the struct the TOML is decoded into.
//
// Outputs:
//   - error: Non-nil if an existing file could not be decoded.
func LoadConfig(baseConfig interface{}) error {
	baseConfigFileName, envConfigFileName := ConfigFiles()

	for _, fileName := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(fileName) {
			slog.Debug("configuration file not found, skipping", "file", fileName)
			continue
		}
		if _, err := toml.DecodeFile(fileName, baseConfig); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", fileName, err)
		}
		slog.Info("loaded configuration file", "file", fileName)
	}
	return nil
}

// GenerateTextResponse sends content to a generative model once and returns
// the concatenated text of all candidates, with any Markdown JSON fence removed.
// Token usage is recorded on the supplied counters.
func GenerateTextResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content) (value string, err error) {
	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		return "", err
	}
	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				b.WriteString(part.Text)
			}
		}
	}
	value = strings.TrimSpace(b.String())
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimSuffix(value, "```")
	return strings.TrimSpace(value), nil
}

// NewTextPart wraps a prompt as user content.
func NewTextPart(in string) []*genai.Content {
	return []*genai.Content{{Parts: []*genai.Part{{Text: in}}, Role: "user"}}
}
