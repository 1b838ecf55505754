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
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/genai"
)

// ServiceClients holds the clients for hosted services. Clients for providers
// that are not configured are nil.
type ServiceClients struct {
	GenAIClient  *genai.Client                           // Vertex AI client, set when traits.provider is "gemini".
	OpenAIClient *openai.Client                          // OpenAI client, set when speech.provider is "openai" and a key is present.
	AgentModels  map[string]*QuotaAwareGenerativeAIModel // Rate limited Gemini models keyed by their config name.
}

// NewHTTPClient returns an HTTP client whose requests are traced and carry
// the caller's trace context to the model services.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// NewCloudServiceClients creates the hosted service clients required by the
// configured providers.
//
// Inputs:
//   - ctx: The context for client creation.
//   - config: The application configuration.
//
// Outputs:
//   - *ServiceClients: The created clients.
//   - error: Non-nil if a configured client could not be created.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	cloud = &ServiceClients{AgentModels: make(map[string]*QuotaAwareGenerativeAIModel)}

	if config.Speech.Provider == ProviderOpenAI {
		apiKey := os.Getenv(config.Speech.APIKeyEnv)
		if apiKey == "" {
			slog.Warn("openai speech provider selected but no api key found", "env", config.Speech.APIKeyEnv)
		} else {
			oc := openai.DefaultConfig(apiKey)
			if config.Speech.BaseURL != "" {
				oc.BaseURL = config.Speech.BaseURL
			}
			oc.HTTPClient = NewHTTPClient(time.Duration(config.Speech.TimeoutInSeconds) * time.Second)
			cloud.OpenAIClient = openai.NewClientWithConfig(oc)
		}
	}

	if config.Traits.Provider != ProviderGemini {
		return cloud, nil
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		slog.Error("error creating genai client", "error", err)
		return nil, err
	}
	cloud.GenAIClient = gc

	for amKey, values := range config.AgentModels {
		model := &genai.GenerateContentConfig{
			Temperature:       genai.Ptr[float32](values.Temperature),
			TopP:              genai.Ptr[float32](values.TopP),
			TopK:              genai.Ptr[float32](values.TopK),
			MaxOutputTokens:   values.MaxTokens,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
			SafetySettings:    DefaultSafetySettings,
			ResponseMIMEType:  values.OutputFormat,
		}
		cloud.AgentModels[amKey] = NewQuotaAwareModel(model, values.Model, gc.Models, values.RateLimit)
	}
	return cloud, nil
}
