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

package inference_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/ana-landing/media-signals/internal/inference"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

const testTraitPrompt = "Example: {{ .EXAMPLE_JSON }}\nText: {{ .TEXT }}"

// geminiReply answers a generateContent call with text as the only part.
func geminiReply(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
		"usageMetadata": map[string]any{"promptTokenCount": 12, "candidatesTokenCount": 7},
	})
}

func newGeminiModel(t *testing.T, baseURL string) *cloud.QuotaAwareGenerativeAIModel {
	t.Helper()
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL + "/"},
	})
	require.NoError(t, err)
	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	return cloud.NewQuotaAwareModel(config, "gemini-test", client.Models, 100)
}

// stalledServer accepts requests and never answers until the client gives up.
func stalledServer(t *testing.T) *httptest.Server {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	return srv
}

func TestGeminiTraitClassifierRendersPromptAndStripsFence(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.NotEmpty(t, in.Contents)
		require.NotEmpty(t, in.Contents[0].Parts)
		prompt = in.Contents[0].Parts[0].Text
		geminiReply(w, "```json\n{\"predictions\":[{\"label\":\"Openness\",\"confidence\":0.7}]}\n```")
	}))
	defer srv.Close()

	classifier, err := inference.NewGeminiTraitClassifier(newGeminiModel(t, srv.URL), testTraitPrompt, 5*time.Second)
	require.NoError(t, err)
	predictions, err := classifier.Classify(context.Background(), "hello there")
	require.NoError(t, err)

	example, err := json.Marshal(model.GetExampleTraitResponse())
	require.NoError(t, err)
	assert.Equal(t, "Example: "+string(example)+"\nText: hello there", prompt)
	assert.Equal(t, []model.TraitPrediction{{Label: "Openness", Confidence: 0.7}}, predictions)
}

func TestGeminiTraitClassifierNullPredictions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geminiReply(w, `{"predictions":null}`)
	}))
	defer srv.Close()

	classifier, err := inference.NewGeminiTraitClassifier(newGeminiModel(t, srv.URL), testTraitPrompt, 5*time.Second)
	require.NoError(t, err)
	predictions, err := classifier.Classify(context.Background(), "hello there")
	require.NoError(t, err)
	assert.NotNil(t, predictions)
	assert.Empty(t, predictions)
}

func TestGeminiTraitClassifierInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geminiReply(w, "I am not sure about this one.")
	}))
	defer srv.Close()

	classifier, err := inference.NewGeminiTraitClassifier(newGeminiModel(t, srv.URL), testTraitPrompt, 5*time.Second)
	require.NoError(t, err)
	_, err = classifier.Classify(context.Background(), "hello there")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid json")
}

func TestGeminiTraitClassifierBadTemplate(t *testing.T) {
	_, err := inference.NewGeminiTraitClassifier(nil, "{{ .TEXT", time.Second)
	assert.Error(t, err)
}

func TestGeminiTraitClassifierTimesOut(t *testing.T) {
	srv := stalledServer(t)

	classifier, err := inference.NewGeminiTraitClassifier(newGeminiModel(t, srv.URL), testTraitPrompt, 100*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = classifier.Classify(context.Background(), "hello there")
	assert.Error(t, err)
	assert.True(t, time.Since(start) < 3*time.Second)
}

func TestRegistryAppliesTraitTimeoutToGemini(t *testing.T) {
	srv := stalledServer(t)

	config := cloud.NewConfig()
	config.Traits.Provider = cloud.ProviderGemini
	config.Traits.AgentModel = "trait-flash"
	config.Traits.TimeoutInSeconds = 1
	config.PromptTemplates.TraitPrompt = testTraitPrompt
	clients := &cloud.ServiceClients{AgentModels: map[string]*cloud.QuotaAwareGenerativeAIModel{
		"trait-flash": newGeminiModel(t, srv.URL),
	}}

	classifier, err := inference.NewRegistryFromConfig(config, clients).Traits()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := classifier.Classify(context.Background(), "hello there")
		done <- err
	}()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("gemini classification was not bounded by traits.timeout_in_seconds")
	}
}

func newOpenAIClient(srv *httptest.Server) *openai.Client {
	config := openai.DefaultConfig("test-key")
	config.BaseURL = srv.URL + "/v1"
	config.HTTPClient = srv.Client()
	return openai.NewClientWithConfig(config)
}

func TestOpenAIWhisperUploadsWav(t *testing.T) {
	wav := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(wav, []byte("RIFF0000WAVE"), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "clip.wav", header.Filename)
		body, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "RIFF0000WAVE", string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":" hello there "}`)
	}))
	defer srv.Close()

	whisper := inference.NewOpenAIWhisper(newOpenAIClient(srv), "", "en")
	assert.Equal(t, "openai-whisper-1", whisper.Name())
	text, err := whisper.Transcribe(context.Background(), wav)
	require.NoError(t, err)
	assert.Equal(t, " hello there ", text)
}

func TestOpenAIWhisperUpstreamError(t *testing.T) {
	wav := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(wav, []byte("RIFF0000WAVE"), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	_, err := inference.NewOpenAIWhisper(newOpenAIClient(srv), "whisper-1", "en").Transcribe(context.Background(), wav)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}
