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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the clients for the hosted services the
// analysis pipeline talks to.
//
// Structs:
//   - Media: ffmpeg location and the audio/frame extraction parameters.
//   - Pipeline: short-utterance policy and classifier failure handling.
//   - Speech: speech-to-text provider settings.
//   - Traits: text trait classifier settings.
//   - Vision: face, emotion, hand landmark and keypoint model settings.
//   - VertexAiLLMModel: configuration for a Gemini model used as a classifier.
//   - PromptTemplates: prompt text for generative classifiers.
//   - Config: the top-level struct that aggregates all of the above.
package cloud

import (
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Provider names accepted by the speech and traits sections.
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// DefaultSafetySettings defines the default content safety thresholds for GenAI models.
// Transcripts are user speech and must reach the classifier unfiltered.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// PromptTemplates holds the text templates for prompts sent to GenAI models.
type PromptTemplates struct {
	TraitPrompt string `toml:"traits"` // Template for classifying a transcript; receives TEXT and EXAMPLE_JSON.
}

// VertexAiLLMModel is the configuration for a Vertex AI Large Language Model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output MIME type for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// Media configures the ffmpeg based audio extractor and frame sampler.
type Media struct {
	FFMpegPath  string `toml:"ffmpeg_path"`  // The ffmpeg executable, resolved through PATH if not absolute.
	SampleRate  int    `toml:"sample_rate"`  // Audio sample rate handed to the speech model.
	Channels    int    `toml:"channels"`     // Audio channel count handed to the speech model.
	FrameStride int    `toml:"frame_stride"` // Keep every Nth decoded frame.
	MaxFrames   int    `toml:"max_frames"`   // Upper bound on sampled frames.
}

// Pipeline configures the decisions the workflows make between stages.
type Pipeline struct {
	MinWords                   int    `toml:"min_words"`                     // Video transcripts shorter than this short-circuit.
	ShortUtteranceMessage      string `toml:"short_utterance_message"`       // Message attached to a short-circuited video report.
	NoSpeechMessage            string `toml:"no_speech_message"`             // Message attached to an empty voice report.
	PartialOnClassifierFailure bool   `toml:"partial_on_classifier_failure"` // Report vision results even if the trait classifier fails.
}

// Speech configures the speech-to-text model.
type Speech struct {
	Provider         string `toml:"provider"`           // "http" or "openai".
	URL              string `toml:"url"`                // Base URL of the speech service for the http provider.
	Model            string `toml:"model"`              // Model name passed to the http provider, e.g. "base.en".
	OpenAIModel      string `toml:"openai_model"`       // Model name passed to the openai provider.
	Language         string `toml:"language"`           // Spoken language hint.
	APIKeyEnv        string `toml:"api_key_env"`        // Environment variable holding the OpenAI API key.
	BaseURL          string `toml:"base_url"`           // Optional OpenAI compatible endpoint.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Request timeout.
}

// Traits configures the text trait classifier.
type Traits struct {
	Provider         string `toml:"provider"`           // "http" or "gemini".
	URL              string `toml:"url"`                // Full URL of the http classifier endpoint.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Request timeout.
	AgentModel       string `toml:"agent_model"`        // Key into AgentModels for the gemini provider.
}

// Vision configures the face, emotion and gesture models.
type Vision struct {
	FaceURL                string  `toml:"face_url"`                 // Base URL of the face detection service.
	EmotionURL             string  `toml:"emotion_url"`              // Base URL of the emotion classification service.
	HandsURL               string  `toml:"hands_url"`                // Base URL of the hand landmark service.
	KeypointURL            string  `toml:"keypoint_url"`             // Base URL of the keypoint classification service.
	KeypointLabels         string  `toml:"keypoint_labels"`          // CSV file of gesture labels, one per class id.
	PointHistoryLabels     string  `toml:"point_history_labels"`     // CSV file of motion labels; reserved for a motion classifier.
	FaceConfidence         float64 `toml:"face_confidence"`          // Minimum face detection confidence.
	MinFaceSize            int     `toml:"min_face_size"`            // Minimum face width and height in pixels.
	MaxHands               int     `toml:"max_hands"`                // Maximum hands analysed per frame.
	MinDetectionConfidence float64 `toml:"min_detection_confidence"` // Hand detection threshold.
	MinTrackingConfidence  float64 `toml:"min_tracking_confidence"`  // Hand tracking threshold.
	TimeoutInSeconds       int     `toml:"timeout_in_seconds"`       // Per request timeout for vision services.
}

// Telemetry selects where traces and metrics go.
type Telemetry struct {
	Exporter string `toml:"exporter"` // "gcp" or "none".
}

// Config is the top-level configuration of the service.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name            string   `toml:"name"`              // The name of the application.
		Version         string   `toml:"version"`           // Reported by the health endpoint.
		GoogleProjectId string   `toml:"google_project_id"` // The Google Cloud project ID, used by Gemini and the GCP exporters.
		GoogleLocation  string   `toml:"location"`          // The Google Cloud location.
		ThreadPoolSize  int      `toml:"thread_pool_size"`  // Workers used for per-frame inference.
		ListenAddress   string   `toml:"listen_address"`    // HTTP listen address.
		AllowedOrigins  []string `toml:"allowed_origins"`   // CORS origins.
		MaxUploadBytes  int64    `toml:"max_upload_bytes"`  // Upper bound on a request body.
		TempDir         string   `toml:"temp_dir"`          // Scratch directory for temp files; empty means the OS default.
		PreloadModels   bool     `toml:"preload_models"`    // Initialise every model at startup.
		LogLevel        string   `toml:"log_level"`         // debug, info, warn or error.
	} `toml:"application"`
	Media           Media                       `toml:"media"`
	Pipeline        Pipeline                    `toml:"pipeline"`
	Speech          Speech                      `toml:"speech"`
	Traits          Traits                      `toml:"traits"`
	Vision          Vision                      `toml:"vision"`
	Telemetry       Telemetry                   `toml:"telemetry"`
	PromptTemplates PromptTemplates             `toml:"prompt_templates"` // Prompt templates configuration.
	AgentModels     map[string]VertexAiLLMModel `toml:"agent_models"`     // Gemini models keyed by a logical name (e.g., "trait-flash").
}

// NewConfig creates a configuration populated with the service defaults.
// Values loaded from TOML override these.
func NewConfig() *Config {
	c := &Config{
		Media: Media{
			FFMpegPath:  "ffmpeg",
			SampleRate:  16000,
			Channels:    1,
			FrameStride: 12,
			MaxFrames:   60,
		},
		Pipeline: Pipeline{
			MinWords:              2,
			ShortUtteranceMessage: "Please speak more so I can understand you better.",
			NoSpeechMessage:       "No speech detected.",
		},
		Speech: Speech{
			Provider:         ProviderHTTP,
			Model:            "base.en",
			OpenAIModel:      "whisper-1",
			Language:         "en",
			APIKeyEnv:        "OPENAI_API_KEY",
			TimeoutInSeconds: 120,
		},
		Traits: Traits{
			Provider:         ProviderHTTP,
			TimeoutInSeconds: 60,
		},
		Vision: Vision{
			FaceConfidence:         0.85,
			MinFaceSize:            50,
			MaxHands:               2,
			MinDetectionConfidence: 0.7,
			MinTrackingConfidence:  0.5,
			TimeoutInSeconds:       30,
		},
		Telemetry:   Telemetry{Exporter: "none"},
		AgentModels: make(map[string]VertexAiLLMModel),
	}
	c.Application.Name = "media-signals"
	c.Application.Version = "dev"
	c.Application.GoogleLocation = "us-central1"
	c.Application.ThreadPoolSize = 4
	c.Application.ListenAddress = ":8000"
	c.Application.AllowedOrigins = []string{"http://localhost:3000"}
	c.Application.MaxUploadBytes = 100 << 20
	c.Application.LogLevel = "info"
	return c
}

// Validate reports settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Media.FrameStride < 1 {
		errs = append(errs, fmt.Errorf("media.frame_stride must be at least 1, got %d", c.Media.FrameStride))
	}
	if c.Media.MaxFrames < 0 {
		errs = append(errs, fmt.Errorf("media.max_frames must not be negative, got %d", c.Media.MaxFrames))
	}
	if c.Pipeline.MinWords < 1 {
		errs = append(errs, fmt.Errorf("pipeline.min_words must be at least 1, got %d", c.Pipeline.MinWords))
	}
	if c.Traits.TimeoutInSeconds < 1 {
		errs = append(errs, errors.New("traits.timeout_in_seconds must be positive"))
	}
	if c.Vision.MaxHands < 1 {
		errs = append(errs, errors.New("vision.max_hands must be at least 1"))
	}
	if c.Application.ThreadPoolSize < 1 {
		errs = append(errs, errors.New("application.thread_pool_size must be at least 1"))
	}
	switch c.Speech.Provider {
	case ProviderHTTP, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("speech.provider %q is not one of http, openai", c.Speech.Provider))
	}
	switch c.Traits.Provider {
	case ProviderHTTP, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("traits.provider %q is not one of http, gemini", c.Traits.Provider))
	}
	return errors.Join(errs...)
}
