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

package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/ana-landing/media-signals/internal/cloud"
)

// Loaders construct each model. A nil loader means the model is not configured.
type Loaders struct {
	Speech   func() (Transcriber, error)
	Faces    func() (FaceDetector, error)
	Emotions func() (EmotionClassifier, error)
	Hands    func() (HandLandmarker, error)
	Gestures func() (*GestureModel, error)
	Traits   func() (TraitClassifier, error)
}

// Registry owns one instance of every model. Each model is built on first
// use, exactly once, even under concurrent first use. A model that fails to
// build keeps failing with the same ModelUnavailable error; it is never retried.
type Registry struct {
	speech   func() (Transcriber, error)
	faces    func() (FaceDetector, error)
	emotions func() (EmotionClassifier, error)
	hands    func() (HandLandmarker, error)
	gestures func() (*GestureModel, error)
	traits   func() (TraitClassifier, error)
}

// NewRegistry creates a registry from explicit loaders.
func NewRegistry(l Loaders) *Registry {
	return &Registry{
		speech:   lazy("speech", l.Speech),
		faces:    lazy("face", l.Faces),
		emotions: lazy("emotion", l.Emotions),
		hands:    lazy("hand landmark", l.Hands),
		gestures: lazy("gesture", l.Gestures),
		traits:   lazy("trait classifier", l.Traits),
	}
}

func lazy[T any](name string, load func() (T, error)) func() (T, error) {
	return sync.OnceValues(func() (T, error) {
		var zero T
		if load == nil {
			return zero, apperrors.NewModelUnavailableError(fmt.Sprintf("%s model is not configured", name), nil)
		}
		start := time.Now()
		value, err := load()
		if err != nil {
			if !apperrors.IsType(err, apperrors.ErrorTypeModelUnavailable) {
				err = apperrors.NewModelUnavailableError(fmt.Sprintf("%s model failed to load", name), err)
			}
			slog.Error("model unavailable", "model", name, "error", err)
			return zero, err
		}
		slog.Info("model loaded", "model", name, "duration", time.Since(start))
		return value, nil
	})
}

func (r *Registry) Speech() (Transcriber, error)         { return r.speech() }
func (r *Registry) Faces() (FaceDetector, error)         { return r.faces() }
func (r *Registry) Emotions() (EmotionClassifier, error) { return r.emotions() }
func (r *Registry) Hands() (HandLandmarker, error)       { return r.hands() }
func (r *Registry) Gestures() (*GestureModel, error)     { return r.gestures() }
func (r *Registry) Traits() (TraitClassifier, error)     { return r.traits() }

// Warmup builds every model now instead of on first request.
func (r *Registry) Warmup(ctx context.Context) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	_, err := r.Speech()
	collect(err)
	_, err = r.Faces()
	collect(err)
	_, err = r.Emotions()
	collect(err)
	_, err = r.Hands()
	collect(err)
	_, err = r.Gestures()
	collect(err)
	_, err = r.Traits()
	collect(err)
	if len(errs) == 0 {
		slog.InfoContext(ctx, "all models loaded")
	}
	return errors.Join(errs...)
}

func requireURL(name string, url string) error {
	if url == "" {
		return apperrors.NewModelUnavailableError(fmt.Sprintf("%s model url is not configured", name), nil)
	}
	return nil
}

// NewRegistryFromConfig wires the model services named in config.
func NewRegistryFromConfig(config *cloud.Config, clients *cloud.ServiceClients) *Registry {
	visionHTTP := NewHTTP(cloud.NewHTTPClient(time.Duration(config.Vision.TimeoutInSeconds) * time.Second))
	v := config.Vision

	return NewRegistry(Loaders{
		Speech: func() (Transcriber, error) {
			switch config.Speech.Provider {
			case cloud.ProviderOpenAI:
				if clients == nil || clients.OpenAIClient == nil {
					return nil, apperrors.NewModelUnavailableError(
						fmt.Sprintf("openai speech provider needs an api key in %s", config.Speech.APIKeyEnv), nil)
				}
				return NewOpenAIWhisper(clients.OpenAIClient, config.Speech.OpenAIModel, config.Speech.Language), nil
			default:
				if err := requireURL("speech", config.Speech.URL); err != nil {
					return nil, err
				}
				h := NewHTTP(cloud.NewHTTPClient(time.Duration(config.Speech.TimeoutInSeconds) * time.Second))
				return NewWhisperService(h, config.Speech.URL, config.Speech.Model, config.Speech.Language), nil
			}
		},
		Faces: func() (FaceDetector, error) {
			if err := requireURL("face", v.FaceURL); err != nil {
				return nil, err
			}
			return NewFaceService(visionHTTP, v.FaceURL), nil
		},
		Emotions: func() (EmotionClassifier, error) {
			if err := requireURL("emotion", v.EmotionURL); err != nil {
				return nil, err
			}
			return NewEmotionService(visionHTTP, v.EmotionURL), nil
		},
		Hands: func() (HandLandmarker, error) {
			if err := requireURL("hand landmark", v.HandsURL); err != nil {
				return nil, err
			}
			return NewHandService(visionHTTP, v.HandsURL, v.MaxHands, v.MinDetectionConfidence, v.MinTrackingConfidence), nil
		},
		Gestures: func() (*GestureModel, error) {
			if err := requireURL("keypoint", v.KeypointURL); err != nil {
				return nil, err
			}
			if _, err := os.Stat(v.KeypointLabels); err != nil {
				return nil, apperrors.NewModelUnavailableError("keypoint label file is missing", err)
			}
			labels, err := LoadLabelTable(v.KeypointLabels)
			if err != nil {
				return nil, err
			}
			return &GestureModel{Classifier: NewKeypointService(visionHTTP, v.KeypointURL), Labels: labels}, nil
		},
		Traits: func() (TraitClassifier, error) {
			switch config.Traits.Provider {
			case cloud.ProviderGemini:
				if clients == nil || clients.AgentModels[config.Traits.AgentModel] == nil {
					return nil, apperrors.NewModelUnavailableError(
						fmt.Sprintf("gemini agent model %q is not configured", config.Traits.AgentModel), nil)
				}
				return NewGeminiTraitClassifier(clients.AgentModels[config.Traits.AgentModel], config.PromptTemplates.TraitPrompt,
					time.Duration(config.Traits.TimeoutInSeconds)*time.Second)
			default:
				if err := requireURL("trait classifier", config.Traits.URL); err != nil {
					return nil, err
				}
				h := NewHTTP(cloud.NewHTTPClient(time.Duration(config.Traits.TimeoutInSeconds) * time.Second))
				return NewTraitService(h, config.Traits.URL), nil
			}
		},
	})
}
