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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// bridge to the text trait classifier.
//
// The classifier is a separate service (or a Gemini model); this command only
// forwards the transcript and relays the predictions verbatim. A classifier
// failure normally fails the request. When partial results are enabled the
// command records empty predictions, marks them unavailable and lets the
// vision stages run.
package commands

import (
	"log/slog"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/ana-landing/media-signals/internal/inference"
)

// TraitClassification is a command that classifies the transcript text.
type TraitClassification struct {
	cor.BaseCommand
	registry *inference.Registry
	partial  bool
}

// NewTraitClassification is the constructor for the TraitClassification command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - registry: The model registry providing the trait classifier.
//   - partial: If true, a classifier failure degrades to empty predictions.
//
// Outputs:
//   - *TraitClassification: A pointer to the newly instantiated command.
func NewTraitClassification(name string, registry *inference.Registry, partial bool) *TraitClassification {
	out := &TraitClassification{BaseCommand: *cor.NewBaseCommand(name), registry: registry, partial: partial}
	out.InputParamName = ParamTranscript
	out.OutputParamName = ParamPredictions
	return out
}

// Execute sends the transcript text, exactly as transcribed, to the classifier.
func (c *TraitClassification) Execute(context cor.Context) {
	transcript := context.Get(c.GetInputParam()).(*model.Transcript)

	predictions, err := c.classify(context, transcript.Text)
	if err != nil {
		if !c.partial {
			fail(c, context, err)
			return
		}
		c.GetErrorCounter().Add(context.GetContext(), 1)
		slog.WarnContext(context.GetContext(), "trait predictions unavailable", "error", err)
		context.Add(c.GetOutputParam(), make([]model.TraitPrediction, 0))
		context.Add(ParamPredictionsUnavailable, true)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), predictions)
}

func (c *TraitClassification) classify(context cor.Context, text string) ([]model.TraitPrediction, error) {
	classifier, err := c.registry.Traits()
	if err != nil {
		return nil, err
	}
	predictions, err := classifier.Classify(context.GetContext(), text)
	if err != nil {
		return nil, apperrors.NewUpstreamClassifierError("classifier error", err)
	}
	if predictions == nil {
		predictions = make([]model.TraitPrediction, 0)
	}
	return predictions, nil
}
