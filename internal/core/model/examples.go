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

// Package model. This file provides example instances embedded into generative
// model prompts, so that the model answers with the exact JSON shape the
// service decodes.
package model

// TraitResponse is the body returned by a trait classifier.
type TraitResponse struct {
	Predictions []TraitPrediction `json:"predictions"`
}

// GetExampleTraitResponse returns a representative classifier answer.
func GetExampleTraitResponse() *TraitResponse {
	return &TraitResponse{
		Predictions: []TraitPrediction{
			{Label: "Openness", Confidence: 0.81},
			{Label: "Extraversion", Confidence: 0.42},
			{Label: "Agreeableness", Confidence: 0.67},
		},
	}
}
