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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
)

// TraitClassifier predicts personality traits from a transcript.
type TraitClassifier interface {
	Classify(ctx context.Context, text string) ([]model.TraitPrediction, error)
}

// TraitService posts {"text": ...} to a classifier endpoint and relays its
// predictions verbatim.
type TraitService struct {
	http *HTTP
	url  string
}

// NewTraitService creates a client for the classifier endpoint at url. The
// HTTP client's timeout bounds each call.
func NewTraitService(h *HTTP, url string) *TraitService {
	return &TraitService{http: h, url: url}
}

func (t *TraitService) Classify(ctx context.Context, text string) ([]model.TraitPrediction, error) {
	in := struct {
		Text string `json:"text"`
	}{Text: text}
	var out model.TraitResponse
	if err := t.http.postJSON(ctx, "classifier", t.url, in, &out); err != nil {
		return nil, err
	}
	if out.Predictions == nil {
		out.Predictions = make([]model.TraitPrediction, 0)
	}
	return out.Predictions, nil
}

// GeminiTraitClassifier asks a Gemini model to classify a transcript. The
// prompt template receives TEXT and EXAMPLE_JSON. Each call, including the
// wait for rate limit quota, is bounded by timeout.
type GeminiTraitClassifier struct {
	model              *cloud.QuotaAwareGenerativeAIModel
	prompt             *template.Template
	timeout            time.Duration
	exampleJSON        string
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
}

// NewGeminiTraitClassifier parses promptTemplate and binds it to genModel.
// A timeout of zero leaves calls bounded only by the caller's context.
func NewGeminiTraitClassifier(genModel *cloud.QuotaAwareGenerativeAIModel, promptTemplate string, timeout time.Duration) (*GeminiTraitClassifier, error) {
	prompt, err := template.New("trait-template").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("trait prompt: %w", err)
	}
	example, err := json.Marshal(model.GetExampleTraitResponse())
	if err != nil {
		return nil, err
	}
	meter := otel.Meter(cor.MeterName)
	out := &GeminiTraitClassifier{model: genModel, prompt: prompt, timeout: timeout, exampleJSON: string(example)}
	out.inputTokenCounter, _ = meter.Int64Counter("trait-classifier.gemini.token.input")
	out.outputTokenCounter, _ = meter.Int64Counter("trait-classifier.gemini.token.output")
	return out, nil
}

func (g *GeminiTraitClassifier) Classify(ctx context.Context, text string) ([]model.TraitPrediction, error) {
	vocabulary := map[string]string{
		"TEXT":         text,
		"EXAMPLE_JSON": g.exampleJSON,
	}
	var doc bytes.Buffer
	if err := g.prompt.Execute(&doc, vocabulary); err != nil {
		return nil, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	value, err := cloud.GenerateTextResponse(ctx, g.inputTokenCounter, g.outputTokenCounter, g.model, cloud.NewTextPart(doc.String()))
	if err != nil {
		return nil, err
	}
	var out model.TraitResponse
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, fmt.Errorf("gemini classifier returned invalid json: %w", err)
	}
	if out.Predictions == nil {
		out.Predictions = make([]model.TraitPrediction, 0)
	}
	return out.Predictions, nil
}
