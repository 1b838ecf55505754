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

package commands

import (
	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
)

// ReportAssembly composes the final report from the transcript, the trait
// predictions and, when withVision is set, the detector results.
type ReportAssembly struct {
	cor.BaseCommand
	withVision bool
}

// NewReportAssembly is the constructor for the ReportAssembly command.
func NewReportAssembly(name string, withVision bool) *ReportAssembly {
	out := &ReportAssembly{BaseCommand: *cor.NewBaseCommand(name), withVision: withVision}
	out.InputParamName = ParamTranscript
	out.OutputParamName = ParamReport
	return out
}

// Execute builds the final report from the transcript, predictions and vision results.
func (c *ReportAssembly) Execute(context cor.Context) {
	transcript := context.Get(c.GetInputParam()).(*model.Transcript)
	predictions, _ := context.Get(ParamPredictions).([]model.TraitPrediction)

	report := model.NewAnalysisReport(transcript.Text, predictions)
	report.PredictionsUnavailable, _ = context.Get(ParamPredictionsUnavailable).(bool)
	if c.withVision {
		emotion, _ := context.Get(ParamEmotion).(*model.DetectionResult)
		gesture, _ := context.Get(ParamGesture).(*model.DetectionResult)
		report.Vision = model.NewVisionReport(emotion, gesture)
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), report)
}
