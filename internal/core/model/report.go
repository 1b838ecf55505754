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

package model

// VisionReport is the video-only part of an AnalysisReport.
type VisionReport struct {
	DominantEmotion string              `json:"dominant_emotion"`
	DominantGesture *string             `json:"dominant_gesture"`
	Emotions        *DetectionHistogram `json:"emotions"`
	Gestures        *DetectionHistogram `json:"gestures"`
}

// AnalysisReport is the response body of both analysis endpoints.
type AnalysisReport struct {
	Transcript             string            `json:"transcript"`
	Predictions            []TraitPrediction `json:"predictions"`
	Vision                 *VisionReport     `json:"vision,omitempty"`
	Message                string            `json:"message,omitempty"`
	PredictionsUnavailable bool              `json:"predictions_unavailable,omitempty"`
}

// NeutralVision is the vision section reported when no frame was analysed.
func NeutralVision() *VisionReport {
	return &VisionReport{
		DominantEmotion: EmotionNeutral,
		Emotions:        NewDetectionHistogram(),
		Gestures:        NewDetectionHistogram(),
	}
}

// NewVisionReport combines the emotion and gesture detector results.
func NewVisionReport(emotion *DetectionResult, gesture *DetectionResult) *VisionReport {
	out := NeutralVision()
	if emotion != nil {
		if emotion.Dominant != "" {
			out.DominantEmotion = emotion.Dominant
		}
		if emotion.Histogram != nil {
			out.Emotions = emotion.Histogram
		}
	}
	if gesture != nil {
		if gesture.Found {
			dominant := gesture.Dominant
			out.DominantGesture = &dominant
		}
		if gesture.Histogram != nil {
			out.Gestures = gesture.Histogram
		}
	}
	return out
}

// NewAnalysisReport creates a report with an empty, non-nil prediction list.
func NewAnalysisReport(transcript string, predictions []TraitPrediction) *AnalysisReport {
	if predictions == nil {
		predictions = make([]TraitPrediction, 0)
	}
	return &AnalysisReport{Transcript: transcript, Predictions: predictions}
}

// NewShortUtteranceReport is returned when there is too little speech to
// analyse. Video reports carry a neutral vision section.
func NewShortUtteranceReport(transcript string, message string, withVision bool) *AnalysisReport {
	out := NewAnalysisReport(transcript, nil)
	out.Message = message
	if withVision {
		out.Vision = NeutralVision()
	}
	return out
}
