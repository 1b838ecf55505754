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

package model_test

import (
	"encoding/json"
	"testing"

	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDominantPrefersHighestCount(t *testing.T) {
	h := model.NewDetectionHistogram()
	for _, l := range []string{"Sad", "Happy", "Happy", "Neutral", "Happy", "Sad"} {
		h.Add(l)
	}
	label, ok := h.Dominant()
	assert.True(t, ok)
	assert.Equal(t, "Happy", label)
	assert.Equal(t, 6, h.Total())
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []string{"Sad", "Happy", "Neutral"}, h.Labels())
}

func TestDominantTieGoesToFirstSeen(t *testing.T) {
	h := model.NewDetectionHistogram()
	for _, l := range []string{"Open", "Pointer", "Pointer", "Open"} {
		h.Add(l)
	}
	for i := 0; i < 3; i++ {
		label, ok := h.Dominant()
		assert.True(t, ok)
		assert.Equal(t, "Open", label)
	}
}

func TestDominantEmpty(t *testing.T) {
	label, ok := model.NewDetectionHistogram().Dominant()
	assert.False(t, ok)
	assert.Equal(t, "", label)
}

func TestHistogramJSON(t *testing.T) {
	h := model.NewDetectionHistogram()
	h.Add("Happy")
	h.Add("Angry")
	h.Add("Happy")

	out, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Happy":2,"Angry":1}`, string(out))

	empty, err := json.Marshal(model.NewDetectionHistogram())
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))

	var back model.DetectionHistogram
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, 2, back.Count("Happy"))
	assert.Equal(t, []string{"Angry", "Happy"}, back.Labels())
}

func TestEmotionLabel(t *testing.T) {
	assert.Equal(t, "Angry", model.EmotionLabel(0))
	assert.Equal(t, "Neutral", model.EmotionLabel(1))
	assert.Equal(t, "Happy", model.EmotionLabel(3))
	assert.Equal(t, "Surprise", model.EmotionLabel(6))
	assert.Equal(t, "Neutral", model.EmotionLabel(7))
	assert.Equal(t, "Neutral", model.EmotionLabel(-1))
}

func TestNewTranscript(t *testing.T) {
	tr := model.NewTranscript("  hello   there \n")
	assert.Equal(t, "hello   there", tr.Text)
	assert.Equal(t, 2, tr.WordCount)
	assert.Equal(t, 0, model.NewTranscript("   ").WordCount)
}

func TestTraitPredictionKeepsExtraFields(t *testing.T) {
	in := `[{"label":"Openness","confidence":0.81,"rank":1,"evidence":{"phrase":"hello"}},{"label":"Neuroticism","confidence":0.12}]`
	var predictions []model.TraitPrediction
	require.NoError(t, json.Unmarshal([]byte(in), &predictions))
	require.Len(t, predictions, 2)
	assert.Equal(t, "Openness", predictions[0].Label)
	assert.Equal(t, 0.81, predictions[0].Confidence)
	assert.Len(t, predictions[0].Extra, 2)
	assert.Nil(t, predictions[1].Extra)

	out, err := json.Marshal(predictions)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(out))
}

func TestShortUtteranceReportJSON(t *testing.T) {
	report := model.NewShortUtteranceReport("hi", "Please speak more so I can understand you better.", true)
	out, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"transcript": "hi",
		"predictions": [],
		"vision": {"dominant_emotion": "Neutral", "dominant_gesture": null, "emotions": {}, "gestures": {}},
		"message": "Please speak more so I can understand you better."
	}`, string(out))

	voice, err := json.Marshal(model.NewShortUtteranceReport("", "No speech detected.", false))
	require.NoError(t, err)
	assert.JSONEq(t, `{"transcript": "", "predictions": [], "message": "No speech detected."}`, string(voice))
}

func TestNewVisionReport(t *testing.T) {
	emotions := model.NewDetectionHistogram()
	emotions.Add("Happy")
	gestures := model.NewDetectionHistogram()
	gestures.Add("Open")

	vision := model.NewVisionReport(
		&model.DetectionResult{Dominant: "Happy", Found: true, Histogram: emotions},
		&model.DetectionResult{Dominant: "Open", Found: true, Histogram: gestures},
	)
	assert.Equal(t, "Happy", vision.DominantEmotion)
	require.NotNil(t, vision.DominantGesture)
	assert.Equal(t, "Open", *vision.DominantGesture)

	none := model.NewVisionReport(
		&model.DetectionResult{Dominant: model.EmotionNeutral, Histogram: model.NewDetectionHistogram()},
		&model.DetectionResult{Histogram: model.NewDetectionHistogram()},
	)
	assert.Equal(t, "Neutral", none.DominantEmotion)
	assert.Nil(t, none.DominantGesture)
}
