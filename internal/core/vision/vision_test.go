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

package vision_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/ana-landing/media-signals/internal/core/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFaceFiltersAndClamps(t *testing.T) {
	filter := vision.DefaultFaceFilter()
	proposals := []vision.FaceProposal{
		// Below the confidence threshold.
		{Box: [4]float64{0.0, 0.0, 0.5, 0.5}, Confidence: 0.84},
		// Too small: 40x40 pixels.
		{Box: [4]float64{0.1, 0.1, 0.2, 0.2}, Confidence: 0.99},
		// Extends past the frame; clamped to (0,0)-(399,399).
		{Box: [4]float64{-0.1, -0.1, 1.2, 1.2}, Confidence: 0.9},
	}
	box, ok := vision.SelectFace(proposals, 400, 400, filter)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 399, 399), box)
}

func TestSelectFacePrefersStrictlyHigherConfidence(t *testing.T) {
	filter := vision.DefaultFaceFilter()
	proposals := []vision.FaceProposal{
		{Box: [4]float64{0.0, 0.0, 0.5, 0.5}, Confidence: 0.9},
		{Box: [4]float64{0.5, 0.5, 1.0, 1.0}, Confidence: 0.9},
		{Box: [4]float64{0.25, 0.25, 0.75, 0.75}, Confidence: 0.95},
	}
	box, ok := vision.SelectFace(proposals[:2], 200, 200, filter)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 100, 100), box)

	box, ok = vision.SelectFace(proposals, 200, 200, filter)
	require.True(t, ok)
	assert.Equal(t, image.Rect(50, 50, 150, 150), box)
}

func TestSelectFaceNone(t *testing.T) {
	_, ok := vision.SelectFace(nil, 640, 480, vision.DefaultFaceFilter())
	assert.False(t, ok)
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, -1, vision.Argmax(nil))
	assert.Equal(t, 3, vision.Argmax([]float64{0.1, 0.2, 0.1, 0.5, 0.1}))
	assert.Equal(t, 1, vision.Argmax([]float64{0.1, 0.4, 0.4}))
}

func TestFaceTensor(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			frame.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	tensor, ok := vision.FaceTensor(frame, image.Rect(20, 10, 120, 90))
	require.True(t, ok)
	require.Len(t, tensor, vision.FaceInputSize)
	for _, row := range tensor {
		require.Len(t, row, vision.FaceInputSize)
		for _, v := range row {
			assert.InDelta(t, 1.0, v, 0.01)
		}
	}

	_, ok = vision.FaceTensor(frame, image.Rect(300, 300, 400, 400))
	assert.False(t, ok)
}

func TestLandmarkFeatures(t *testing.T) {
	points := []vision.Point{
		{X: 0.5, Y: 0.5},  // wrist at (50, 50)
		{X: 0.75, Y: 0.5}, // (75, 50)
		{X: 0.5, Y: 0.0},  // (50, 0)
		{X: 1.0, Y: 1.0},  // clamped to (99, 99)
	}
	features := vision.LandmarkFeatures(points, 100, 100)
	// Offsets (0,0) (25,0) (0,-50) (49,49), divided by 50.
	assert.InDeltaSlice(t, []float64{0, 0, 0.5, 0, 0, -1, 0.98, 0.98}, features, 1e-9)
}

func TestLandmarkFeaturesScaleFloor(t *testing.T) {
	// Every landmark on the wrist: nothing to scale, the divisor stays 1.
	points := []vision.Point{{X: 0.2, Y: 0.2}, {X: 0.2, Y: 0.2}}
	assert.Equal(t, []float64{0, 0, 0, 0}, vision.LandmarkFeatures(points, 10, 10))
	assert.Nil(t, vision.LandmarkFeatures(nil, 10, 10))
}
