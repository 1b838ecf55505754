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

package test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/ana-landing/media-signals/internal/core/vision"
	"github.com/ana-landing/media-signals/internal/inference"
)

// FakeTranscriber returns Text, or Err when set.
type FakeTranscriber struct {
	Text string
	Err  error
}

func (f *FakeTranscriber) Name() string { return "fake-speech" }

func (f *FakeTranscriber) Transcribe(_ context.Context, wavPath string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	if _, err := os.Stat(wavPath); err != nil {
		return "", err
	}
	return f.Text, nil
}

// FakeTraitClassifier records every text it is asked to classify.
type FakeTraitClassifier struct {
	Predictions []model.TraitPrediction
	Err         error

	mu    sync.Mutex
	calls []string
}

func (f *FakeTraitClassifier) Classify(_ context.Context, text string) ([]model.TraitPrediction, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Predictions, nil
}

// Calls returns the texts received so far.
func (f *FakeTraitClassifier) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// FakeFaceDetector returns the same proposals for every frame.
type FakeFaceDetector struct {
	Proposals []vision.FaceProposal
	Err       error
	calls     atomic.Int32
}

func (f *FakeFaceDetector) DetectFaces(context.Context, image.Image) ([]vision.FaceProposal, error) {
	f.calls.Add(1)
	return f.Proposals, f.Err
}

// Calls returns the number of frames seen.
func (f *FakeFaceDetector) Calls() int { return int(f.calls.Load()) }

// FakeEmotionClassifier returns the same probabilities for every face.
type FakeEmotionClassifier struct {
	Probabilities []float64
	Err           error
}

func (f *FakeEmotionClassifier) ClassifyEmotion(_ context.Context, face [][]float32) ([]float64, error) {
	if len(face) != vision.FaceInputSize {
		return nil, errors.New("face tensor has the wrong size")
	}
	return f.Probabilities, f.Err
}

// FakeHandLandmarker returns the same hands for every frame.
type FakeHandLandmarker struct {
	Hands [][]vision.Point
	Err   error
}

func (f *FakeHandLandmarker) DetectHands(context.Context, image.Image) ([][]vision.Point, error) {
	return f.Hands, f.Err
}

// FakeKeypointClassifier returns ClassID for every hand.
type FakeKeypointClassifier struct {
	ClassID int
	Err     error
}

func (f *FakeKeypointClassifier) ClassifyKeypoints(context.Context, []float64) (int, error) {
	return f.ClassID, f.Err
}

// Models is a set of fake models. A nil field leaves that model unconfigured.
type Models struct {
	Speech   *FakeTranscriber
	Traits   *FakeTraitClassifier
	Faces    *FakeFaceDetector
	Emotions *FakeEmotionClassifier
	Hands    *FakeHandLandmarker
	Keypoint *FakeKeypointClassifier
	Labels   inference.LabelTable

	loads atomic.Int32
}

// Loads returns how many models the registry built.
func (m *Models) Loads() int { return int(m.loads.Load()) }

// Registry returns a registry backed by the fakes.
func (m *Models) Registry() *inference.Registry {
	var l inference.Loaders
	if m.Speech != nil {
		l.Speech = func() (inference.Transcriber, error) { m.loads.Add(1); return m.Speech, nil }
	}
	if m.Traits != nil {
		l.Traits = func() (inference.TraitClassifier, error) { m.loads.Add(1); return m.Traits, nil }
	}
	if m.Faces != nil {
		l.Faces = func() (inference.FaceDetector, error) { m.loads.Add(1); return m.Faces, nil }
	}
	if m.Emotions != nil {
		l.Emotions = func() (inference.EmotionClassifier, error) { m.loads.Add(1); return m.Emotions, nil }
	}
	if m.Hands != nil {
		l.Hands = func() (inference.HandLandmarker, error) { m.loads.Add(1); return m.Hands, nil }
	}
	if m.Keypoint != nil {
		l.Gestures = func() (*inference.GestureModel, error) {
			m.loads.Add(1)
			return &inference.GestureModel{Classifier: m.Keypoint, Labels: m.Labels}, nil
		}
	}
	return inference.NewRegistry(l)
}

// NewHappyModels returns fakes that hear "hello there", see one confident
// large face that is Happy in every frame and one hand showing class 1
// ("Close").
func NewHappyModels() *Models {
	return &Models{
		Speech: &FakeTranscriber{Text: " hello there "},
		Traits: &FakeTraitClassifier{Predictions: []model.TraitPrediction{
			{Label: "Openness", Confidence: 0.81},
			{Label: "Neuroticism", Confidence: 0.12},
		}},
		Faces: &FakeFaceDetector{Proposals: []vision.FaceProposal{
			{Box: [4]float64{0.1, 0.1, 0.9, 0.9}, Confidence: 0.99},
		}},
		Emotions: &FakeEmotionClassifier{Probabilities: []float64{0.01, 0, 0.02, 0.9, 0.03, 0.02, 0.02}},
		Hands: &FakeHandLandmarker{Hands: [][]vision.Point{
			{{X: 0.5, Y: 0.5}, {X: 0.6, Y: 0.4}, {X: 0.7, Y: 0.3}},
		}},
		Keypoint: &FakeKeypointClassifier{ClassID: 1},
		Labels:   inference.LabelTable{"Open", "Close", "Pointer", "OK"},
	}
}

// FakeMediaToolkit stands in for ffmpeg. ExtractAudio writes a small wav
// header to the output path and SampleFrames returns Frames solid frames.
type FakeMediaToolkit struct {
	Frames     int
	Width      int
	Height     int
	ExtractErr error

	mu      sync.Mutex
	sampled []string
}

func (f *FakeMediaToolkit) ExtractAudio(_ context.Context, input string, output string) error {
	if f.ExtractErr != nil {
		return f.ExtractErr
	}
	if _, err := os.Stat(input); err != nil {
		return err
	}
	return os.WriteFile(output, []byte("RIFF\x00\x00\x00\x00WAVE"), 0o600)
}

func (f *FakeMediaToolkit) SampleFrames(_ context.Context, input string, _ int, maxFrames int) *model.FrameSample {
	f.mu.Lock()
	f.sampled = append(f.sampled, input)
	f.mu.Unlock()
	w, h := f.Width, f.Height
	if w == 0 || h == 0 {
		w, h = 160, 120
	}
	out := &model.FrameSample{}
	for i := 0; i < min(f.Frames, maxFrames); i++ {
		out.Frames = append(out.Frames, SolidFrame(w, h, color.Gray{Y: uint8(40 + i%200)}))
	}
	return out
}

// Sampled returns the inputs SampleFrames was called with.
func (f *FakeMediaToolkit) Sampled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sampled...)
}

// SolidFrame returns a w x h frame filled with c.
func SolidFrame(w int, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// NewFrameSample returns n solid frames of size w x h.
func NewFrameSample(n int, w int, h int) *model.FrameSample {
	out := &model.FrameSample{}
	for i := 0; i < n; i++ {
		out.Frames = append(out.Frames, SolidFrame(w, h, color.White))
	}
	return out
}
