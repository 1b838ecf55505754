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
// facial emotion detector.
//
// Logic Flow:
// For each sampled frame the detector
//
//  1. asks the face model for face proposals,
//  2. keeps the single most confident face that passes the confidence and
//     minimum size filters,
//  3. crops it, converts it to a 48x48 grayscale tensor normalised to [0, 1],
//  4. asks the emotion model for class probabilities and maps the argmax to a
//     label through the sparse emotion label table.
//
// Frames are analysed by a bounded pool of workers but counted in frame
// order, so the histogram's insertion order (and therefore tie breaking) is
// deterministic. An empty sample returns Neutral without loading any model.
package commands

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/ana-landing/media-signals/internal/core/vision"
	"github.com/ana-landing/media-signals/internal/inference"
	"golang.org/x/sync/errgroup"
)

// EmotionDetection is a command that finds the dominant facial emotion in a
// frame sample.
type EmotionDetection struct {
	cor.BaseCommand
	registry *inference.Registry
	filter   vision.FaceFilter
	workers  int
}

// NewEmotionDetection is the constructor for the EmotionDetection command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - registry: The model registry providing the face and emotion models.
//   - filter: The face confidence and size thresholds.
//   - workers: The maximum number of frames analysed concurrently.
//
// Outputs:
//   - *EmotionDetection: A pointer to the newly instantiated command.
func NewEmotionDetection(name string, registry *inference.Registry, filter vision.FaceFilter, workers int) *EmotionDetection {
	out := &EmotionDetection{
		BaseCommand: *cor.NewBaseCommand(name),
		registry:    registry,
		filter:      filter,
		workers:     max(workers, 1),
	}
	out.InputParamName = ParamFrames
	out.OutputParamName = ParamEmotion
	return out
}

// Execute runs Detect on the frame sample in the context.
func (c *EmotionDetection) Execute(context cor.Context) {
	sample := context.Get(c.GetInputParam()).(*model.FrameSample)
	result, err := c.Detect(context.GetContext(), sample)
	if err != nil {
		fail(c, context, err)
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), result)
}

// Detect returns the dominant emotion across sample and the per-emotion
// frame counts. Frames without a usable face are not counted.
func (c *EmotionDetection) Detect(ctx context.Context, sample *model.FrameSample) (*model.DetectionResult, error) {
	histogram := model.NewDetectionHistogram()
	if sample.Len() == 0 {
		return &model.DetectionResult{Dominant: model.EmotionNeutral, Histogram: histogram}, nil
	}

	faces, err := c.registry.Faces()
	if err != nil {
		return nil, err
	}
	emotions, err := c.registry.Emotions()
	if err != nil {
		return nil, err
	}

	labels := make([]string, sample.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, frame := range sample.Frames {
		g.Go(func() error {
			label, err := c.classifyFrame(gctx, faces, emotions, frame)
			if err != nil {
				return apperrors.NewInferenceError(fmt.Sprintf("emotion detection failed on frame %d", i), err)
			}
			labels[i] = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, label := range labels {
		if label != "" {
			histogram.Add(label)
		}
	}
	result := &model.DetectionResult{Dominant: model.EmotionNeutral, Histogram: histogram}
	if dominant, ok := histogram.Dominant(); ok {
		result.Dominant = dominant
		result.Found = true
	}
	slog.InfoContext(ctx, "emotion detection complete",
		"frames", sample.Len(), "faces", histogram.Total(), "dominant", result.Dominant)
	return result, nil
}

// classifyFrame returns "" when the frame has no usable face.
func (c *EmotionDetection) classifyFrame(
	ctx context.Context,
	faces inference.FaceDetector,
	emotions inference.EmotionClassifier,
	frame image.Image) (string, error) {
	proposals, err := faces.DetectFaces(ctx, frame)
	if err != nil {
		return "", err
	}
	bounds := frame.Bounds()
	box, ok := vision.SelectFace(proposals, bounds.Dx(), bounds.Dy(), c.filter)
	if !ok {
		return "", nil
	}
	tensor, ok := vision.FaceTensor(frame, box)
	if !ok {
		return "", nil
	}
	probabilities, err := emotions.ClassifyEmotion(ctx, tensor)
	if err != nil {
		return "", err
	}
	return model.EmotionLabel(vision.Argmax(probabilities)), nil
}
