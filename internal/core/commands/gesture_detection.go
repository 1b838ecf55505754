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

// GestureDetection finds the dominant static hand gesture in a frame sample.
// Each classified hand counts once; the hand landmark service reports at most
// max_hands hands per frame. Class ids without a label are skipped.
type GestureDetection struct {
	cor.BaseCommand
	registry *inference.Registry
	workers  int
}

// NewGestureDetection is the constructor for the GestureDetection command.
func NewGestureDetection(name string, registry *inference.Registry, workers int) *GestureDetection {
	out := &GestureDetection{
		BaseCommand: *cor.NewBaseCommand(name),
		registry:    registry,
		workers:     max(workers, 1),
	}
	out.InputParamName = ParamFrames
	out.OutputParamName = ParamGesture
	return out
}

// Execute runs Detect on the frame sample in the context.
func (c *GestureDetection) Execute(context cor.Context) {
	sample := context.Get(c.GetInputParam()).(*model.FrameSample)
	result, err := c.Detect(context.GetContext(), sample)
	if err != nil {
		fail(c, context, err)
		return
	}
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), result)
}

// Detect returns the dominant gesture, if any hand was classified, and the
// per-gesture hand counts.
func (c *GestureDetection) Detect(ctx context.Context, sample *model.FrameSample) (*model.DetectionResult, error) {
	histogram := model.NewDetectionHistogram()
	if sample.Len() == 0 {
		return &model.DetectionResult{Histogram: histogram}, nil
	}

	hands, err := c.registry.Hands()
	if err != nil {
		return nil, err
	}
	gestures, err := c.registry.Gestures()
	if err != nil {
		return nil, err
	}

	perFrame := make([][]string, sample.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, frame := range sample.Frames {
		g.Go(func() error {
			labels, err := classifyHands(gctx, hands, gestures, frame)
			if err != nil {
				return apperrors.NewInferenceError(fmt.Sprintf("gesture detection failed on frame %d", i), err)
			}
			perFrame[i] = labels
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, labels := range perFrame {
		for _, label := range labels {
			histogram.Add(label)
		}
	}
	result := &model.DetectionResult{Histogram: histogram}
	result.Dominant, result.Found = histogram.Dominant()
	slog.InfoContext(ctx, "gesture detection complete",
		"frames", sample.Len(), "hands", histogram.Total(), "dominant", result.Dominant)
	return result, nil
}

func classifyHands(
	ctx context.Context,
	hands inference.HandLandmarker,
	gestures *inference.GestureModel,
	frame image.Image) ([]string, error) {
	detected, err := hands.DetectHands(ctx, frame)
	if err != nil {
		return nil, err
	}
	bounds := frame.Bounds()
	labels := make([]string, 0, len(detected))
	for _, landmarks := range detected {
		features := vision.LandmarkFeatures(landmarks, bounds.Dx(), bounds.Dy())
		if features == nil {
			continue
		}
		classID, err := gestures.Classifier.ClassifyKeypoints(ctx, features)
		if err != nil {
			return nil, err
		}
		if label, ok := gestures.Labels.Label(classID); ok {
			labels = append(labels, label)
		}
	}
	return labels, nil
}
