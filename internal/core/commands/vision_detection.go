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

	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// VisionDetection runs the emotion and gesture detectors concurrently over
// the same frame sample. Both only read the frames. If either fails the
// command records that error and neither result is kept.
type VisionDetection struct {
	cor.BaseCommand
	emotions *EmotionDetection
	gestures *GestureDetection
}

// NewVisionDetection is the constructor for the VisionDetection command.
func NewVisionDetection(name string, emotions *EmotionDetection, gestures *GestureDetection) *VisionDetection {
	out := &VisionDetection{BaseCommand: *cor.NewBaseCommand(name), emotions: emotions, gestures: gestures}
	out.InputParamName = ParamFrames
	return out
}

// Execute runs both detectors, each under its own span, and stores both
// results once they have both succeeded.
func (c *VisionDetection) Execute(context cor.Context) {
	sample := context.Get(c.GetInputParam()).(*model.FrameSample)

	var emotion, gesture *model.DetectionResult
	g, gctx := errgroup.WithContext(context.GetContext())
	g.Go(func() (err error) {
		emotion, err = traced(gctx, c.emotions, sample, c.emotions.Detect)
		return err
	})
	g.Go(func() (err error) {
		gesture, err = traced(gctx, c.gestures, sample, c.gestures.Detect)
		return err
	})
	if err := g.Wait(); err != nil {
		fail(c, context, err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.emotions.GetOutputParam(), emotion)
	context.Add(c.gestures.GetOutputParam(), gesture)
}

// traced runs detect under a span named after cmd and counts the outcome on
// cmd's own counters.
func traced(ctx context.Context, cmd cor.Command, sample *model.FrameSample,
	detect func(context.Context, *model.FrameSample) (*model.DetectionResult, error)) (*model.DetectionResult, error) {
	ctx, span := cmd.GetTracer().Start(ctx, cmd.GetName())
	defer span.End()

	result, err := detect(ctx, sample)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		cmd.GetErrorCounter().Add(ctx, 1)
		return nil, err
	}
	cmd.GetSuccessCounter().Add(ctx, 1)
	return result, nil
}
