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
// Responsibility (COR) pattern's Command interface, one per analysis stage.
// This file defines the context keys the stages use to hand data to each
// other and the media capabilities they depend on.
//
// Every stage reads and writes named parameters rather than the chain's
// default CtxIn/CtxOut pair, because later stages need results produced
// several steps earlier (the source file is read by both the audio
// extractor and the frame sampler).
package commands

import (
	"context"

	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
)

// Context keys shared by the analysis commands.
const (
	ParamUpload                 = "upload"                  // *model.MediaUpload
	ParamSourcePath             = "source_path"             // string, the uploaded media on disk
	ParamAudioPath              = "audio_path"              // string, the extracted wav file
	ParamTranscript             = "transcript"              // *model.Transcript
	ParamPredictions            = "predictions"             // []model.TraitPrediction
	ParamPredictionsUnavailable = "predictions_unavailable" // bool
	ParamFrames                 = "frames"                  // *model.FrameSample
	ParamEmotion                = "emotion"                 // *model.DetectionResult
	ParamGesture                = "gesture"                 // *model.DetectionResult
	ParamReport                 = "report"                  // *model.AnalysisReport
)

// AudioExtractor converts media into the wav format the speech model expects.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, input string, output string) error
}

// FrameSampler decodes a bounded, ordered sample of frames from a video.
type FrameSampler interface {
	SampleFrames(ctx context.Context, input string, stride int, maxFrames int) *model.FrameSample
}

// fail counts and records a command's error on the context.
func fail(c cor.Command, context cor.Context, err error) {
	c.GetErrorCounter().Add(context.GetContext(), 1)
	context.AddError(c.GetName(), err)
}
