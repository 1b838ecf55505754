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

// Package workflow defines the high-level business logic orchestrations,
// combining the analysis commands into coherent pipelines. This file
// implements the video and voice analysis workflows.
package workflow

import (
	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/ana-landing/media-signals/internal/core/commands"
	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/ana-landing/media-signals/internal/core/vision"
	"github.com/ana-landing/media-signals/internal/inference"
)

// DefaultUploadSuffix names saved uploads whose container cannot be sniffed.
// Browsers record clips as WebM.
const DefaultUploadSuffix = ".webm"

// MediaToolkit is the media tooling the workflows need, normally `*media.FFMpeg`.
type MediaToolkit interface {
	commands.AudioExtractor
	commands.FrameSampler
}

// AnalysisWorkflow is a Chain of Responsibility (cor.Chain) that turns one
// uploaded clip into an `model.AnalysisReport`. The upload is read from
// `commands.ParamUpload` and the report is written to `commands.ParamReport`.
//
// Every temporary file the workflow creates is acquired from the context, so
// the caller's `defer context.Close()` removes them however the chain ends.
type AnalysisWorkflow struct {
	cor.BaseCommand
	config   *cloud.Config
	registry *inference.Registry
	toolkit  MediaToolkit
	video    bool
	chain    cor.Chain // The underlying chain of commands to be executed.
}

// Execute runs the workflow by invoking the underlying chain.
//
// Inputs:
//   - context: The chain of responsibility context for this execution. It
//     must carry the upload under `commands.ParamUpload`.
func (w *AnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// IsExecutable reports whether the context carries an upload.
func (w *AnalysisWorkflow) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && context.Get(commands.ParamUpload) != nil
}

// initializeChain builds the sequence of commands that make up this workflow.
func (w *AnalysisWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())
	pipeline := w.config.Pipeline

	// Step 1: Stream the upload to a temporary file owned by the context.
	out.AddCommand(commands.NewUploadToTempFile("upload-to-temp-file", DefaultUploadSuffix))

	// Step 2: Extract a mono 16 kHz wav track for the speech model.
	out.AddCommand(commands.NewAudioExtraction("extract-audio", w.toolkit))

	// Step 3: Transcribe the audio.
	out.AddCommand(commands.NewTranscription("transcribe-audio", w.registry))

	// Step 4: Too little speech ends the workflow here with a neutral report;
	// the classifier and the vision models are never called.
	if w.video {
		out.AddCommand(commands.NewShortUtteranceGuard("short-utterance-guard",
			pipeline.MinWords, pipeline.ShortUtteranceMessage, true))
	} else {
		out.AddCommand(commands.NewShortUtteranceGuard("no-speech-guard",
			1, pipeline.NoSpeechMessage, false))
	}

	// Step 5: Relay the transcript to the text trait classifier.
	out.AddCommand(commands.NewTraitClassification("classify-traits", w.registry, pipeline.PartialOnClassifierFailure))

	if w.video {
		// Step 6: Decode a bounded sample of frames from the source video.
		out.AddCommand(commands.NewFrameSampling("sample-frames", w.toolkit,
			w.config.Media.FrameStride, w.config.Media.MaxFrames))

		// Step 7: Detect emotions and gestures concurrently over the sample.
		workers := w.config.Application.ThreadPoolSize
		filter := vision.FaceFilter{MinConfidence: w.config.Vision.FaceConfidence, MinSize: w.config.Vision.MinFaceSize}
		out.AddCommand(commands.NewVisionDetection("detect-vision",
			commands.NewEmotionDetection("detect-emotion", w.registry, filter, workers),
			commands.NewGestureDetection("detect-gesture", w.registry, workers)))
	}

	// Step 8: Compose the report.
	out.AddCommand(commands.NewReportAssembly("assemble-report", w.video))

	w.chain = out
}

// NewVideoAnalysisWorkflow is the constructor for the video workflow:
// upload, audio, transcript, short-utterance guard, traits, frames,
// emotion and gesture detection, report.
//
// Inputs:
//   - config: The application's overall configuration.
//   - registry: The model registry.
//   - toolkit: The media tooling used for audio extraction and frame sampling.
//
// Returns:
//   - A pointer to a newly created and fully initialized AnalysisWorkflow.
func NewVideoAnalysisWorkflow(config *cloud.Config, registry *inference.Registry, toolkit MediaToolkit) *AnalysisWorkflow {
	return newAnalysisWorkflow("video-analysis-workflow", config, registry, toolkit, true)
}

// NewVoiceAnalysisWorkflow is the constructor for the voice workflow:
// upload, audio, transcript, no-speech guard, traits, report.
func NewVoiceAnalysisWorkflow(config *cloud.Config, registry *inference.Registry, toolkit MediaToolkit) *AnalysisWorkflow {
	return newAnalysisWorkflow("voice-analysis-workflow", config, registry, toolkit, false)
}

func newAnalysisWorkflow(name string, config *cloud.Config, registry *inference.Registry, toolkit MediaToolkit, video bool) *AnalysisWorkflow {
	w := &AnalysisWorkflow{
		BaseCommand: *cor.NewBaseCommand(name),
		config:      config,
		registry:    registry,
		toolkit:     toolkit,
		video:       video,
	}
	w.initializeChain()
	return w
}

// ReportFrom returns the report a workflow left in context, if any.
func ReportFrom(context cor.Context) (*model.AnalysisReport, bool) {
	report, ok := context.Get(commands.ParamReport).(*model.AnalysisReport)
	return report, ok && report != nil
}
