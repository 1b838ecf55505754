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
// command that extracts a speech-ready audio track with FFmpeg.
//
// Logic Flow:
//  1. Get the path of the saved upload from the context.
//  2. Acquire a `.wav` temporary file from the context for the output.
//  3. Run the extractor (mono, 16 kHz PCM wav by default).
//  4. On success, add the wav path to the context for the transcription stage.
//     On failure, record a transcode error; it is never retried.
package commands

import (
	"log/slog"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/ana-landing/media-signals/internal/core/cor"
)

// AudioExtraction is a command that wraps the audio extractor.
type AudioExtraction struct {
	cor.BaseCommand
	extractor AudioExtractor
}

// NewAudioExtraction is the constructor for the AudioExtraction command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - extractor: The tool that performs the conversion, normally `*media.FFMpeg`.
//
// Outputs:
//   - *AudioExtraction: A pointer to the newly instantiated command.
func NewAudioExtraction(name string, extractor AudioExtractor) *AudioExtraction {
	out := &AudioExtraction{BaseCommand: *cor.NewBaseCommand(name), extractor: extractor}
	out.InputParamName = ParamSourcePath
	out.OutputParamName = ParamAudioPath
	return out
}

// Execute converts the source media to wav.
func (c *AudioExtraction) Execute(context cor.Context) {
	input := context.Get(c.GetInputParam()).(string)

	wavFile, err := context.AcquireTempFile(".wav")
	if err != nil {
		fail(c, context, apperrors.NewInternalError("could not create temp file", err))
		return
	}
	// ffmpeg writes the file itself; only the path is needed.
	_ = wavFile.Close()

	if err := c.extractor.ExtractAudio(context.GetContext(), input, wavFile.Name()); err != nil {
		fail(c, context, apperrors.NewTranscodeError("audio extraction failed", err))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.DebugContext(context.GetContext(), "extracted audio", "file", wavFile.Name())
	context.Add(c.GetOutputParam(), wavFile.Name())
}
