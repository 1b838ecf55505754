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
	"log/slog"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/ana-landing/media-signals/internal/inference"
)

// Transcription turns the extracted wav file into a trimmed transcript using
// the speech model from the registry.
type Transcription struct {
	cor.BaseCommand
	registry *inference.Registry
}

// NewTranscription is the constructor for the Transcription command.
func NewTranscription(name string, registry *inference.Registry) *Transcription {
	out := &Transcription{BaseCommand: *cor.NewBaseCommand(name), registry: registry}
	out.InputParamName = ParamAudioPath
	out.OutputParamName = ParamTranscript
	return out
}

// Execute transcribes the extracted audio and stores the trimmed transcript.
func (c *Transcription) Execute(context cor.Context) {
	wavPath := context.Get(c.GetInputParam()).(string)

	speech, err := c.registry.Speech()
	if err != nil {
		fail(c, context, err)
		return
	}

	text, err := speech.Transcribe(context.GetContext(), wavPath)
	if err != nil {
		fail(c, context, apperrors.NewInferenceError("speech recognition failed", err))
		return
	}

	transcript := model.NewTranscript(text)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "transcribed audio", "model", speech.Name(), "words", transcript.WordCount)
	context.Add(c.GetOutputParam(), transcript)
}
