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

	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
)

// ShortUtteranceGuard ends the workflow early when the transcript has fewer
// than minWords words. It writes the final report itself and halts the
// chain, so neither the trait classifier nor any vision model is invoked.
type ShortUtteranceGuard struct {
	cor.BaseCommand
	minWords   int
	message    string
	withVision bool // Video reports carry a neutral vision section.
}

// NewShortUtteranceGuard is the constructor for the ShortUtteranceGuard command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - minWords: The smallest word count that is analysed.
//   - message: The message attached to the short-circuit report.
//   - withVision: Whether the short-circuit report includes neutral vision results.
func NewShortUtteranceGuard(name string, minWords int, message string, withVision bool) *ShortUtteranceGuard {
	out := &ShortUtteranceGuard{
		BaseCommand: *cor.NewBaseCommand(name),
		minWords:    minWords,
		message:     message,
		withVision:  withVision,
	}
	out.InputParamName = ParamTranscript
	out.OutputParamName = ParamReport
	return out
}

// Execute halts the chain with a neutral report when the transcript has too
// few words.
func (c *ShortUtteranceGuard) Execute(context cor.Context) {
	transcript := context.Get(c.GetInputParam()).(*model.Transcript)
	if transcript.WordCount >= c.minWords {
		return
	}

	slog.InfoContext(context.GetContext(), "transcript too short to analyse",
		"words", transcript.WordCount, "min_words", c.minWords)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(c.GetOutputParam(), model.NewShortUtteranceReport(transcript.Text, c.message, c.withVision))
	context.Halt()
}
