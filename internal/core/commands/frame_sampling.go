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
)

// FrameSampling decodes every stride-th frame of the source video, up to
// maxFrames. A video that cannot be decoded yields an empty sample rather
// than an error; the detectors then report their neutral defaults.
type FrameSampling struct {
	cor.BaseCommand
	sampler   FrameSampler
	stride    int
	maxFrames int
}

// NewFrameSampling is the constructor for the FrameSampling command.
func NewFrameSampling(name string, sampler FrameSampler, stride int, maxFrames int) *FrameSampling {
	out := &FrameSampling{
		BaseCommand: *cor.NewBaseCommand(name),
		sampler:     sampler,
		stride:      stride,
		maxFrames:   maxFrames,
	}
	out.InputParamName = ParamSourcePath
	out.OutputParamName = ParamFrames
	return out
}

// Execute samples frames from the source video. An undecodable video yields
// an empty sample, not an error.
func (c *FrameSampling) Execute(context cor.Context) {
	input := context.Get(c.GetInputParam()).(string)
	sample := c.sampler.SampleFrames(context.GetContext(), input, c.stride, c.maxFrames)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "sampled frames", "frames", sample.Len(), "stride", c.stride)
	context.Add(c.GetOutputParam(), sample)
}
