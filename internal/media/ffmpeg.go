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

// Package media wraps the ffmpeg executable. It turns an uploaded clip into
// the 16 kHz mono WAV the speech model expects, and into a bounded sample of
// decoded video frames.
package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/ana-landing/media-signals/internal/core/model"
)

// FFMpeg runs ffmpeg subprocesses bound to the caller's context.
type FFMpeg struct {
	CommandPath string // The ffmpeg executable.
	SampleRate  int    // Output audio sample rate.
	Channels    int    // Output audio channel count.
}

// NewFFMpeg creates a toolkit from the media configuration.
func NewFFMpeg(config cloud.Media) *FFMpeg {
	return &FFMpeg{
		CommandPath: config.FFMpegPath,
		SampleRate:  config.SampleRate,
		Channels:    config.Channels,
	}
}

// Available reports whether the ffmpeg executable can be found.
func (f *FFMpeg) Available() bool {
	_, err := exec.LookPath(f.CommandPath)
	return err == nil
}

// ExtractAudio decodes the audio track of input into a WAV file at output,
// overwriting it. The error carries ffmpeg's diagnostic output.
func (f *FFMpeg) ExtractAudio(ctx context.Context, input string, output string) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", input,
		"-vn",
		"-ac", strconv.Itoa(f.Channels),
		"-ar", strconv.Itoa(f.SampleRate),
		"-f", "wav",
		output,
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.CommandPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("error running ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// SampleFrames decodes every stride-th frame of input, up to maxFrames
// frames, in presentation order. Sampling is best effort: if the input
// cannot be opened or decoded the frames read so far (possibly none) are
// returned.
func (f *FFMpeg) SampleFrames(ctx context.Context, input string, stride int, maxFrames int) *model.FrameSample {
	out := &model.FrameSample{Frames: make([]image.Image, 0, max(maxFrames, 0))}
	if maxFrames <= 0 {
		return out
	}
	stride = max(stride, 1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-vf", fmt.Sprintf("select=not(mod(n\\,%d))", stride),
		"-vsync", "vfr",
		"-frames:v", strconv.Itoa(maxFrames),
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.CommandPath, args...)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		slog.WarnContext(ctx, "unable to open ffmpeg output", "error", err)
		return out
	}
	if err := cmd.Start(); err != nil {
		slog.WarnContext(ctx, "unable to start ffmpeg", "error", err)
		return out
	}

	reader := bufio.NewReader(stdout)
	for len(out.Frames) < maxFrames {
		if _, err := reader.Peek(1); err != nil {
			break
		}
		frame, err := png.Decode(reader)
		if err != nil {
			slog.WarnContext(ctx, "unable to decode sampled frame", "frame", len(out.Frames), "error", err)
			break
		}
		out.Frames = append(out.Frames, frame)
	}

	// Stop ffmpeg if it is still producing output, then reap it.
	cancel()
	if err := cmd.Wait(); err != nil && len(out.Frames) == 0 {
		slog.WarnContext(ctx, "video could not be sampled", "file", input, "error", err, "stderr", strings.TrimSpace(stderr.String()))
	}
	return out
}
