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

// Package model defines the data structures that flow through an analysis
// request. None of them are persisted; each lives for exactly one request.
package model

import (
	"encoding/json"
	"image"
	"io"
	"strings"
)

// MediaKind identifies which analysis an upload is destined for.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

// MediaUpload is the raw media received from a client.
type MediaUpload struct {
	Kind        MediaKind // Which endpoint received the upload.
	Filename    string    // The client supplied file name, informational only.
	ContentType string    // The declared content type of the upload part.
	Body        io.Reader // The media bytes. Consumed exactly once.
}

// Transcript is the speech recognised in a clip.
type Transcript struct {
	Text      string // Trimmed recognised text; may be empty.
	WordCount int    // Number of whitespace separated words in Text.
}

// NewTranscript trims the recogniser output and counts its words.
func NewTranscript(text string) *Transcript {
	trimmed := strings.TrimSpace(text)
	return &Transcript{Text: trimmed, WordCount: len(strings.Fields(trimmed))}
}

// TraitPrediction is one entry of the text classifier's answer, relayed verbatim.
// Fields other than label and confidence are kept in Extra and written back
// unchanged.
type TraitPrediction struct {
	Label      string                     `json:"label"`
	Confidence float64                    `json:"confidence"`
	Extra      map[string]json.RawMessage `json:"-"`
}

func (p TraitPrediction) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+2)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["label"] = p.Label
	out["confidence"] = p.Confidence
	return json.Marshal(out)
}

func (p *TraitPrediction) UnmarshalJSON(data []byte) error {
	type known TraitPrediction
	var base known
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	delete(fields, "label")
	delete(fields, "confidence")
	*p = TraitPrediction(base)
	if len(fields) > 0 {
		p.Extra = fields
	}
	return nil
}

// FrameSample is the bounded, ordered set of frames decoded from a video.
// Both detectors read it; nobody mutates it after sampling.
type FrameSample struct {
	Frames []image.Image
}

// Len returns the number of frames in the sample. A nil sample is empty.
func (f *FrameSample) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Frames)
}

// DetectionResult is what a detector produces from a frame sample.
type DetectionResult struct {
	Dominant  string              // The dominant label, or the detector's default.
	Found     bool                // False when nothing was detected in any frame.
	Histogram *DetectionHistogram // Per-label occurrence counts.
}
