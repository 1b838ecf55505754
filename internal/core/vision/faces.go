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

// Package vision holds the per-frame image maths of the emotion and gesture
// detectors. Model calls live elsewhere; everything here is deterministic.
package vision

import "image"

// FaceProposal is one face candidate from the face model. Box holds
// x1, y1, x2, y2 as fractions of the frame's width and height.
type FaceProposal struct {
	Box        [4]float64 `json:"box"`
	Confidence float64    `json:"confidence"`
}

// FaceFilter bounds which proposals may be selected.
type FaceFilter struct {
	MinConfidence float64 // Proposals below this confidence are ignored.
	MinSize       int     // Boxes narrower or shorter than this, in pixels, are ignored.
}

// DefaultFaceFilter keeps confident faces of at least 50x50 pixels.
func DefaultFaceFilter() FaceFilter {
	return FaceFilter{MinConfidence: 0.85, MinSize: 50}
}

// SelectFace picks the single most confident usable face in a frame of the
// given size. Boxes are scaled to pixels, truncated and clamped to the frame.
// On equal confidence the earlier proposal is kept.
func SelectFace(proposals []FaceProposal, width int, height int, filter FaceFilter) (image.Rectangle, bool) {
	var best image.Rectangle
	bestConfidence := 0.0
	found := false
	for _, p := range proposals {
		if p.Confidence < filter.MinConfidence {
			continue
		}
		x1 := max(int(p.Box[0]*float64(width)), 0)
		y1 := max(int(p.Box[1]*float64(height)), 0)
		x2 := min(int(p.Box[2]*float64(width)), width-1)
		y2 := min(int(p.Box[3]*float64(height)), height-1)
		if x2-x1 < filter.MinSize || y2-y1 < filter.MinSize {
			continue
		}
		if p.Confidence > bestConfidence {
			best = image.Rect(x1, y1, x2, y2)
			bestConfidence = p.Confidence
			found = true
		}
	}
	return best, found
}

// Argmax returns the index of the largest value, the first one on ties,
// or -1 for an empty slice.
func Argmax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	best := 0
	for i, v := range values[1:] {
		if v > values[best] {
			best = i + 1
		}
	}
	return best
}
