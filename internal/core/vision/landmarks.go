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

package vision

import "math"

// Point is a hand landmark as a fraction of the frame's width and height.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LandmarkFeatures turns one hand's landmarks into the keypoint classifier's
// input: pixel coordinates relative to the first landmark (the wrist),
// flattened as x0, y0, x1, y1, ... and divided by the largest absolute value
// (at least 1).
func LandmarkFeatures(points []Point, width int, height int) []float64 {
	if len(points) == 0 {
		return nil
	}
	pixels := make([]int, 0, 2*len(points))
	for _, p := range points {
		pixels = append(pixels,
			min(int(p.X*float64(width)), width-1),
			min(int(p.Y*float64(height)), height-1))
	}

	baseX, baseY := pixels[0], pixels[1]
	features := make([]float64, len(pixels))
	scale := 1.0
	for i, v := range pixels {
		if i%2 == 0 {
			v -= baseX
		} else {
			v -= baseY
		}
		features[i] = float64(v)
		scale = math.Max(scale, math.Abs(features[i]))
	}
	for i := range features {
		features[i] /= scale
	}
	return features
}
