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

import (
	"image"

	"golang.org/x/image/draw"
)

// FaceInputSize is the edge length of the square emotion model input.
const FaceInputSize = 48

// FaceTensor crops box out of frame, converts it to grayscale, scales it to
// FaceInputSize x FaceInputSize and normalises each pixel to [0, 1]. The box
// is relative to the frame's top-left corner. ok is false when the crop is
// empty.
func FaceTensor(frame image.Image, box image.Rectangle) (tensor [][]float32, ok bool) {
	bounds := frame.Bounds()
	crop := box.Add(bounds.Min).Intersect(bounds)
	if crop.Empty() {
		return nil, false
	}

	gray := image.NewGray(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(gray, gray.Bounds(), frame, crop.Min, draw.Src)

	scaled := image.NewGray(image.Rect(0, 0, FaceInputSize, FaceInputSize))
	draw.BiLinear.Scale(scaled, scaled.Bounds(), gray, gray.Bounds(), draw.Src, nil)

	tensor = make([][]float32, FaceInputSize)
	for y := 0; y < FaceInputSize; y++ {
		row := make([]float32, FaceInputSize)
		for x := 0; x < FaceInputSize; x++ {
			row[x] = float32(scaled.GrayAt(x, y).Y) / 255
		}
		tensor[y] = row
	}
	return tensor, true
}
