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

package inference

import (
	"context"
	"fmt"
	"image"
	"mime/multipart"
	"strconv"

	"github.com/ana-landing/media-signals/internal/core/vision"
)

// FaceDetector proposes face boxes in a frame.
type FaceDetector interface {
	DetectFaces(ctx context.Context, frame image.Image) ([]vision.FaceProposal, error)
}

// EmotionClassifier scores a 48x48 normalised grayscale face per emotion class.
type EmotionClassifier interface {
	ClassifyEmotion(ctx context.Context, face [][]float32) ([]float64, error)
}

// HandLandmarker finds the landmarks of each hand visible in a frame.
type HandLandmarker interface {
	DetectHands(ctx context.Context, frame image.Image) ([][]vision.Point, error)
}

// KeypointClassifier maps normalised hand landmark features to a class id.
type KeypointClassifier interface {
	ClassifyKeypoints(ctx context.Context, features []float64) (int, error)
}

// FaceService calls a face detection service.
type FaceService struct {
	http *HTTP
	url  string
}

// NewFaceService creates a client for the face detection service at url.
func NewFaceService(h *HTTP, url string) *FaceService {
	return &FaceService{http: h, url: url}
}

func (f *FaceService) DetectFaces(ctx context.Context, frame image.Image) ([]vision.FaceProposal, error) {
	var out struct {
		Detections []vision.FaceProposal `json:"detections"`
	}
	err := f.http.postMultipart(ctx, "face", f.url+"/detect", func(w *multipart.Writer) error {
		return writeImage(w, frame)
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Detections, nil
}

// EmotionService calls an emotion classification service.
type EmotionService struct {
	http *HTTP
	url  string
}

// NewEmotionService creates a client for the emotion service at url.
func NewEmotionService(h *HTTP, url string) *EmotionService {
	return &EmotionService{http: h, url: url}
}

func (e *EmotionService) ClassifyEmotion(ctx context.Context, face [][]float32) ([]float64, error) {
	in := struct {
		Input [][]float32 `json:"input"`
	}{Input: face}
	var out struct {
		Probabilities []float64 `json:"probabilities"`
	}
	if err := e.http.postJSON(ctx, "emotion", e.url+"/predict", in, &out); err != nil {
		return nil, err
	}
	if len(out.Probabilities) == 0 {
		return nil, fmt.Errorf("emotion: empty prediction")
	}
	return out.Probabilities, nil
}

// HandService calls a hand landmark service.
type HandService struct {
	http                   *HTTP
	url                    string
	maxHands               int
	minDetectionConfidence float64
	minTrackingConfidence  float64
}

// NewHandService creates a client for the hand landmark service at url.
func NewHandService(h *HTTP, url string, maxHands int, minDetection float64, minTracking float64) *HandService {
	return &HandService{
		http:                   h,
		url:                    url,
		maxHands:               maxHands,
		minDetectionConfidence: minDetection,
		minTrackingConfidence:  minTracking,
	}
}

// DetectHands returns at most maxHands hands, even if the service sends more.
func (s *HandService) DetectHands(ctx context.Context, frame image.Image) ([][]vision.Point, error) {
	var out struct {
		Hands []struct {
			Landmarks []vision.Point `json:"landmarks"`
		} `json:"hands"`
	}
	err := s.http.postMultipart(ctx, "hands", s.url+"/landmarks", func(w *multipart.Writer) error {
		if err := writeImage(w, frame); err != nil {
			return err
		}
		fields := map[string]string{
			"max_num_hands":            strconv.Itoa(s.maxHands),
			"min_detection_confidence": strconv.FormatFloat(s.minDetectionConfidence, 'f', -1, 64),
			"min_tracking_confidence":  strconv.FormatFloat(s.minTrackingConfidence, 'f', -1, 64),
		}
		for k, v := range fields {
			if err := w.WriteField(k, v); err != nil {
				return err
			}
		}
		return nil
	}, &out)
	if err != nil {
		return nil, err
	}
	hands := make([][]vision.Point, 0, min(len(out.Hands), s.maxHands))
	for _, h := range out.Hands {
		if len(hands) == s.maxHands {
			break
		}
		hands = append(hands, h.Landmarks)
	}
	return hands, nil
}

// KeypointService calls a keypoint classification service.
type KeypointService struct {
	http *HTTP
	url  string
}

// NewKeypointService creates a client for the keypoint classifier at url.
func NewKeypointService(h *HTTP, url string) *KeypointService {
	return &KeypointService{http: h, url: url}
}

func (k *KeypointService) ClassifyKeypoints(ctx context.Context, features []float64) (int, error) {
	in := struct {
		Features []float64 `json:"features"`
	}{Features: features}
	var out struct {
		ClassID int `json:"class_id"`
	}
	if err := k.http.postJSON(ctx, "keypoint", k.url+"/classify", in, &out); err != nil {
		return 0, err
	}
	return out.ClassID, nil
}
