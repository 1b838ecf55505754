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

package inference_test

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/ana-landing/media-signals/internal/core/vision"
	"github.com/ana-landing/media-signals/internal/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noFaces struct{}

func (noFaces) DetectFaces(context.Context, image.Image) ([]vision.FaceProposal, error) {
	return nil, nil
}

func TestRegistryBuildsOnceUnderConcurrentFirstUse(t *testing.T) {
	var builds atomic.Int32
	registry := inference.NewRegistry(inference.Loaders{
		Faces: func() (inference.FaceDetector, error) {
			builds.Add(1)
			return noFaces{}, nil
		},
	})

	var wg sync.WaitGroup
	results := make([]inference.FaceDetector, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			detector, err := registry.Faces()
			assert.NoError(t, err)
			results[i] = detector
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestRegistryRemembersFailure(t *testing.T) {
	var builds atomic.Int32
	registry := inference.NewRegistry(inference.Loaders{
		Faces: func() (inference.FaceDetector, error) {
			builds.Add(1)
			return nil, errors.New("weights not found")
		},
	})

	for i := 0; i < 3; i++ {
		_, err := registry.Faces()
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeModelUnavailable))
		assert.Contains(t, err.Error(), "weights not found")
	}
	assert.Equal(t, int32(1), builds.Load())
}

func TestRegistryUnconfiguredModel(t *testing.T) {
	registry := inference.NewRegistry(inference.Loaders{})
	_, err := registry.Traits()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeModelUnavailable))

	err = registry.Warmup(context.Background())
	require.Error(t, err)
}

func TestRegistryFromConfigMissingSettings(t *testing.T) {
	config := cloud.NewConfig()
	config.Vision.KeypointURL = "http://keypoints"
	config.Vision.KeypointLabels = "/definitely/missing/labels.csv"
	registry := inference.NewRegistryFromConfig(config, &cloud.ServiceClients{})

	_, err := registry.Speech()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeModelUnavailable))
	_, err = registry.Gestures()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeModelUnavailable))

	config.Speech.Provider = cloud.ProviderOpenAI
	_, err = inference.NewRegistryFromConfig(config, &cloud.ServiceClients{}).Speech()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeModelUnavailable))
}

func TestRegistryFromConfig(t *testing.T) {
	config := cloud.NewConfig()
	config.Speech.URL = "http://speech"
	config.Traits.URL = "http://traits/analyze-text"
	registry := inference.NewRegistryFromConfig(config, nil)

	speech, err := registry.Speech()
	require.NoError(t, err)
	assert.Equal(t, "whisper-http", speech.Name())
	_, err = registry.Traits()
	assert.NoError(t, err)
}
