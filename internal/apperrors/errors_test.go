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

package apperrors_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/zeebo/assert"
)

func TestStatusCodes(t *testing.T) {
	cause := errors.New("cause")
	cases := []struct {
		err    error
		status int
		kind   apperrors.ErrorType
	}{
		{apperrors.NewValidationError("bad content type", nil), http.StatusBadRequest, apperrors.ErrorTypeValidation},
		{apperrors.NewTranscodeError("ffmpeg failed", cause), http.StatusInternalServerError, apperrors.ErrorTypeTranscode},
		{apperrors.NewModelUnavailableError("no model", cause), http.StatusInternalServerError, apperrors.ErrorTypeModelUnavailable},
		{apperrors.NewUpstreamClassifierError("classifier error", cause), http.StatusInternalServerError, apperrors.ErrorTypeUpstreamClassifier},
		{apperrors.NewInferenceError("face model", cause), http.StatusInternalServerError, apperrors.ErrorTypeInference},
		{apperrors.NewInternalError("oops", nil), http.StatusInternalServerError, apperrors.ErrorTypeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, apperrors.GetStatusCode(tc.err), tc.status)
		assert.That(t, apperrors.IsType(tc.err, tc.kind))
	}
}

func TestWrappedAndJoinedErrors(t *testing.T) {
	validation := apperrors.NewValidationError("unsupported content type image/png", nil)

	wrapped := fmt.Errorf("analyze: %w", validation)
	assert.Equal(t, apperrors.GetStatusCode(wrapped), http.StatusBadRequest)

	joined := errors.Join(errors.New("plain"), validation)
	assert.Equal(t, apperrors.GetStatusCode(joined), http.StatusBadRequest)
	assert.That(t, apperrors.IsType(joined, apperrors.ErrorTypeValidation))

	assert.Equal(t, apperrors.GetStatusCode(errors.New("plain")), http.StatusInternalServerError)
	assert.That(t, !apperrors.IsType(errors.New("plain"), apperrors.ErrorTypeValidation))
}

func TestMessage(t *testing.T) {
	err := apperrors.NewUpstreamClassifierError("classifier error", errors.New("502 Bad Gateway"))
	assert.Equal(t, apperrors.Message(err), "classifier error: 502 Bad Gateway")
	assert.Equal(t, apperrors.Message(errors.New("plain")), "plain")
	assert.Equal(t, apperrors.Message(apperrors.NewValidationError("file is required", nil)), "file is required")
}
