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

// Package apperrors holds the typed failures an analysis request can end
// with, and maps each of them onto an HTTP status.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeTranscode          ErrorType = "transcode"
	ErrorTypeModelUnavailable   ErrorType = "model_unavailable"
	ErrorTypeUpstreamClassifier ErrorType = "upstream_classifier"
	ErrorTypeInference          ErrorType = "inference"
	ErrorTypeInternal           ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(errorType ErrorType, status int, message string, cause error) *AppError {
	return &AppError{
		Type:       errorType,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

// NewValidationError reports a request the service refuses to process.
func NewValidationError(message string, cause error) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, cause)
}

// NewTranscodeError reports an ffmpeg failure.
func NewTranscodeError(message string, cause error) *AppError {
	return newError(ErrorTypeTranscode, http.StatusInternalServerError, message, cause)
}

// NewModelUnavailableError reports a model that could not be initialised.
func NewModelUnavailableError(message string, cause error) *AppError {
	return newError(ErrorTypeModelUnavailable, http.StatusInternalServerError, message, cause)
}

// NewUpstreamClassifierError reports a failed call to the text trait classifier.
func NewUpstreamClassifierError(message string, cause error) *AppError {
	return newError(ErrorTypeUpstreamClassifier, http.StatusInternalServerError, message, cause)
}

// NewInferenceError reports a model call that failed after initialisation.
func NewInferenceError(message string, cause error) *AppError {
	return newError(ErrorTypeInference, http.StatusInternalServerError, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// IsType checks if the error, or any error it wraps, is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// Message returns the client-facing message of an AppError, or the error text.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
		}
		return appErr.Message
	}
	return err.Error()
}
