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

package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/gin-gonic/gin"
)

// UploadFieldName is the multipart part holding the clip.
const UploadFieldName = "file"

// AnalysisHandlers serves the analysis endpoints.
type AnalysisHandlers struct {
	analyzer Analyzer
}

// AnalyzeVideo handles POST /analyze-video.
func (h *AnalysisHandlers) AnalyzeVideo(c *gin.Context) {
	upload, err := readUpload(c.Request)
	if err != nil {
		writeError(c, err)
		return
	}
	report, err := h.analyzer.AnalyzeVideo(c.Request.Context(), upload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// AnalyzeVoice handles POST /analyze-voice.
func (h *AnalysisHandlers) AnalyzeVoice(c *gin.Context) {
	upload, err := readUpload(c.Request)
	if err != nil {
		writeError(c, err)
		return
	}
	report, err := h.analyzer.AnalyzeVoice(c.Request.Context(), upload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// readUpload finds the file part of a multipart request without spooling
// it: the returned upload's Body reads straight from the request. Parts
// before the file part are skipped.
func readUpload(r *http.Request) (*model.MediaUpload, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, apperrors.NewValidationError("expected a multipart/form-data body", err)
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("%s is required", UploadFieldName), nil)
		}
		if err != nil {
			return nil, uploadReadError(err)
		}
		if part.FormName() != UploadFieldName {
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, uploadReadError(err)
			}
			continue
		}
		return uploadFromPart(part), nil
	}
}

func uploadFromPart(part *multipart.Part) *model.MediaUpload {
	return &model.MediaUpload{
		Filename:    part.FileName(),
		ContentType: part.Header.Get("Content-Type"),
		Body:        part,
	}
}

func uploadReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.NewValidationError(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), err)
	}
	return apperrors.NewValidationError("malformed multipart body", err)
}

// writeError renders err as {"error": <status text>, "detail": <message>}.
func writeError(c *gin.Context, err error) {
	status := apperrors.GetStatusCode(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	} else {
		slog.InfoContext(c.Request.Context(), "request rejected", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":  http.StatusText(status),
		"detail": apperrors.Message(err),
	})
}
