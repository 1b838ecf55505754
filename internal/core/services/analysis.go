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

// Package services contains the business logic the transports call into.
// This file, `analysis.go`, defines the AnalysisService, which validates an
// upload, runs the matching analysis workflow in a request scoped context and
// folds the context's errors into a single result.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/ana-landing/media-signals/internal/core/commands"
	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/ana-landing/media-signals/internal/core/workflow"
	"github.com/ana-landing/media-signals/internal/inference"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/ana-landing/media-signals/services"

// AnalysisService runs the video and voice workflows. It is safe for
// concurrent use; every call gets its own context and temporary files.
type AnalysisService struct {
	TempDir string                    // Scratch directory for request temp files; empty means the OS default.
	Video   *workflow.AnalysisWorkflow // The video analysis workflow.
	Voice   *workflow.AnalysisWorkflow // The voice analysis workflow.
}

// NewAnalysisService builds both workflows from config.
//
// Inputs:
//   - config: The application configuration.
//   - registry: The model registry shared by all requests.
//   - toolkit: The media tooling, normally `*media.FFMpeg`.
//
// Outputs:
//   - *AnalysisService: The ready to use service.
func NewAnalysisService(config *cloud.Config, registry *inference.Registry, toolkit workflow.MediaToolkit) *AnalysisService {
	return &AnalysisService{
		TempDir: config.Application.TempDir,
		Video:   workflow.NewVideoAnalysisWorkflow(config, registry, toolkit),
		Voice:   workflow.NewVoiceAnalysisWorkflow(config, registry, toolkit),
	}
}

// ValidateUpload checks an upload before anything is written to disk. Video
// uploads must declare a `video/*` or `application/octet-stream` content
// type; audio uploads must declare `audio/*`.
func ValidateUpload(upload *model.MediaUpload) error {
	if upload == nil || upload.Body == nil {
		return apperrors.NewValidationError("file is required", nil)
	}
	contentType := strings.ToLower(strings.TrimSpace(upload.ContentType))
	switch upload.Kind {
	case model.MediaKindVideo:
		if strings.HasPrefix(contentType, "video/") || strings.HasPrefix(contentType, "application/octet-stream") {
			return nil
		}
	case model.MediaKindAudio:
		if strings.HasPrefix(contentType, "audio/") {
			return nil
		}
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown media kind %q", upload.Kind), nil)
	}
	return apperrors.NewValidationError(fmt.Sprintf("unsupported content type %q for %s analysis", upload.ContentType, upload.Kind), nil)
}

// AnalyzeVideo runs the video workflow on upload.
func (s *AnalysisService) AnalyzeVideo(ctx context.Context, upload *model.MediaUpload) (*model.AnalysisReport, error) {
	if upload != nil {
		upload.Kind = model.MediaKindVideo
	}
	return s.analyze(ctx, s.Video, upload)
}

// AnalyzeVoice runs the voice workflow on upload.
func (s *AnalysisService) AnalyzeVoice(ctx context.Context, upload *model.MediaUpload) (*model.AnalysisReport, error) {
	if upload != nil {
		upload.Kind = model.MediaKindAudio
	}
	return s.analyze(ctx, s.Voice, upload)
}

// analyze validates upload and executes w in a fresh context. The context's
// temporary files are removed before analyze returns, whatever the outcome.
func (s *AnalysisService) analyze(ctx context.Context, w *workflow.AnalysisWorkflow, upload *model.MediaUpload) (report *model.AnalysisReport, err error) {
	if err = ValidateUpload(upload); err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	traceCtx, span := otel.Tracer(tracerName).Start(ctx, w.GetName())
	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.String("media.kind", string(upload.Kind)),
		attribute.String("media.content_type", upload.ContentType))
	defer span.End()

	start := time.Now()
	chainCtx := cor.NewScopedContext(traceCtx, s.TempDir, fmt.Sprintf("req-%s-", requestID))
	defer chainCtx.Close()
	chainCtx.Add(commands.ParamUpload, upload)

	w.Execute(chainCtx)

	if err = chainCtx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		slog.ErrorContext(traceCtx, "analysis failed", "request_id", requestID, "workflow", w.GetName(), "error", err)
		return nil, err
	}
	report, ok := workflow.ReportFrom(chainCtx)
	if !ok {
		err = apperrors.NewInternalError("workflow produced no report", nil)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "analysis complete")
	slog.InfoContext(traceCtx, "analysis complete",
		"request_id", requestID,
		"workflow", w.GetName(),
		"duration", time.Since(start),
		"words", len(strings.Fields(report.Transcript)),
		"short_circuit", report.Message != "")
	return report, nil
}
