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

// Package api contains the HTTP surface of the service: the gin router,
// its middleware and the handlers for the analysis and health endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Analyzer runs the analysis workflows; `*services.AnalysisService` in production.
type Analyzer interface {
	AnalyzeVideo(ctx context.Context, upload *model.MediaUpload) (*model.AnalysisReport, error)
	AnalyzeVoice(ctx context.Context, upload *model.MediaUpload) (*model.AnalysisReport, error)
}

// NewRouter builds the gin engine with every route and middleware.
//
// Inputs:
//   - config: The application configuration (name, version, CORS origins, upload limit).
//   - analyzer: The service the analysis endpoints delegate to.
//
// Outputs:
//   - *gin.Engine: The router, ready to be used as an http.Handler.
func NewRouter(config *cloud.Config, analyzer Analyzer) *gin.Engine {
	r := gin.Default()

	// Add OpenTelemetry middleware
	r.Use(otelgin.Middleware(config.Application.Name))
	r.Use(corsMiddleware(config.Application.AllowedOrigins))

	handlers := &AnalysisHandlers{analyzer: analyzer}
	limit := MaxBodySize(config.Application.MaxUploadBytes)
	r.POST("/analyze-video", limit, handlers.AnalyzeVideo)
	r.POST("/analyze-voice", limit, handlers.AnalyzeVoice)

	Health(r, config.Application.Version)
	return r
}

// corsMiddleware allows the configured origins, or any origin if none are set.
func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	cc := cors.DefaultConfig()
	cc.AllowOrigins = origins
	cc.AllowCredentials = true
	cc.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	return cors.New(cc)
}
