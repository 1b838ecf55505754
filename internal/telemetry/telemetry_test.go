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

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ana-landing/media-signals/internal/cloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestLoggingCarriesTraceContext(t *testing.T) {
	config := cloud.NewConfig()
	shutdown, err := SetupOpenTelemetry(context.Background(), config)
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	var buf bytes.Buffer
	SetupLoggingTo(&buf, "info")

	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	slog.WarnContext(ctx, "hello", "words", 2)
	span.End()
	slog.Debug("dropped")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARNING", record["severity"])
	assert.Equal(t, "hello", record["message"])
	assert.Equal(t, span.SpanContext().TraceID().String(), record["logging.googleapis.com/trace"])
	assert.Contains(t, record, "timestamp")
}

func TestUnknownExporter(t *testing.T) {
	config := cloud.NewConfig()
	config.Telemetry.Exporter = "jaeger"
	_, err := SetupOpenTelemetry(context.Background(), config)
	assert.Error(t, err)
}
