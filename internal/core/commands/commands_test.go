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

package commands_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/ana-landing/media-signals/internal/core/commands"
	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/ana-landing/media-signals/internal/core/vision"
	test "github.com/ana-landing/media-signals/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newContext(t *testing.T) (cor.Context, string) {
	t.Helper()
	dir := t.TempDir()
	chainCtx := cor.NewScopedContext(context.Background(), dir, "req-test-")
	t.Cleanup(chainCtx.Close)
	return chainCtx, dir
}

func upload(body io.Reader) *model.MediaUpload {
	return &model.MediaUpload{Kind: model.MediaKindVideo, Filename: "clip", ContentType: "video/webm", Body: body}
}

func TestUploadToTempFileSniffsSuffix(t *testing.T) {
	chainCtx, dir := newContext(t)
	wav := "RIFF\x24\x00\x00\x00WAVEfmt " + strings.Repeat("\x00", 32)
	chainCtx.Add(commands.ParamUpload, upload(strings.NewReader(wav)))

	cmd := commands.NewUploadToTempFile("upload", ".webm")
	require.True(t, cmd.IsExecutable(chainCtx))
	cmd.Execute(chainCtx)
	require.False(t, chainCtx.HasErrors())

	path := chainCtx.Get(commands.ParamSourcePath).(string)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".wav", filepath.Ext(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, wav, string(content))
	assert.Equal(t, []string{path}, chainCtx.GetTempFiles())
}

func TestUploadToTempFileDefaultSuffix(t *testing.T) {
	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamUpload, upload(strings.NewReader("not a known container")))

	commands.NewUploadToTempFile("upload", ".webm").Execute(chainCtx)
	require.False(t, chainCtx.HasErrors())
	assert.Equal(t, ".webm", filepath.Ext(chainCtx.Get(commands.ParamSourcePath).(string)))
}

func TestUploadToTempFileRejectsEmptyAndOversized(t *testing.T) {
	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamUpload, upload(strings.NewReader("")))
	commands.NewUploadToTempFile("upload", ".webm").Execute(chainCtx)
	assert.True(t, apperrors.IsType(chainCtx.Err(), apperrors.ErrorTypeValidation))

	chainCtx, _ = newContext(t)
	body := http.MaxBytesReader(nil, io.NopCloser(strings.NewReader(strings.Repeat("x", 64))), 16)
	chainCtx.Add(commands.ParamUpload, upload(body))
	commands.NewUploadToTempFile("upload", ".webm").Execute(chainCtx)
	assert.True(t, apperrors.IsType(chainCtx.Err(), apperrors.ErrorTypeValidation))
	assert.Contains(t, chainCtx.Err().Error(), "16 bytes")
}

func TestAudioExtraction(t *testing.T) {
	chainCtx, dir := newContext(t)
	source := filepath.Join(dir, "source.webm")
	require.NoError(t, os.WriteFile(source, []byte("video"), 0o600))
	chainCtx.Add(commands.ParamSourcePath, source)

	commands.NewAudioExtraction("audio", &test.FakeMediaToolkit{}).Execute(chainCtx)
	require.False(t, chainCtx.HasErrors())
	wav := chainCtx.Get(commands.ParamAudioPath).(string)
	assert.Equal(t, ".wav", filepath.Ext(wav))
	assert.Contains(t, chainCtx.GetTempFiles(), wav)
}

func TestAudioExtractionFailureIsTranscodeError(t *testing.T) {
	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamSourcePath, "/no/such/file.webm")

	toolkit := &test.FakeMediaToolkit{ExtractErr: errors.New("Invalid data found when processing input")}
	commands.NewAudioExtraction("audio", toolkit).Execute(chainCtx)

	err := chainCtx.Err()
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTranscode))
	assert.Contains(t, err.Error(), "Invalid data found")
	// The reserved output file is still owned by the context.
	assert.Len(t, chainCtx.GetTempFiles(), 1)
}

func TestTranscription(t *testing.T) {
	chainCtx, dir := newContext(t)
	wav := filepath.Join(dir, "audio.wav")
	require.NoError(t, os.WriteFile(wav, []byte("RIFF"), 0o600))
	chainCtx.Add(commands.ParamAudioPath, wav)

	models := &test.Models{Speech: &test.FakeTranscriber{Text: "  hello   there \n"}}
	commands.NewTranscription("transcribe", models.Registry()).Execute(chainCtx)
	require.False(t, chainCtx.HasErrors())

	transcript := chainCtx.Get(commands.ParamTranscript).(*model.Transcript)
	assert.Equal(t, "hello   there", transcript.Text)
	assert.Equal(t, 2, transcript.WordCount)
}

func TestTranscriptionErrors(t *testing.T) {
	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamAudioPath, "/tmp/none.wav")
	commands.NewTranscription("transcribe", (&test.Models{}).Registry()).Execute(chainCtx)
	assert.True(t, apperrors.IsType(chainCtx.Err(), apperrors.ErrorTypeModelUnavailable))

	chainCtx, _ = newContext(t)
	chainCtx.Add(commands.ParamAudioPath, "/tmp/none.wav")
	models := &test.Models{Speech: &test.FakeTranscriber{Err: errors.New("decoder crashed")}}
	commands.NewTranscription("transcribe", models.Registry()).Execute(chainCtx)
	assert.True(t, apperrors.IsType(chainCtx.Err(), apperrors.ErrorTypeInference))
}

func TestShortUtteranceGuard(t *testing.T) {
	guard := commands.NewShortUtteranceGuard("guard", 2, "Please speak more so I can understand you better.", true)

	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamTranscript, model.NewTranscript("hi"))
	guard.Execute(chainCtx)
	assert.True(t, chainCtx.IsHalted())
	assert.False(t, chainCtx.HasErrors())
	report := chainCtx.Get(commands.ParamReport).(*model.AnalysisReport)
	assert.Equal(t, "hi", report.Transcript)
	assert.Empty(t, report.Predictions)
	assert.Equal(t, "Please speak more so I can understand you better.", report.Message)
	require.NotNil(t, report.Vision)
	assert.Equal(t, model.EmotionNeutral, report.Vision.DominantEmotion)
	assert.Nil(t, report.Vision.DominantGesture)

	chainCtx, _ = newContext(t)
	chainCtx.Add(commands.ParamTranscript, model.NewTranscript("hello there"))
	guard.Execute(chainCtx)
	assert.False(t, chainCtx.IsHalted())
	assert.Nil(t, chainCtx.Get(commands.ParamReport))
}

func TestTraitClassification(t *testing.T) {
	models := test.NewHappyModels()
	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamTranscript, model.NewTranscript(" hello there "))

	commands.NewTraitClassification("traits", models.Registry(), false).Execute(chainCtx)
	require.False(t, chainCtx.HasErrors())
	assert.Equal(t, []string{"hello there"}, models.Traits.Calls())
	assert.Equal(t, models.Traits.Predictions, chainCtx.Get(commands.ParamPredictions))
}

func TestTraitClassificationFailure(t *testing.T) {
	models := &test.Models{Traits: &test.FakeTraitClassifier{Err: errors.New("status 502")}}

	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamTranscript, model.NewTranscript("hello there"))
	commands.NewTraitClassification("traits", models.Registry(), false).Execute(chainCtx)
	err := chainCtx.Err()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstreamClassifier))
	assert.Equal(t, "classifier error: status 502", apperrors.Message(err))

	chainCtx, _ = newContext(t)
	chainCtx.Add(commands.ParamTranscript, model.NewTranscript("hello there"))
	commands.NewTraitClassification("traits", models.Registry(), true).Execute(chainCtx)
	assert.False(t, chainCtx.HasErrors())
	assert.Equal(t, []model.TraitPrediction{}, chainCtx.Get(commands.ParamPredictions))
	assert.Equal(t, true, chainCtx.Get(commands.ParamPredictionsUnavailable))
}

func TestFrameSampling(t *testing.T) {
	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamSourcePath, "clip.webm")
	toolkit := &test.FakeMediaToolkit{Frames: 10}

	commands.NewFrameSampling("frames", toolkit, 12, 4).Execute(chainCtx)
	assert.Equal(t, 4, chainCtx.Get(commands.ParamFrames).(*model.FrameSample).Len())
	assert.Equal(t, []string{"clip.webm"}, toolkit.Sampled())
}

func TestEmotionDetection(t *testing.T) {
	models := test.NewHappyModels()
	detector := commands.NewEmotionDetection("emotion", models.Registry(), vision.DefaultFaceFilter(), 3)

	result, err := detector.Detect(context.Background(), test.NewFrameSample(7, 160, 120))
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "Happy", result.Dominant)
	assert.Equal(t, 7, result.Histogram.Count("Happy"))
	assert.LessOrEqual(t, result.Histogram.Total(), 7)
	assert.Equal(t, 7, models.Faces.Calls())
}

func TestEmotionDetectionNoUsableFace(t *testing.T) {
	models := test.NewHappyModels()
	models.Faces.Proposals = []vision.FaceProposal{
		{Box: [4]float64{0.1, 0.1, 0.9, 0.9}, Confidence: 0.5},  // not confident
		{Box: [4]float64{0.1, 0.1, 0.2, 0.2}, Confidence: 0.99}, // 16x12 px, too small
	}
	detector := commands.NewEmotionDetection("emotion", models.Registry(), vision.DefaultFaceFilter(), 2)

	result, err := detector.Detect(context.Background(), test.NewFrameSample(3, 160, 120))
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, model.EmotionNeutral, result.Dominant)
	assert.Equal(t, 0, result.Histogram.Total())
}

func TestDetectorsSkipModelsWithoutFrames(t *testing.T) {
	models := test.NewHappyModels()
	registry := models.Registry()

	emotion, err := commands.NewEmotionDetection("emotion", registry, vision.DefaultFaceFilter(), 2).
		Detect(context.Background(), &model.FrameSample{})
	require.NoError(t, err)
	assert.Equal(t, model.EmotionNeutral, emotion.Dominant)
	assert.Equal(t, 0, emotion.Histogram.Len())

	gesture, err := commands.NewGestureDetection("gesture", registry, 2).Detect(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, gesture.Found)
	assert.Equal(t, 0, gesture.Histogram.Len())

	assert.Equal(t, 0, models.Loads())
}

func TestGestureDetection(t *testing.T) {
	models := test.NewHappyModels()
	hand := models.Hands.Hands[0]
	models.Hands.Hands = [][]vision.Point{hand, hand}
	detector := commands.NewGestureDetection("gesture", models.Registry(), 4)

	result, err := detector.Detect(context.Background(), test.NewFrameSample(5, 64, 64))
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Equal(t, "Close", result.Dominant)
	assert.Equal(t, 10, result.Histogram.Total())
	assert.LessOrEqual(t, result.Histogram.Total(), 2*5)
}

func TestGestureDetectionSkipsUnknownClass(t *testing.T) {
	models := test.NewHappyModels()
	models.Keypoint.ClassID = 42
	detector := commands.NewGestureDetection("gesture", models.Registry(), 1)

	result, err := detector.Detect(context.Background(), test.NewFrameSample(2, 64, 64))
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Equal(t, 0, result.Histogram.Total())
}

func TestVisionDetection(t *testing.T) {
	models := test.NewHappyModels()
	registry := models.Registry()
	cmd := commands.NewVisionDetection("vision",
		commands.NewEmotionDetection("emotion", registry, vision.DefaultFaceFilter(), 2),
		commands.NewGestureDetection("gesture", registry, 2))

	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamFrames, test.NewFrameSample(4, 160, 120))
	cmd.Execute(chainCtx)
	require.False(t, chainCtx.HasErrors())

	emotion := chainCtx.Get(commands.ParamEmotion).(*model.DetectionResult)
	gesture := chainCtx.Get(commands.ParamGesture).(*model.DetectionResult)
	assert.Equal(t, "Happy", emotion.Dominant)
	assert.Equal(t, "Close", gesture.Dominant)
}

func TestVisionDetectionSpansEachDetector(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("commands-test")

	models := test.NewHappyModels()
	models.Hands.Err = errors.New("hand service down")
	registry := models.Registry()
	emotions := commands.NewEmotionDetection("detect-emotion", registry, vision.DefaultFaceFilter(), 2)
	gestures := commands.NewGestureDetection("detect-gesture", registry, 2)
	emotions.Tracer = tracer
	gestures.Tracer = tracer

	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamFrames, test.NewFrameSample(3, 160, 120))
	commands.NewVisionDetection("detect-vision", emotions, gestures).Execute(chainCtx)
	require.True(t, chainCtx.HasErrors())

	status := make(map[string]codes.Code)
	for _, span := range recorder.Ended() {
		status[span.Name()] = span.Status().Code
	}
	require.Contains(t, status, "detect-emotion")
	require.Contains(t, status, "detect-gesture")
	assert.Equal(t, codes.Error, status["detect-gesture"])
}

func TestVisionDetectionFailure(t *testing.T) {
	models := test.NewHappyModels()
	models.Faces.Err = errors.New("face service down")
	registry := models.Registry()
	cmd := commands.NewVisionDetection("vision",
		commands.NewEmotionDetection("emotion", registry, vision.DefaultFaceFilter(), 2),
		commands.NewGestureDetection("gesture", registry, 2))

	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamFrames, test.NewFrameSample(2, 160, 120))
	cmd.Execute(chainCtx)
	assert.True(t, apperrors.IsType(chainCtx.Err(), apperrors.ErrorTypeInference))
	assert.Nil(t, chainCtx.Get(commands.ParamEmotion))
}

func TestReportAssembly(t *testing.T) {
	chainCtx, _ := newContext(t)
	chainCtx.Add(commands.ParamTranscript, model.NewTranscript("hello there"))
	chainCtx.Add(commands.ParamPredictions, []model.TraitPrediction{{Label: "Openness", Confidence: 0.8}})

	commands.NewReportAssembly("report", true).Execute(chainCtx)
	report := chainCtx.Get(commands.ParamReport).(*model.AnalysisReport)
	assert.Equal(t, "hello there", report.Transcript)
	assert.Len(t, report.Predictions, 1)
	require.NotNil(t, report.Vision)
	assert.Equal(t, model.EmotionNeutral, report.Vision.DominantEmotion)

	chainCtx, _ = newContext(t)
	chainCtx.Add(commands.ParamTranscript, model.NewTranscript("hello"))
	commands.NewReportAssembly("report", false).Execute(chainCtx)
	report = chainCtx.Get(commands.ParamReport).(*model.AnalysisReport)
	assert.Nil(t, report.Vision)
	assert.NotNil(t, report.Predictions)
}
