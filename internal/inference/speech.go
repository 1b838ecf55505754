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
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/sashabaranov/go-openai"
)

// Transcriber turns a 16 kHz mono WAV file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
	Name() string
}

// WhisperService calls a self-hosted speech service that accepts a multipart
// upload on /transcribe and answers {"text": "..."}.
type WhisperService struct {
	http     *HTTP
	url      string
	model    string
	language string
}

// NewWhisperService creates a client for the speech service at url.
func NewWhisperService(h *HTTP, url string, model string, language string) *WhisperService {
	return &WhisperService{http: h, url: url, model: model, language: language}
}

func (s *WhisperService) Name() string { return "whisper-http" }

func (s *WhisperService) Transcribe(ctx context.Context, wavPath string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	err := s.http.postMultipart(ctx, "asr", s.url+"/transcribe", func(w *multipart.Writer) error {
		fw, err := w.CreateFormFile("file", filepath.Base(wavPath))
		if err != nil {
			return err
		}
		fd, err := os.Open(wavPath)
		if err != nil {
			return err
		}
		defer fd.Close()
		if _, err = io.Copy(fw, fd); err != nil {
			return err
		}
		if err := w.WriteField("language", s.language); err != nil {
			return err
		}
		return w.WriteField("model", s.model)
	}, &out)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// OpenAIWhisper transcribes through the OpenAI audio API.
type OpenAIWhisper struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAIWhisper creates a transcriber backed by client.
func NewOpenAIWhisper(client *openai.Client, model string, language string) *OpenAIWhisper {
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAIWhisper{client: client, model: model, language: language}
}

func (o *OpenAIWhisper) Name() string { return "openai-" + o.model }

func (o *OpenAIWhisper) Transcribe(ctx context.Context, wavPath string) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: wavPath,
		Language: o.language,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
