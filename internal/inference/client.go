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

// Package inference holds the clients for the models the analysis pipeline
// depends on: speech recognition, face detection, emotion classification,
// hand landmarks, gesture classification and text trait classification.
// Each capability is an interface; the Registry hands out one shared,
// lazily initialised instance of each.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTP is the JSON-over-HTTP transport shared by the model service clients.
type HTTP struct {
	c *http.Client
}

// NewHTTP wraps c. A nil client gets a plain client with a 60 second timeout.
func NewHTTP(c *http.Client) *HTTP {
	if c == nil {
		c = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTP{c: c}
}

// StatusError is returned when a model service answers with a non-2xx status.
type StatusError struct {
	Service    string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Service, e.Status, e.Body)
}

func (h *HTTP) postJSON(ctx context.Context, service string, url string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s encode: %w", service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, service, out)
}

func (h *HTTP) postMultipart(ctx context.Context, service string, url string, fill func(w *multipart.Writer) error, out any) error {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	if err := fill(w); err != nil {
		return fmt.Errorf("%s encode: %w", service, err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return h.do(req, service, out)
}

func (h *HTTP) do(req *http.Request, service string, out any) error {
	resp, err := h.c.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Service: service, StatusCode: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", service, err)
	}
	return nil
}

// writeImage adds frame to w as a PNG form file named "image".
func writeImage(w *multipart.Writer, frame image.Image) error {
	fw, err := w.CreateFormFile("image", "frame.png")
	if err != nil {
		return err
	}
	return png.Encode(fw, frame)
}
