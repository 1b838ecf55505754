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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that moves an uploaded clip onto the local disk.
//
// Logic Flow:
// This command is the bridge between the HTTP upload and the file based
// tools (FFmpeg) used by the rest of the workflow.
//
//  1. Receives a `model.MediaUpload` from the context.
//  2. Peeks at the first bytes of the upload and uses the `filetype` library
//     to pick a file extension FFmpeg can rely on.
//  3. Acquires a temporary file from the context, so the context owns and
//     eventually deletes it.
//  4. Streams the upload into the file with `io.Copy`; nothing is buffered
//     in memory beyond the sniffed header.
//  5. Places the file's path in the context for the extraction stages.
package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ana-landing/media-signals/internal/apperrors"
	"github.com/ana-landing/media-signals/internal/core/cor"
	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/h2non/filetype"
)

// sniffLength is the number of header bytes filetype needs to match every
// format it knows.
const sniffLength = 261

// UploadToTempFile is a command that saves an upload to a context owned
// temporary file.
type UploadToTempFile struct {
	cor.BaseCommand
	defaultSuffix string // Used when the upload's format cannot be sniffed (e.g., ".webm").
}

// NewUploadToTempFile is the constructor for the UploadToTempFile command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - defaultSuffix: The file extension used when the format is not recognised.
//
// Outputs:
//   - *UploadToTempFile: A pointer to the newly instantiated command.
func NewUploadToTempFile(name string, defaultSuffix string) *UploadToTempFile {
	out := &UploadToTempFile{
		BaseCommand:   *cor.NewBaseCommand(name),
		defaultSuffix: defaultSuffix,
	}
	out.InputParamName = ParamUpload
	out.OutputParamName = ParamSourcePath
	return out
}

// Execute streams the upload into a temporary file.
func (c *UploadToTempFile) Execute(context cor.Context) {
	upload := context.Get(c.GetInputParam()).(*model.MediaUpload)
	if upload.Body == nil {
		fail(c, context, apperrors.NewValidationError("file is required", nil))
		return
	}

	reader := bufio.NewReaderSize(upload.Body, sniffLength*2)
	// A short read just means a small file; match against what we have.
	head, _ := reader.Peek(sniffLength)
	suffix := c.defaultSuffix
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		suffix = "." + kind.Extension
	}

	tempFile, err := context.AcquireTempFile(suffix)
	if err != nil {
		fail(c, context, apperrors.NewInternalError("could not create temp file", err))
		return
	}

	written, err := io.Copy(tempFile, reader)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(c, context, apperrors.NewValidationError(fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit), err))
			return
		}
		fail(c, context, apperrors.NewInternalError("failed to save upload", err))
		return
	}
	if written == 0 {
		fail(c, context, apperrors.NewValidationError("uploaded file is empty", nil))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	slog.InfoContext(context.GetContext(), "saved upload",
		"file", tempFile.Name(), "bytes", written, "kind", upload.Kind, "content_type", upload.ContentType)
	context.Add(c.GetOutputParam(), tempFile.Name())
}
