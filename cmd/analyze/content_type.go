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

package main

import (
	"fmt"

	"github.com/ana-landing/media-signals/internal/core/model"
	"github.com/h2non/filetype"
)

// resolveContentType returns override when set. Otherwise it sniffs the
// file's header; an unrecognised video is sent as application/octet-stream
// and left to ffmpeg, an unrecognised audio file is an error.
func resolveContentType(override string, kind model.MediaKind, path string) (string, error) {
	if override != "" {
		return override, nil
	}
	detected, err := filetype.MatchFile(path)
	if err != nil {
		return "", err
	}
	if detected != filetype.Unknown {
		// Browsers label WebM audio recordings video/webm; trust the command.
		if kind == model.MediaKindAudio && detected.MIME.Type == "video" && detected.Extension == "webm" {
			return "audio/webm", nil
		}
		return detected.MIME.Value, nil
	}
	if kind == model.MediaKindVideo {
		return "application/octet-stream", nil
	}
	return "", fmt.Errorf("cannot tell the content type of %s; pass --content-type", path)
}
