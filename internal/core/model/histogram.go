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

package model

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strconv"
)

// DetectionHistogram counts label occurrences and remembers the order in
// which labels were first seen. That order breaks ties in Dominant, which
// keeps the choice deterministic for a given sequence of detections.
type DetectionHistogram struct {
	counts map[string]int
	order  []string
}

// NewDetectionHistogram creates an empty histogram.
func NewDetectionHistogram() *DetectionHistogram {
	return &DetectionHistogram{counts: make(map[string]int)}
}

// Add records one occurrence of label.
func (h *DetectionHistogram) Add(label string) {
	if _, ok := h.counts[label]; !ok {
		h.order = append(h.order, label)
	}
	h.counts[label]++
}

// Count returns the occurrences recorded for label.
func (h *DetectionHistogram) Count(label string) int {
	return h.counts[label]
}

// Total is the sum of all counts.
func (h *DetectionHistogram) Total() int {
	total := 0
	for _, c := range h.counts {
		total += c
	}
	return total
}

// Len is the number of distinct labels.
func (h *DetectionHistogram) Len() int {
	return len(h.order)
}

// Labels returns the distinct labels in first-seen order.
func (h *DetectionHistogram) Labels() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Counts returns a copy of the label counts.
func (h *DetectionHistogram) Counts() map[string]int {
	out := make(map[string]int, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

// Dominant returns the label with the highest count. Among equal counts the
// label seen first wins. ok is false for an empty histogram.
func (h *DetectionHistogram) Dominant() (label string, ok bool) {
	best := 0
	for _, l := range h.order {
		if c := h.counts[l]; c > best {
			label, best = l, c
		}
	}
	return label, best > 0
}

// MarshalJSON writes the histogram as a plain object in first-seen order.
// An empty histogram is written as {}.
func (h *DetectionHistogram) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if h != nil {
		for i, l := range h.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(l)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(h.counts[l]))
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a plain object. Go maps are unordered, so labels are
// ordered alphabetically after decoding.
func (h *DetectionHistogram) UnmarshalJSON(data []byte) error {
	counts := make(map[string]int)
	if err := json.Unmarshal(data, &counts); err != nil {
		return err
	}
	h.counts = counts
	h.order = slices.Sorted(maps.Keys(counts))
	return nil
}
