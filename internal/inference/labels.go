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
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LabelTable maps classifier class ids to labels.
type LabelTable []string

// Label resolves id. Ids outside the table and blank labels are not found.
func (t LabelTable) Label(id int) (string, bool) {
	if id < 0 || id >= len(t) || t[id] == "" {
		return "", false
	}
	return t[id], true
}

// LoadLabelTable reads the first column of a CSV file, one label per row.
// A UTF-8 byte order mark at the start of the file is ignored.
func LoadLabelTable(path string) (LabelTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadLabelTable(file)
}

// ReadLabelTable parses a label CSV from r.
func ReadLabelTable(r io.Reader) (LabelTable, error) {
	buffered := bufio.NewReader(r)
	if bom, err := buffered.Peek(3); err == nil && bytes.Equal(bom, utf8BOM) {
		_, _ = buffered.Discard(3)
	}
	reader := csv.NewReader(buffered)
	reader.FieldsPerRecord = -1
	var out LabelTable
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read labels: %w", err)
		}
		label := ""
		if len(record) > 0 {
			label = strings.TrimSpace(record[0])
		}
		out = append(out, label)
	}
	if len(out) == 0 {
		return nil, errors.New("read labels: no labels found")
	}
	return out, nil
}

// GestureModel pairs the keypoint classifier with its label table.
type GestureModel struct {
	Classifier KeypointClassifier
	Labels     LabelTable
}
