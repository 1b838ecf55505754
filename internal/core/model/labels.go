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

// EmotionNeutral is the emotion reported when no face was classified.
const EmotionNeutral = "Neutral"

// emotionLabels maps the emotion model's output indices to labels. Index 1
// is deliberately absent: the model's seven outputs include a class the
// product does not report, and it resolves to Neutral like any unknown index.
var emotionLabels = map[int]string{
	0: "Angry",
	2: "Fear",
	3: "Happy",
	4: EmotionNeutral,
	5: "Sad",
	6: "Surprise",
}

// EmotionLabel resolves a model output index.
func EmotionLabel(index int) string {
	if label, ok := emotionLabels[index]; ok {
		return label
	}
	return EmotionNeutral
}
