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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// ParseMetrics decodes a model response. Accepted shapes are a bare number
// (only for single-metric profiles), an object of numbers, or an object with
// a "metrics" object or a "score" number.
func ParseMetrics(body []byte, profile *model.Profile) (map[string]float64, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return map[string]float64{}, nil
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid model response: %w", err)
	}

	switch v := raw.(type) {
	case nil:
		return map[string]float64{}, nil
	case float64:
		return single(v, profile)
	case map[string]interface{}:
		if m, ok := v["metrics"].(map[string]interface{}); ok {
			return numbers(m)
		}
		if s, ok := v["score"].(float64); ok {
			return single(s, profile)
		}
		return numbers(v)
	default:
		return nil, fmt.Errorf("unexpected model response type %T", raw)
	}
}

func single(v float64, profile *model.Profile) (map[string]float64, error) {
	if profile == nil || len(profile.Metrics) != 1 {
		return nil, errors.New("model returned a single score for a multi-metric profile")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("model returned non-finite score %v", v)
	}
	return map[string]float64{profile.Metrics[0].Key: v}, nil
}

func numbers(in map[string]interface{}) (map[string]float64, error) {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("metric %q is not a number", k)
		}
		out[k] = f
	}
	return out, nil
}
