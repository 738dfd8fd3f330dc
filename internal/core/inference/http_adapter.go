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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// KindUnreadableFormat is the error kind a model server reports when it
// cannot decode the uploaded audio.
const KindUnreadableFormat = "unreadable_format"

// Request headers sent with every upload.
const (
	HeaderDevice     = "X-Device"
	HeaderSampleRate = "X-Sample-Rate"
	HeaderFileName   = "X-File-Name"
)

type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPAdapter posts the audio file to a model server.
type HTTPAdapter struct {
	name       string
	endpoint   string
	healthURL  string
	client     *http.Client
	profile    *model.Profile
	classifier *FormatErrorClassifier
}

// NewHTTPAdapter creates an adapter for endpoint. healthPath is resolved
// against the endpoint; an empty path disables the health check.
func NewHTTPAdapter(name, endpoint, healthPath string, client *http.Client, profile *model.Profile, classifier *FormatErrorClassifier) (*HTTPAdapter, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid model endpoint %q", endpoint)
	}
	health := ""
	if healthPath != "" {
		ref, err := url.Parse(healthPath)
		if err != nil {
			return nil, fmt.Errorf("invalid health path %q: %w", healthPath, err)
		}
		health = u.ResolveReference(ref).String()
	}
	if client == nil {
		client = http.DefaultClient
	}
	if classifier == nil {
		classifier = NewFormatErrorClassifier(nil)
	}
	return &HTTPAdapter{
		name:       name,
		endpoint:   endpoint,
		healthURL:  health,
		client:     client,
		profile:    profile,
		classifier: classifier,
	}, nil
}

func (a *HTTPAdapter) Name() string {
	return a.name
}

// Init requires a 2xx answer from the health route.
func (a *HTTPAdapter) Init(ctx context.Context) error {
	if a.healthURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.healthURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrModelInitFailed, a.name, err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrModelInitFailed, a.name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: health check returned %s", model.ErrModelInitFailed, a.name, resp.Status)
	}
	return nil
}

// ContentType sniffs the MIME type of path.
func ContentType(path string) string {
	kind, err := filetype.MatchFile(path)
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream"
	}
	return kind.MIME.Value
}

func (a *HTTPAdapter) Infer(ctx context.Context, in Request) (map[string]float64, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return nil, &Error{Adapter: a.name, Message: err.Error(), Err: err}
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, f)
	if err != nil {
		return nil, &Error{Adapter: a.name, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", ContentType(in.Path))
	req.Header.Set(HeaderDevice, in.Device)
	req.Header.Set(HeaderSampleRate, strconv.Itoa(in.SampleRate))
	req.Header.Set(HeaderFileName, filepath.Base(in.Path))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &Error{Adapter: a.name, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Adapter: a.name, Message: err.Error(), Err: err}
	}

	if resp.StatusCode/100 == 2 {
		metrics, err := ParseMetrics(body, a.profile)
		if err != nil {
			return nil, &Error{Adapter: a.name, Message: err.Error(), Err: err}
		}
		return metrics, nil
	}

	var eb errorBody
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
		msg = eb.Error.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("model server returned %s", resp.Status)
	}
	format := resp.StatusCode == http.StatusUnsupportedMediaType ||
		eb.Error.Kind == KindUnreadableFormat ||
		a.classifier.MatchesSignature(msg)
	return nil, &Error{Adapter: a.name, Message: msg, Format: format}
}
