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

package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/storage"
)

const gcsScheme = "gs://"

// ErrInvalidGCSURI is returned for malformed gs:// destinations.
var ErrInvalidGCSURI = errors.New("invalid gcs uri")

// GCSObject identifies an object in a bucket.
type GCSObject struct {
	Bucket string
	Name   string
}

func (o GCSObject) String() string {
	return gcsScheme + o.Bucket + "/" + o.Name
}

// IsGCSURI reports whether dest uses the gs:// scheme.
func IsGCSURI(dest string) bool {
	return strings.HasPrefix(dest, gcsScheme)
}

// ParseGCSURI splits gs://bucket/object into its parts. Both parts must be
// non-empty and the object name must not end with a slash.
func ParseGCSURI(uri string) (GCSObject, error) {
	if !IsGCSURI(uri) {
		return GCSObject{}, fmt.Errorf("%w: %q: missing gs:// scheme", ErrInvalidGCSURI, uri)
	}
	bucket, name, ok := strings.Cut(strings.TrimPrefix(uri, gcsScheme), "/")
	if !ok || bucket == "" || name == "" || strings.HasSuffix(name, "/") {
		return GCSObject{}, fmt.Errorf("%w: %q: expected gs://bucket/object", ErrInvalidGCSURI, uri)
	}
	return GCSObject{Bucket: bucket, Name: name}, nil
}

// ReportUploader copies a rendered report into Cloud Storage.
type ReportUploader struct {
	client *storage.Client
}

// NewReportUploader creates an uploader on an initialized storage client.
func NewReportUploader(client *storage.Client) *ReportUploader {
	return &ReportUploader{client: client}
}

// Upload streams the local file at path to obj. The object is only created
// when the writer closes cleanly.
//
// Inputs:
//   - ctx: cancelling it aborts the upload.
//   - path: local file to upload.
//   - obj: destination object.
//
// Outputs:
//   - error: open, copy or finalize failures.
func (u *ReportUploader) Upload(ctx context.Context, path string, obj GCSObject) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	writer := u.client.Bucket(obj.Bucket).Object(obj.Name).NewWriter(ctx)
	writer.ContentType = "text/plain; charset=utf-8"

	if written, err := io.Copy(writer, f); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to copy to %s after %d bytes: %w", obj, written, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", obj, err)
	}
	slog.Info("report uploaded", "destination", obj.String())
	return nil
}
