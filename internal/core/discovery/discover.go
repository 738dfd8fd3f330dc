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

package discovery

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
)

// Discover returns the media files under root, sorted by path. Only files
// whose extension classifies as audio or video are returned. When recursive
// is false only the entries directly inside root are considered.
//
// Inputs:
//   - root: The directory to scan.
//   - classifier: Decides which files are media.
//   - recursive: Whether subdirectories are walked.
//
// Outputs:
//   - []*model.MediaFile: The discovered files; empty (not an error) when none match.
//   - error: Wraps model.ErrDirectoryNotFound when root is missing or not a directory.
//     Unreadable entries below root are logged and skipped.
func Discover(root string, classifier *Classifier, recursive bool) ([]*model.MediaFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrDirectoryNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", model.ErrDirectoryNotFound, root)
	}

	// WalkDir does not follow a symlinked root, so walk its target and map
	// the results back under the path the caller gave.
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrDirectoryNotFound, root, err)
	}

	var paths []string
	err = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == walkRoot {
				return err
			}
			slog.Warn("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != walkRoot && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if classifier.Classify(path) == model.KindUnsupported {
			return nil
		}
		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.Join(root, rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Strings(paths)
	files := make([]*model.MediaFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, model.NewMediaFile(p, classifier.Classify(p)))
	}
	return files, nil
}
