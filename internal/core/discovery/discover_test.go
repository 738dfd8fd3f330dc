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

package discovery_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-audio-quality/internal/config"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/discovery"
	"github.com/jaycherian/gcp-go-audio-quality/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultClassifier() *discovery.Classifier {
	return discovery.NewClassifier(config.DefaultAudioExtensions, config.DefaultVideoExtensions)
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
}

func TestClassify(t *testing.T) {
	c := defaultClassifier()
	cases := map[string]model.MediaKind{
		"song.wav":       model.KindAudio,
		"SONG.FLAC":      model.KindAudio,
		"dir/take.Mp3":   model.KindAudio,
		"clip.mp4":       model.KindVideo,
		"clip.MKV":       model.KindVideo,
		"notes.txt":      model.KindUnsupported,
		"no-extension":   model.KindUnsupported,
		"archive.wav.7z": model.KindUnsupported,
	}
	for path, want := range cases {
		assert.Equal(t, want, c.Classify(path), path)
	}
}

func TestClassifierAcceptsBareExtensions(t *testing.T) {
	c := discovery.NewClassifier([]string{"WAV"}, []string{"mp4"})
	assert.Equal(t, model.KindAudio, c.Classify("x.wav"))
	assert.Equal(t, model.KindVideo, c.Classify("x.MP4"))
}

func TestDiscoverSortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.wav"))
	touch(t, filepath.Join(root, "a.MP4"))
	touch(t, filepath.Join(root, "readme.md"))
	touch(t, filepath.Join(root, "nested", "c.flac"))

	files, err := discovery.Discover(root, defaultClassifier(), true)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a.MP4", "b.wav", "c.flac"}, names)
	assert.Equal(t, model.KindVideo, files[0].Kind)
	assert.Equal(t, model.KindAudio, files[2].Kind)
}

func TestDiscoverNonRecursive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "top.wav"))
	touch(t, filepath.Join(root, "nested", "deep.wav"))

	files, err := discovery.Discover(root, defaultClassifier(), false)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "top.wav", files[0].Name)
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	files, err := discovery.Discover(t.TempDir(), defaultClassifier(), true)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverMissingDirectory(t *testing.T) {
	_, err := discovery.Discover(filepath.Join(t.TempDir(), "missing"), defaultClassifier(), true)
	assert.True(t, errors.Is(err, model.ErrDirectoryNotFound))
}

func TestDiscoverRootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	touch(t, path)
	_, err := discovery.Discover(path, defaultClassifier(), true)
	assert.ErrorIs(t, err, model.ErrDirectoryNotFound)
}

func TestDiscoverFollowsSymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "target")
	touch(t, filepath.Join(target, "a.wav"))
	touch(t, filepath.Join(target, "nested", "b.mp3"))
	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(target, link))

	files, err := discovery.Discover(link, defaultClassifier(), true)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(link, "a.wav"), files[0].Path)
	assert.Equal(t, filepath.Join(link, "nested", "b.mp3"), files[1].Path)
}

func TestDiscoverSkipsUnreadableSubdirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.wav"))
	touch(t, filepath.Join(root, "locked", "hidden.wav"))
	touch(t, filepath.Join(root, "open", "c.flac"))
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	files, err := discovery.Discover(root, defaultClassifier(), true)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "a.wav")
	assert.Contains(t, names, "c.flac")
	if os.Geteuid() != 0 {
		assert.Equal(t, []string{"a.wav", "c.flac"}, names)
	}
}
