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

package wav_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaycherian/gcp-go-audio-quality/internal/core/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(i%100 + 1)
	}
	return out
}

func TestWriteAndReadInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, wav.Write(path, 16000, 1, tone(16000)))

	info, err := wav.ReadInfo(path)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, 16000, info.SampleRate)
	assert.Equal(t, 16, info.Bits)
	assert.Equal(t, int64(44), info.DataOffset)
	assert.Equal(t, 16000, info.Frames())
	assert.InDelta(t, 1.0, info.Seconds(), 1e-9)
}

func TestReadInfoRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.wav")
	require.NoError(t, os.WriteFile(path, []byte("ID3\x03not really audio"), 0o644))

	_, err := wav.ReadInfo(path)
	assert.ErrorIs(t, err, wav.ErrNotWAV)
}

func TestPadToExtendsShortInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "short.wav")
	dst := filepath.Join(dir, "padded.wav")
	require.NoError(t, wav.Write(src, 16000, 1, tone(1200)))

	padded, err := wav.PadTo(src, dst, 0.5)
	require.NoError(t, err)
	assert.True(t, padded)

	info, err := wav.ReadInfo(dst)
	require.NoError(t, err)
	assert.Equal(t, 8000, info.Frames())

	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	// The original samples come first, followed by silence.
	assert.Equal(t, byte(1), raw[44])
	assert.Equal(t, []byte{0, 0}, raw[len(raw)-2:])
}

func TestPadToLeavesLongInputAlone(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "long.wav")
	dst := filepath.Join(dir, "unused.wav")
	require.NoError(t, wav.Write(src, 16000, 1, tone(9000)))

	padded, err := wav.PadTo(src, dst, 0.5)
	require.NoError(t, err)
	assert.False(t, padded)
	assert.NoFileExists(t, dst)
}

func TestPadToUsesTheFileSampleRate(t *testing.T) {
	dir := t.TempDir()

	// 0.3 s at 44.1 kHz is short even though it holds more than 8000 frames.
	hi := filepath.Join(dir, "clip44k.wav")
	require.NoError(t, wav.Write(hi, 44100, 1, tone(13230)))
	padded, err := wav.PadTo(hi, filepath.Join(dir, "clip44k-padded.wav"), 0.5)
	require.NoError(t, err)
	require.True(t, padded)
	info, err := wav.ReadInfo(filepath.Join(dir, "clip44k-padded.wav"))
	require.NoError(t, err)
	assert.Equal(t, 22050, info.Frames())
	assert.InDelta(t, 0.5, info.Seconds(), 1e-9)

	// 0.75 s at 8 kHz is long enough even though it holds fewer than 8000 frames.
	lo := filepath.Join(dir, "clip8k.wav")
	require.NoError(t, wav.Write(lo, 8000, 1, tone(6000)))
	padded, err = wav.PadTo(lo, filepath.Join(dir, "clip8k-padded.wav"), 0.5)
	require.NoError(t, err)
	assert.False(t, padded)
	assert.NoFileExists(t, filepath.Join(dir, "clip8k-padded.wav"))
}

func TestMinFrames(t *testing.T) {
	assert.Equal(t, 8000, (&wav.Info{SampleRate: 16000}).MinFrames(0.5))
	assert.Equal(t, 24000, (&wav.Info{SampleRate: 48000}).MinFrames(0.5))
	assert.Equal(t, 0, (&wav.Info{SampleRate: 16000}).MinFrames(0))
}
