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

// Package wav reads and writes the small subset of RIFF/WAVE the pipeline
// produces: uncompressed 16-bit PCM. It is used to measure and zero-pad
// short inputs before inference.
package wav

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	formatPCM     = 1
	bitsPerSample = 16
	headerSize    = 44
)

var (
	// ErrNotWAV is returned for files without a RIFF/WAVE header.
	ErrNotWAV = errors.New("not a RIFF/WAVE file")
	// ErrUnsupported is returned for WAV files that are not 16-bit PCM.
	ErrUnsupported = errors.New("unsupported WAV encoding")
)

// Info describes a PCM WAV file.
type Info struct {
	Channels   int
	SampleRate int
	Bits       int
	DataOffset int64 // Byte offset of the first sample.
	DataSize   int64 // Bytes of sample data.
}

// BlockAlign returns the size in bytes of one sample frame.
func (i *Info) BlockAlign() int {
	return i.Channels * i.Bits / 8
}

// Frames returns the number of sample frames.
func (i *Info) Frames() int {
	if i.BlockAlign() == 0 {
		return 0
	}
	return int(i.DataSize) / i.BlockAlign()
}

// Seconds returns the duration in seconds.
func (i *Info) Seconds() float64 {
	if i.SampleRate == 0 {
		return 0
	}
	return float64(i.Frames()) / float64(i.SampleRate)
}

// ReadInfo parses the header of the WAV file at path.
func ReadInfo(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readInfo(bufio.NewReader(f))
}

func readInfo(r io.Reader) (*Info, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, ErrNotWAV
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, ErrNotWAV
	}

	info := &Info{}
	offset := int64(12)
	haveFmt := false
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))
		offset += 8

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			var fmtChunk [16]byte
			if _, err := io.ReadFull(r, fmtChunk[:]); err != nil {
				return nil, fmt.Errorf("%w: truncated fmt chunk", ErrNotWAV)
			}
			if binary.LittleEndian.Uint16(fmtChunk[0:2]) != formatPCM {
				return nil, ErrUnsupported
			}
			info.Channels = int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
			info.Bits = int(binary.LittleEndian.Uint16(fmtChunk[14:16]))
			if info.Bits != bitsPerSample || info.Channels == 0 {
				return nil, ErrUnsupported
			}
			haveFmt = true
			if err := skip(r, size-16+size%2); err != nil {
				return nil, err
			}
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data before fmt", ErrNotWAV)
			}
			info.DataOffset = offset
			info.DataSize = size
			return info, nil
		default:
			if err := skip(r, size+size%2); err != nil {
				return nil, err
			}
		}
		offset += size + size%2
	}
}

func skip(r io.Reader, n int64) error {
	if _, err := io.CopyN(io.Discard, r, n); err != nil {
		return fmt.Errorf("%w: truncated chunk", ErrNotWAV)
	}
	return nil
}

func writeHeader(w io.Writer, channels, sampleRate int, dataSize int64) error {
	blockAlign := channels * bitsPerSample / 8
	var h [headerSize]byte
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataSize))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], formatPCM)
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], bitsPerSample)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataSize))
	_, err := w.Write(h[:])
	return err
}

// Write creates a 16-bit PCM WAV file holding interleaved samples.
func Write(path string, sampleRate, channels int, samples []int16) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := writeHeader(w, channels, sampleRate, int64(len(samples)*2)); err != nil {
		f.Close()
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MinFrames returns the number of sample frames that last at least seconds
// at the file's own sample rate.
func (i *Info) MinFrames(seconds float64) int {
	if seconds <= 0 || i.SampleRate <= 0 {
		return 0
	}
	return int(math.Ceil(seconds * float64(i.SampleRate)))
}

// PadTo copies src to dst appending silence until it lasts at least
// minSeconds at its own sample rate. Nothing is written, and false is
// returned, when src is already long enough.
func PadTo(src, dst string, minSeconds float64) (bool, error) {
	info, err := ReadInfo(src)
	if err != nil {
		return false, err
	}
	minFrames := info.MinFrames(minSeconds)
	frames := info.Frames()
	if frames >= minFrames {
		return false, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()
	if _, err := in.Seek(info.DataOffset, io.SeekStart); err != nil {
		return false, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return false, err
	}
	dataBytes := int64(frames * info.BlockAlign())
	padBytes := int64((minFrames - frames) * info.BlockAlign())

	w := bufio.NewWriter(out)
	err = writeHeader(w, info.Channels, info.SampleRate, dataBytes+padBytes)
	if err == nil {
		_, err = io.CopyN(w, in, dataBytes)
	}
	if err == nil {
		_, err = io.CopyN(w, zeroReader{}, padBytes)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return false, fmt.Errorf("failed to pad %s: %w", src, err)
	}
	return true, nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
