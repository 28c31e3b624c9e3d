// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

const wavHeaderSize = 44

// encodeWAV wraps raw LINEAR16 PCM bytes in a complete WAV container using
// the capture format.
func encodeWAV(pcmData []byte) []byte {
	var buf bytes.Buffer
	writeWAVHeader(&buf, uint32(len(pcmData)))
	buf.Write(pcmData)
	return buf.Bytes()
}

func writeWAVHeader(buf *bytes.Buffer, dataSize uint32) {
	cfg := MURMUR_INTERNAL_AUDIO_CONFIG
	bps := uint32(BytesPerSecond())
	blockAlign := cfg.Channels * AudioBytesPerSample

	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(AudioPCMFormat))
	binary.Write(buf, binary.LittleEndian, cfg.Channels)
	binary.Write(buf, binary.LittleEndian, cfg.SampleRate)
	binary.Write(buf, binary.LittleEndian, bps)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, uint16(AudioBitsPerSample))

	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, dataSize)
}

// SegmentWriter streams one segment's samples into a WAV file. The header is
// written up front with zero sizes and patched on Close so a crash mid-write
// still leaves a recognizable (if short) file.
type SegmentWriter struct {
	f       *os.File
	path    string
	dataLen uint32
	closed  bool
}

// NewSegmentWriter creates the segment file and reserves its header.
func NewSegmentWriter(path string) (*SegmentWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create segment file %s: %w", path, err)
	}
	var header bytes.Buffer
	writeWAVHeader(&header, 0)
	if _, err := f.Write(header.Bytes()); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	return &SegmentWriter{f: f, path: path}, nil
}

// Write converts float32 samples to LINEAR16 and appends them.
func (w *SegmentWriter) Write(samples []float32) error {
	if w.closed {
		return fmt.Errorf("segment writer already closed")
	}
	pcm := make([]byte, len(samples)*AudioBytesPerSample)
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		}
		if s < -1.0 {
			s = -1.0
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	if _, err := w.f.Write(pcm); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	w.dataLen += uint32(len(pcm))
	return nil
}

// Path returns the segment file path.
func (w *SegmentWriter) Path() string {
	return w.path
}

// Duration returns the audio duration written so far.
func (w *SegmentWriter) Duration() time.Duration {
	return time.Duration(float64(w.dataLen) / float64(BytesPerSecond()) * float64(time.Second))
}

// Close patches the RIFF and data sizes and closes the file.
func (w *SegmentWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	sizes := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizes, 36+w.dataLen)
	if _, err := w.f.WriteAt(sizes, 4); err != nil {
		w.f.Close()
		return fmt.Errorf("failed to patch RIFF size: %w", err)
	}
	binary.LittleEndian.PutUint32(sizes, w.dataLen)
	if _, err := w.f.WriteAt(sizes, 40); err != nil {
		w.f.Close()
		return fmt.Errorf("failed to patch data size: %w", err)
	}
	return w.f.Close()
}
