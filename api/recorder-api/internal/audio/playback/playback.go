// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_playback

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gordonklaus/portaudio"

	internal_audio "github.com/murmurai/api/recorder-api/internal/audio"
	"github.com/murmurai/pkg/commons"
	"github.com/murmurai/pkg/utils"
)

// ErrAudioNotFound is returned when a segment's audio file is missing or its
// path was blanked by storage cleanup. Callers display "not found"; they do
// not treat this as a pipeline failure.
var ErrAudioNotFound = errors.New("audio file not found for this segment")

const playbackFrames = 1024

// Player plays one segment file at a time through the default output
// device.
type Player struct {
	logger commons.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPlayer assumes portaudio is already initialized by the capture engine
// owner; it only opens output streams.
func NewPlayer(logger commons.Logger) *Player {
	return &Player{logger: logger}
}

// PlaySegment synchronously plays the WAV file at path. Starting a new
// playback stops the previous one.
func (p *Player) PlaySegment(ctx context.Context, path string) error {
	if utils.IsEmpty(path) {
		return ErrAudioNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrAudioNotFound
		}
		return fmt.Errorf("failed to read segment audio %s: %w", path, err)
	}
	samples, err := decodeWAV(data)
	if err != nil {
		return err
	}

	p.Stop()
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()
	defer func() {
		cancel()
		p.mu.Lock()
		p.cancel = nil
		p.mu.Unlock()
	}()

	cfg := internal_audio.MURMUR_INTERNAL_AUDIO_CONFIG
	buffer := make([]float32, playbackFrames)
	stream, err := portaudio.OpenDefaultStream(
		0,                 // input channels (none)
		int(cfg.Channels), // output channels
		float64(cfg.SampleRate),
		playbackFrames,
		buffer,
	)
	if err != nil {
		return fmt.Errorf("failed to open audio output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio output stream: %w", err)
	}
	defer stream.Stop()

	for off := 0; off < len(samples); off += playbackFrames {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		n := copy(buffer, samples[off:])
		for i := n; i < playbackFrames; i++ {
			buffer[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("audio output write failed: %w", err)
		}
	}
	return nil
}

// Stop cancels any in-flight playback.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// decodeWAV extracts float32 samples from a LINEAR16 WAV produced by the
// capture engine.
func decodeWAV(data []byte) ([]float32, error) {
	if len(data) < 44 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, fmt.Errorf("not a WAV file")
	}
	pcm := data[44:]
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if int(dataSize) < len(pcm) {
		pcm = pcm[:dataSize]
	}
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = float32(v) / 32767
	}
	return samples, nil
}
