package internal_audio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- encodeWAV Tests ---

func TestEncodeWAV_Header(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	out := encodeWAV(pcm)

	require.Len(t, out, 44+len(pcm))
	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, "WAVE", string(out[8:12]))
	assert.Equal(t, "fmt ", string(out[12:16]))
	assert.Equal(t, "data", string(out[36:40]))

	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(out[4:8]))
	assert.Equal(t, uint16(AudioPCMFormat), binary.LittleEndian.Uint16(out[20:22]))
	assert.Equal(t, MURMUR_INTERNAL_AUDIO_CONFIG.Channels, binary.LittleEndian.Uint16(out[22:24]))
	assert.Equal(t, MURMUR_INTERNAL_AUDIO_CONFIG.SampleRate, binary.LittleEndian.Uint32(out[24:28]))
	assert.Equal(t, uint16(AudioBitsPerSample), binary.LittleEndian.Uint16(out[34:36]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(out[40:44]))
	assert.Equal(t, pcm, out[44:])
}

// --- SegmentWriter Tests ---

func TestSegmentWriter_WriteAndFinalize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment.wav")
	writer, err := NewSegmentWriter(path)
	require.NoError(t, err)
	assert.Equal(t, path, writer.Path())

	samples := make([]float32, int(MURMUR_INTERNAL_AUDIO_CONFIG.SampleRate)) // one second
	for i := range samples {
		samples[i] = 0.5
	}
	require.NoError(t, writer.Write(samples))
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	dataSize := len(samples) * AudioBytesPerSample
	require.Len(t, data, 44+dataSize)
	assert.Equal(t, uint32(36+dataSize), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, uint32(dataSize), binary.LittleEndian.Uint32(data[40:44]))

	sample := int16(binary.LittleEndian.Uint16(data[44:46]))
	assert.InDelta(t, 0.5, float64(sample)/32767, 0.001)
}

func TestSegmentWriter_ClampsOutOfRangeSamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment.wav")
	writer, err := NewSegmentWriter(path)
	require.NoError(t, err)

	require.NoError(t, writer.Write([]float32{1.5, -1.5}))
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	high := int16(binary.LittleEndian.Uint16(data[44:46]))
	low := int16(binary.LittleEndian.Uint16(data[46:48]))
	assert.Equal(t, int16(32767), high)
	assert.Equal(t, int16(-32767), low)
}

func TestSegmentWriter_Duration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segment.wav")
	writer, err := NewSegmentWriter(path)
	require.NoError(t, err)

	half := make([]float32, int(MURMUR_INTERNAL_AUDIO_CONFIG.SampleRate)/2)
	require.NoError(t, writer.Write(half))
	assert.InDelta(t, 0.5, writer.Duration().Seconds(), 0.01)
	require.NoError(t, writer.Close())
}

// --- Level Tests ---

func TestLevel_Silence(t *testing.T) {
	assert.Equal(t, 0.0, Level(make([]float32, 512)))
	assert.Equal(t, 0.0, Level(nil))
}

func TestLevel_FullScale(t *testing.T) {
	samples := make([]float32, 512)
	for i := range samples {
		samples[i] = 1.0
	}
	assert.Equal(t, 1.0, Level(samples))
}

func TestLevel_MidRange(t *testing.T) {
	// RMS of a constant 0.1 signal is 0.1, i.e. -20 dB → (−20+60)/50 = 0.8.
	samples := make([]float32, 512)
	for i := range samples {
		samples[i] = 0.1
	}
	assert.InDelta(t, 0.8, Level(samples), 0.01)
}

func TestLevel_ClampsVeryQuietSignals(t *testing.T) {
	// -80 dB is below the -60 dB floor and must clamp to zero.
	samples := make([]float32, 512)
	for i := range samples {
		samples[i] = float32(math.Pow(10, -4))
	}
	assert.Equal(t, 0.0, Level(samples))
}
