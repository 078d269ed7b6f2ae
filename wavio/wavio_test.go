package wavio

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func sine(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.8 * math.Sin(2*math.Pi*float64(i)/37)
	}
	return out
}

func TestWriteRead_RoundTrip(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	samples := sine(500)
	tests := []struct {
		bitDepth int
		delta    float64
	}{
		{0, 1.0 / (1 << 15)},
		{8, 1.0 / (1 << 7)},
		{16, 1.0 / (1 << 15)},
		{24, 1.0 / (1 << 23)},
		{32, 1e-9},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "out.wav")
		require.NoError(t, Write(path, samples, 16_000, WriteOptions{BitDepth: tt.bitDepth}))

		got, sampleRate, err := ReadMono(path)
		require.NoError(t, err)
		assert.Equal(t, 16_000, sampleRate)
		require.Len(t, got, len(samples))
		assert.InDeltaSlice(t, samples, got, tt.delta, "bit depth %d", tt.bitDepth)
	}
}

func TestWrite_NormalizeAndClip(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	loud := []float64{0, 2, -4, math.NaN()}

	clipped := filepath.Join(dir, "clipped.wav")
	require.NoError(t, Write(clipped, loud, 8_000, WriteOptions{}))
	got, _, err := ReadMono(clipped)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, -1, 0}, got, 1e-4)

	normalized := filepath.Join(dir, "normalized.wav")
	require.NoError(t, Write(normalized, loud, 8_000, WriteOptions{Normalize: true}))
	got, _, err = ReadMono(normalized)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.5, -1, 0}, got, 1e-4)
}

func TestWrite_Metadata(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	path := filepath.Join(t.TempDir(), "meta.wav")
	require.NoError(t, Write(path, sine(64), 22_050, WriteOptions{Software: "mel2wav"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadMetadata()
	require.NoError(t, d.Err())
	require.NotNil(t, d.Metadata)
	assert.Equal(t, "mel2wav", d.Metadata.Software)

	got, _, err := ReadMono(path)
	require.NoError(t, err)
	assert.Len(t, got, 64)
}

func TestWrite_InvalidOptions(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	assert.Error(t, Write(filepath.Join(dir, "a.wav"), sine(8), 0, WriteOptions{}))
	assert.Error(t, Write(filepath.Join(dir, "b.wav"), sine(8), 8_000, WriteOptions{BitDepth: 12}))
	assert.Error(t, Write(filepath.Join(dir, "missing", "c.wav"), sine(8), 8_000, WriteOptions{}))
}

func TestReadMono_AveragesChannels(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	e := wav.NewEncoder(f, 8_000, 16, 2, formatPCM)
	require.NoError(t, e.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 8_000},
		Data:           []int{16_384, 0, -16_384, -16_384, 8_192, 24_576},
		SourceBitDepth: 16,
	}))
	require.NoError(t, e.Close())
	require.NoError(t, f.Close())

	got, sampleRate, err := ReadMono(path)
	require.NoError(t, err)
	assert.Equal(t, 8_000, sampleRate)
	assert.InDeltaSlice(t, []float64{0.25, -0.5, 0.5}, got, 1e-9)
}

func floatWav(t *testing.T, samples []float32) []byte {
	t.Helper()

	var data bytes.Buffer
	require.NoError(t, binary.Write(&data, binary.LittleEndian, samples))

	var b bytes.Buffer
	le := func(v any) { require.NoError(t, binary.Write(&b, binary.LittleEndian, v)) }
	b.WriteString("RIFF")
	le(uint32(36 + data.Len()))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	le(uint32(16))
	le(uint16(formatIEEEFloat))
	le(uint16(1))
	le(uint32(16_000))
	le(uint32(16_000 * 4))
	le(uint16(4))
	le(uint16(32))
	b.WriteString("data")
	le(uint32(data.Len()))
	b.Write(data.Bytes())
	return b.Bytes()
}

func TestReadMono_Float(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	path := filepath.Join(t.TempDir(), "float.wav")
	require.NoError(t, os.WriteFile(path, floatWav(t, []float32{0.5, -0.25, 1}), 0o600))

	got, sampleRate, err := ReadMono(path)
	require.NoError(t, err)
	assert.Equal(t, 16_000, sampleRate)
	assert.Equal(t, []float64{0.5, -0.25, 1}, got)

	nan := filepath.Join(t.TempDir(), "nan.wav")
	require.NoError(t, os.WriteFile(nan, floatWav(t, []float32{float32(math.NaN())}), 0o600))
	_, _, err = ReadMono(nan)
	assert.Error(t, err)
}

func TestReadMono_Errors(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	_, _, err := ReadMono(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.wav")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a wav file"), 0o600))
	_, _, err = ReadMono(garbage)
	assert.Error(t, err)
}

func extensibleWav(t *testing.T, code uint16, bits int, samples any) []byte {
	t.Helper()

	var data bytes.Buffer
	require.NoError(t, binary.Write(&data, binary.LittleEndian, samples))

	var b bytes.Buffer
	le := func(v any) { require.NoError(t, binary.Write(&b, binary.LittleEndian, v)) }
	b.WriteString("RIFF")
	le(uint32(4 + 8 + 40 + 8 + data.Len()))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	le(uint32(40))
	le(uint16(formatExtensible))
	le(uint16(1))
	le(uint32(16_000))
	le(uint32(16_000 * bits / 8))
	le(uint16(bits / 8))
	le(uint16(bits))
	le(uint16(22))
	le(uint16(bits))
	le(uint32(0x4))
	le(code)
	le(uint16(0))
	b.Write(guidTail[2:])
	b.WriteString("data")
	le(uint32(data.Len()))
	b.Write(data.Bytes())
	return b.Bytes()
}

func TestReadMono_Extensible(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	dir := t.TempDir()
	for _, tc := range []struct {
		desc    string
		raw     []byte
		want    []float64
		wantErr bool
	}{
		{"pcm", extensibleWav(t, formatPCM, 16, []int16{16384, -8192}), []float64{0.5, -0.25}, false},
		{"float", extensibleWav(t, formatIEEEFloat, 32, []float32{0.75, -1}), []float64{0.75, -1}, false},
		{"adpcm", extensibleWav(t, 2, 16, []int16{0}), nil, true},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			path := filepath.Join(dir, tc.desc+".wav")
			require.NoError(t, os.WriteFile(path, tc.raw, 0o600))

			got, sampleRate, err := ReadMono(path)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 16_000, sampleRate)
			assert.Equal(t, tc.want, got)
		})
	}
}
