// Package wavio는 복원한 신호를 WAV 파일로 쓰고, 기준 WAV 파일을 모노 샘플로 읽는다.
package wavio

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

// ReadMono는 WAV 파일을 읽어 채널 평균을 낸 [-1, 1] 범위 모노 샘플과 샘플레이트를 반환한다.
// 정수 PCM(8/16/24/32비트)과 IEEE float(32/64비트)를 지원하며 WAVE_FORMAT_EXTENSIBLE 헤더도 읽는다.
func ReadMono(path string) (samples []float64, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "open wav file failed")
	}
	defer func() {
		if err0 := f.Close(); err0 != nil {
			err = multierr.Append(err, err0)
		}
	}()

	return decodeMono(f)
}

func decodeMono(r io.ReadSeeker) ([]float64, int, error) {
	d := wav.NewDecoder(r)
	if err := d.FwdToPCM(); err != nil {
		return nil, 0, errors.Wrap(err, "decode wav header failed")
	}
	if err := d.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "decode wav header failed")
	}

	channels := int(d.NumChans)
	if channels <= 0 {
		return nil, 0, errors.Errorf("invalid channel count: %d", d.NumChans)
	}
	sampleRate := int(d.SampleRate)
	if sampleRate <= 0 {
		return nil, 0, errors.Errorf("invalid sample rate: %dHz", sampleRate)
	}
	bitDepth := int(d.BitDepth)

	format := d.WavAudioFormat
	if format == formatExtensible {
		sub, err := subFormat(r)
		if err != nil {
			return nil, 0, errors.Wrap(err, "parse extensible wav format failed")
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, 0, errors.Wrap(err, "rewind wav reader failed")
		}
		d = wav.NewDecoder(r)
		if err := d.FwdToPCM(); err != nil {
			return nil, 0, errors.Wrap(err, "decode wav header failed")
		}
		format = sub
	}

	switch format {
	case formatPCM:
		buf, err := d.FullPCMBuffer()
		if err != nil {
			return nil, 0, errors.Wrap(err, "decode wav data failed")
		}
		samples, err := intToMono(buf, channels, bitDepth)
		if err != nil {
			return nil, 0, err
		}
		return samples, sampleRate, nil
	case formatIEEEFloat:
		samples, err := floatToMono(d.PCMChunk, int(d.PCMSize), channels, bitDepth)
		if err != nil {
			return nil, 0, errors.Wrap(err, "decode float wav data failed")
		}
		return samples, sampleRate, nil
	default:
		return nil, 0, errors.Errorf("unsupported wav format: code=%d", format)
	}
}

func intToMono(buf *audio.IntBuffer, channels, bitDepth int) ([]float64, error) {
	if buf == nil {
		return nil, errors.New("invalid PCM buffer")
	}
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, errors.Errorf("unsupported PCM bit depth: %d", bitDepth)
	}
	if rem := len(buf.Data) % channels; rem != 0 {
		return nil, errors.Errorf("wav data length (%d samples) is not divisible by channel count (%d)", len(buf.Data), channels)
	}

	normalizer := math.Ldexp(1, bitDepth-1)
	offset := 0.0
	if bitDepth == 8 {
		// 8비트 PCM은 부호 없는 값이라 0x80이 무음이다.
		offset = normalizer
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := range out {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += (float64(buf.Data[i*channels+c]) - offset) / normalizer
		}
		out[i] = sum / float64(channels)
	}
	return out, nil
}

func floatToMono(r io.Reader, size, channels, bitDepth int) ([]float64, error) {
	if r == nil {
		return nil, errors.New("PCM chunk not found")
	}
	bytesPerSample := bitDepth / 8
	if bytesPerSample != 4 && bytesPerSample != 8 {
		return nil, errors.Errorf("unsupported float bit depth: %d", bitDepth)
	}

	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "read PCM chunk failed")
	}
	frameSize := bytesPerSample * channels
	if len(raw)%frameSize != 0 {
		return nil, errors.Errorf("wav data length (%d bytes) is not divisible by frame size (%d)", len(raw), frameSize)
	}

	out := make([]float64, len(raw)/frameSize)
	for i := range out {
		sum := 0.0
		for c := 0; c < channels; c++ {
			b := raw[i*frameSize+c*bytesPerSample:]
			var v float64
			if bytesPerSample == 4 {
				v = float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
			} else {
				v = math.Float64frombits(binary.LittleEndian.Uint64(b))
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Errorf("invalid float PCM sample at frame %d, channel %d", i, c)
			}
			sum += v
		}
		out[i] = sum / float64(channels)
	}
	return out, nil
}
