package wavio

import (
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const defaultBitDepth = 16

// WriteOptions는 WAV 인코딩 설정이다.
type WriteOptions struct {
	// BitDepth는 정수 PCM 비트 수(8, 16, 24, 32)다. 0이면 16이다.
	BitDepth int
	// Normalize면 최대 절댓값이 1이 되도록 배율을 맞춘다. 아니면 [-1, 1] 밖은 잘린다.
	Normalize bool
	// Software는 INFO 청크에 기록할 생성 프로그램 이름이다. 비어 있으면 메타데이터를 쓰지 않는다.
	Software string
}

// Write는 모노 샘플을 WAV 파일로 쓴다.
func Write(path string, samples []float64, sampleRate int, opts WriteOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create wav file failed")
	}
	defer func() {
		if err0 := f.Close(); err0 != nil {
			err = multierr.Append(err, err0)
		}
	}()

	return Encode(f, samples, sampleRate, opts)
}

// Encode는 모노 샘플을 w에 WAV 형식으로 쓴다.
func Encode(w io.WriteSeeker, samples []float64, sampleRate int, opts WriteOptions) error {
	if sampleRate <= 0 {
		return errors.Errorf("invalid sample rate: %dHz", sampleRate)
	}
	bitDepth := opts.BitDepth
	if bitDepth == 0 {
		bitDepth = defaultBitDepth
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return errors.Errorf("unsupported PCM bit depth: %d", bitDepth)
	}

	gain := 1.0
	if opts.Normalize {
		peak := 0.0
		for _, v := range samples {
			if a := math.Abs(v); a > peak && !math.IsInf(a, 0) {
				peak = a
			}
		}
		if peak > 0 {
			gain = 1 / peak
		}
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           quantize(samples, gain, bitDepth),
		SourceBitDepth: bitDepth,
	}

	e := wav.NewEncoder(w, sampleRate, bitDepth, 1, formatPCM)
	if opts.Software != "" {
		e.Metadata = &wav.Metadata{Software: opts.Software}
	}
	if err := e.Write(buf); err != nil {
		return multierr.Append(errors.Wrap(err, "encode wav data failed"), e.Close())
	}
	return errors.Wrap(e.Close(), "finalize wav file failed")
}

func quantize(samples []float64, gain float64, bitDepth int) []int {
	full := math.Ldexp(1, bitDepth-1)
	hi := full - 1
	out := make([]int, len(samples))
	for i, v := range samples {
		if math.IsNaN(v) {
			v = 0
		}
		q := math.Round(v * gain * full)
		q = math.Max(-full, math.Min(hi, q))
		if bitDepth == 8 {
			q += full
		}
		out[i] = int(q)
	}
	return out
}
