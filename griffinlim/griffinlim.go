// Package griffinlim은 크기(magnitude) 스펙트로그램만으로 시간 영역 신호를 복원한다.
//
// 위상은 Griffin-Lim 반복으로 추정한다. 매 반복마다 현재 위상으로 ISTFT를 하고,
// 다시 STFT를 한 뒤 크기는 입력값으로 되돌리고 위상만 취한다.
// 가속을 위해 Perraudin 등의 fast Griffin-Lim 모멘텀 항을 사용한다.
package griffinlim

import (
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/zrma/go-melinv/internal/errs"
	"github.com/zrma/go-melinv/internal/logging"
)

var (
	ErrInvalidParameter = errs.InvalidParameter
	ErrShapeMismatch    = errs.ShapeMismatch
)

// Init은 위상 초기화 방식이다.
type Init int

const (
	// InitRandom은 [0, 2π)에서 균등한 임의 위상으로 시작한다. 기본값이다.
	InitRandom Init = iota
	// InitZero는 모든 bin의 위상을 0으로 시작한다.
	InitZero
)

// Options는 단시간 변환과 반복 설정이다.
//
// 0 값 필드 중 NFFT, HopLength, WinLength, Window, PadMode는 기본값
// (2·(bin 수−1), WinLength/4, NFFT, Hann, reflect)으로 채워진다.
// NIter와 Momentum은 그대로 사용되므로 호출자가 지정해야 한다.
type Options struct {
	NFFT          int
	HopLength     int
	WinLength     int
	Window        WindowFunc
	DisableCenter bool
	PadMode       PadMode

	NIter    int
	Momentum float64
	Init     Init
	Seed     int64

	// Length가 0보다 크면 출력 신호를 정확히 그 길이로 맞춘다.
	Length int
	// SinglePrecision이면 출력 샘플을 float32 정밀도로 반올림한다.
	SinglePrecision bool

	Logger logrus.FieldLogger
}

// Reconstruct는 [(nFFT/2+1) × 프레임] 크기 스펙트로그램 s에서 신호를 복원한다.
func Reconstruct(s mat.Matrix, opts Options) ([]float64, error) {
	if s == nil {
		return nil, errors.Wrap(ErrInvalidParameter, "nil magnitude spectrogram")
	}
	bins, numFrames := s.Dims()
	nFFT, err := inferFFTSize(bins, opts.NFFT)
	if err != nil {
		return nil, err
	}
	f, err := newFrames(nFFT, opts)
	if err != nil {
		return nil, err
	}
	if opts.NIter <= 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid iteration count: %d", opts.NIter)
	}
	if opts.Momentum < 0 || math.IsNaN(opts.Momentum) || math.IsInf(opts.Momentum, 0) {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid momentum: %v", opts.Momentum)
	}
	if opts.Length < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid output length: %d", opts.Length)
	}
	if opts.Init != InitRandom && opts.Init != InitZero {
		return nil, errors.Wrapf(ErrInvalidParameter, "unsupported phase init: %d", opts.Init)
	}

	logger := logging.OrDiscard(opts.Logger).WithField("stage", "griffinlim")
	if opts.Momentum > 1 {
		logger.Warnf("momentum %v > 1 can be unstable", opts.Momentum)
	}

	mags := make([][]float64, numFrames)
	for t := range mags {
		mags[t] = mat.Col(nil, t, s)
		for k, v := range mags[t] {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Wrapf(ErrInvalidParameter, "invalid magnitude %v at bin %d frame %d", v, k, t)
			}
		}
	}

	angles := initialPhase(opts.Init, opts.Seed, numFrames, bins)
	spec := make([][]complex128, numFrames)
	for t := range spec {
		spec[t] = make([]complex128, bins)
	}

	var rebuilt, prev [][]complex128
	decay := opts.Momentum / (1 + opts.Momentum)
	for iter := 0; iter < opts.NIter; iter++ {
		prev = rebuilt
		applyMagnitude(spec, mags, angles)
		inverse := f.istft(spec, 0)
		rebuilt, err = f.stft(inverse)
		if err != nil {
			return nil, err
		}
		if len(rebuilt) != numFrames {
			return nil, errors.Wrapf(ErrShapeMismatch, "rebuilt %d frames, want %d", len(rebuilt), numFrames)
		}

		for t := range angles {
			for k := range angles[t] {
				a := rebuilt[t][k]
				if prev != nil {
					a -= complex(decay, 0) * prev[t][k]
				}
				angles[t][k] = a / complex(cmplx.Abs(a)+1e-16, 0)
			}
		}
	}

	applyMagnitude(spec, mags, angles)
	y := f.istft(spec, opts.Length)
	if opts.SinglePrecision {
		for i, v := range y {
			y[i] = float64(float32(v))
		}
	}

	logger.WithFields(logrus.Fields{
		"n_fft":      nFFT,
		"hop_length": f.hop,
		"frames":     numFrames,
		"iterations": opts.NIter,
		"samples":    len(y),
	}).Debug("phase reconstruction finished")

	return y, nil
}

// SpectralConvergence는 ‖|STFT(y)| − S‖_F / ‖S‖_F 를 계산한다.
// 값이 작을수록 y의 크기 스펙트럼이 s와 일치한다.
func SpectralConvergence(y []float64, s mat.Matrix, opts Options) (float64, error) {
	bins, numFrames := s.Dims()
	nFFT, err := inferFFTSize(bins, opts.NFFT)
	if err != nil {
		return 0, err
	}
	f, err := newFrames(nFFT, opts)
	if err != nil {
		return 0, err
	}
	spec, err := f.stft(y)
	if err != nil {
		return 0, err
	}

	var diff, ref float64
	for t := 0; t < numFrames; t++ {
		for k := 0; k < bins; k++ {
			target := s.At(k, t)
			got := 0.0
			if t < len(spec) {
				got = cmplx.Abs(spec[t][k])
			}
			diff += (got - target) * (got - target)
			ref += target * target
		}
	}
	if ref == 0 {
		return math.Sqrt(diff), nil
	}
	return math.Sqrt(diff / ref), nil
}

func initialPhase(init Init, seed int64, numFrames, bins int) [][]complex128 {
	angles := make([][]complex128, numFrames)
	var r *rand.Rand
	if init == InitRandom {
		r = rand.New(rand.NewSource(seed))
	}
	for t := range angles {
		angles[t] = make([]complex128, bins)
		for k := range angles[t] {
			if r == nil {
				angles[t][k] = 1
				continue
			}
			angles[t][k] = cmplx.Rect(1, 2*math.Pi*r.Float64())
		}
	}
	return angles
}

func applyMagnitude(dst [][]complex128, mags [][]float64, angles [][]complex128) {
	for t := range dst {
		for k := range dst[t] {
			dst[t][k] = complex(mags[t][k], 0) * angles[t][k]
		}
	}
}
