// Package filters는 선형 주파수 bin을 멜 밴드로 투영하는 필터 뱅크를 만든다.
package filters

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/zrma/go-melinv/internal/errs"
)

// ErrInvalidParameter는 필터 뱅크 인자가 잘못되었을 때 감싸지는 오류다.
var ErrInvalidParameter = errs.InvalidParameter

// Norm은 각 삼각 필터의 정규화 방식이다.
type Norm int

const (
	// NormSlaney는 각 필터의 면적(Hz 기준)이 1이 되도록 나눈다. 기본값이다.
	NormSlaney Norm = iota
	// NormNone은 꼭짓점 높이가 1인 삼각 필터를 그대로 둔다.
	NormNone
)

// Options는 필터 뱅크 구성 옵션이다.
// FMax가 0이면 나이퀴스트 주파수(sr/2)를 사용한다.
type Options struct {
	FMin float64
	FMax float64
	HTK  bool
	Norm Norm
}

// Mel은 [nMels × (nFFT/2+1)] 크기의 음이 아닌 멜 필터 뱅크 행렬을 만든다.
// 반환된 행렬은 호출자가 단독으로 소유한다.
func Mel(sampleRate float64, nFFT, nMels int, opts Options) (*mat.Dense, error) {
	if !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid sample rate: %v", sampleRate)
	}
	if nFFT <= 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid fft size: %d", nFFT)
	}
	if nMels <= 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid mel band count: %d", nMels)
	}
	fmin, fmax := opts.FMin, opts.FMax
	if fmax == 0 {
		fmax = sampleRate / 2
	}
	if fmin < 0 || math.IsNaN(fmin) || math.IsInf(fmin, 0) {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid fmin: %v", fmin)
	}
	if !(fmax > fmin) || math.IsInf(fmax, 0) {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid fmax: %v (fmin=%v)", fmax, fmin)
	}
	if opts.Norm != NormSlaney && opts.Norm != NormNone {
		return nil, errors.Wrapf(ErrInvalidParameter, "unsupported filter norm: %d", opts.Norm)
	}

	binCount := nFFT/2 + 1
	fftFreqs := FFTFrequencies(sampleRate, nFFT)
	melF := MelFrequencies(nMels+2, fmin, fmax, opts.HTK)

	weights := mat.NewDense(nMels, binCount, nil)
	for i := 0; i < nMels; i++ {
		lowerWidth := melF[i+1] - melF[i]
		upperWidth := melF[i+2] - melF[i+1]
		enorm := 1.0
		if opts.Norm == NormSlaney {
			enorm = 2.0 / (melF[i+2] - melF[i])
		}
		for k, f := range fftFreqs {
			lower := (f - melF[i]) / lowerWidth
			upper := (melF[i+2] - f) / upperWidth
			w := math.Min(lower, upper)
			if w <= 0 || math.IsNaN(w) {
				continue
			}
			weights.Set(i, k, w*enorm)
		}
	}

	return weights, nil
}

// EmptyChannels는 모든 가중치가 0인 필터(행)의 인덱스를 반환한다.
// nMels가 nFFT에 비해 너무 크면 저주파 쪽 필터가 비게 된다.
func EmptyChannels(weights mat.Matrix) []int {
	rows, cols := weights.Dims()
	var empty []int
	for i := 0; i < rows; i++ {
		peak := 0.0
		for j := 0; j < cols; j++ {
			peak = math.Max(peak, weights.At(i, j))
		}
		if peak == 0 {
			empty = append(empty, i)
		}
	}
	return empty
}

// FFTFrequencies는 rFFT bin 중심 주파수 nFFT/2+1개를 반환한다.
func FFTFrequencies(sampleRate float64, nFFT int) []float64 {
	return linspace(0, sampleRate/2, nFFT/2+1)
}

// MelFrequencies는 멜 축에서 균등하게 놓인 n개의 점을 Hz로 돌려준다.
func MelFrequencies(n int, fmin, fmax float64, htk bool) []float64 {
	mels := linspace(HzToMel(fmin, htk), HzToMel(fmax, htk), n)
	for i, m := range mels {
		mels[i] = MelToHz(m, htk)
	}
	return mels
}

const (
	slaneyFSP       = 200.0 / 3
	slaneyMinLogHz  = 1_000.0
	slaneyMinLogMel = slaneyMinLogHz / slaneyFSP
)

var slaneyLogStep = math.Log(6.4) / 27

// HzToMel은 Hz를 멜로 바꾼다. htk가 false면 Slaney 척도
// (1kHz 이하 선형, 이상 로그)를 사용한다.
func HzToMel(freq float64, htk bool) float64 {
	if htk {
		// https://en.wikipedia.org/wiki/Mel_scale
		return 2_595 * math.Log10(1+freq/700)
	}
	if freq >= slaneyMinLogHz {
		return slaneyMinLogMel + math.Log(freq/slaneyMinLogHz)/slaneyLogStep
	}
	return freq / slaneyFSP
}

// MelToHz는 HzToMel의 역함수다.
func MelToHz(mel float64, htk bool) float64 {
	if htk {
		return 700 * (math.Pow(10, mel/2_595) - 1)
	}
	if mel >= slaneyMinLogMel {
		return slaneyMinLogHz * math.Exp(slaneyLogStep*(mel-slaneyMinLogMel))
	}
	return slaneyFSP * mel
}

func linspace(start, end float64, numPoints int) []float64 {
	if numPoints <= 1 {
		return []float64{start}
	}

	step := (end - start) / float64(numPoints-1)
	points := make([]float64, numPoints)

	for i := range points {
		points[i] = start + float64(i)*step
	}
	points[numPoints-1] = end

	return points
}
