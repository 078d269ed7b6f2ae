package griffinlim

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
)

// PadMode는 center 프레이밍에서 신호 양끝을 채우는 방식이다.
type PadMode int

const (
	// PadReflect는 끝 샘플을 제외하고 거울 반사한다. 기본값이다.
	PadReflect PadMode = iota
	// PadConstant는 0으로 채운다.
	PadConstant
	// PadEdge는 끝 샘플을 반복한다.
	PadEdge
)

// PadModes는 이름으로 패딩 방식을 찾을 때 쓰는 표다.
var PadModes = map[string]PadMode{
	"reflect":  PadReflect,
	"constant": PadConstant,
	"edge":     PadEdge,
}

// frames는 Options의 단시간 변환 설정을 검증하고 기본값을 채운 결과다.
type frames struct {
	nFFT      int
	hop       int
	winLength int
	window    []float64 // nFFT 길이로 가운데 정렬된 창
	center    bool
	padMode   PadMode
}

func newFrames(nFFT int, opts Options) (*frames, error) {
	if nFFT <= 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid fft size: %d", nFFT)
	}
	winLength := opts.WinLength
	if winLength == 0 {
		winLength = nFFT
	}
	if winLength < 0 || winLength > nFFT {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid window length: %d (n_fft=%d)", opts.WinLength, nFFT)
	}
	hop := opts.HopLength
	if hop == 0 {
		hop = max(1, winLength/4)
	}
	if hop < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid hop length: %d", opts.HopLength)
	}
	switch opts.PadMode {
	case PadReflect, PadConstant, PadEdge:
	default:
		return nil, errors.Wrapf(ErrInvalidParameter, "unsupported pad mode: %d", opts.PadMode)
	}

	winFunc := opts.Window
	if winFunc == nil {
		winFunc = Hann
	}
	win := winFunc(winLength)
	if len(win) != winLength {
		return nil, errors.Wrapf(ErrInvalidParameter, "window function returned %d samples, want %d", len(win), winLength)
	}

	return &frames{
		nFFT:      nFFT,
		hop:       hop,
		winLength: winLength,
		window:    padCenter(win, nFFT),
		center:    !opts.DisableCenter,
		padMode:   opts.PadMode,
	}, nil
}

// STFT는 y의 단시간 푸리에 변환을 [(nFFT/2+1) 행][프레임 열] 모양으로 돌려준다.
// 결과는 열(프레임) 단위 슬라이스이며 out[t][k]가 프레임 t의 k번째 bin이다.
func STFT(y []float64, nFFT int, opts Options) ([][]complex128, error) {
	f, err := newFrames(nFFT, opts)
	if err != nil {
		return nil, err
	}
	return f.stft(y)
}

// ISTFT는 STFT의 역변환이다. nFFT는 2·(bin 수 − 1)로 추정하거나 opts.NFFT를 쓴다.
// length가 0보다 크면 결과를 그 길이로 자르거나 0으로 채운다.
func ISTFT(spec [][]complex128, opts Options) ([]float64, error) {
	if len(spec) == 0 || len(spec[0]) == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "empty spectrogram")
	}
	nFFT, err := inferFFTSize(len(spec[0]), opts.NFFT)
	if err != nil {
		return nil, err
	}
	for t, column := range spec {
		if len(column) != len(spec[0]) {
			return nil, errors.Wrapf(ErrShapeMismatch, "frame %d has %d bins, want %d", t, len(column), len(spec[0]))
		}
	}
	f, err := newFrames(nFFT, opts)
	if err != nil {
		return nil, err
	}
	if opts.Length < 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid output length: %d", opts.Length)
	}
	return f.istft(spec, opts.Length), nil
}

func inferFFTSize(bins, nFFT int) (int, error) {
	if nFFT == 0 {
		nFFT = 2 * (bins - 1)
	}
	if nFFT <= 0 || nFFT/2+1 != bins {
		return 0, errors.Wrapf(ErrShapeMismatch, "spectrogram has %d bins, incompatible with n_fft=%d", bins, nFFT)
	}
	return nFFT, nil
}

func (f *frames) stft(y []float64) ([][]complex128, error) {
	if f.center {
		y = pad(y, f.nFFT/2, f.padMode)
	}
	if len(y) < f.nFFT {
		return nil, errors.Wrapf(ErrInvalidParameter, "signal of %d samples is shorter than n_fft=%d", len(y), f.nFFT)
	}

	numFrames := 1 + (len(y)-f.nFFT)/f.hop
	bins := f.nFFT/2 + 1
	out := make([][]complex128, numFrames)
	frame := make([]float64, f.nFFT)
	for t := range out {
		start := t * f.hop
		for j := range frame {
			frame[j] = y[start+j] * f.window[j]
		}
		spectrum := fft.FFTReal(frame)
		out[t] = spectrum[:bins:bins]
	}
	return out, nil
}

func (f *frames) istft(spec [][]complex128, length int) []float64 {
	numFrames := len(spec)
	expected := f.nFFT + f.hop*(numFrames-1)
	y := make([]float64, expected)
	full := make([]complex128, f.nFFT)

	for t, column := range spec {
		hermitian(full, column)
		frame := fft.IFFT(full)
		start := t * f.hop
		for j, v := range frame {
			y[start+j] += real(v) * f.window[j]
		}
	}

	// 창 제곱합으로 나누어 overlap-add 이득을 보정한다.
	wss := f.windowSumSquare(numFrames, expected)
	tiny := math.SmallestNonzeroFloat64
	for i := range y {
		if wss[i] > tiny {
			y[i] /= wss[i]
		}
	}

	start := 0
	if f.center {
		start = f.nFFT / 2
	}
	if length <= 0 {
		end := len(y)
		if f.center {
			end -= f.nFFT / 2
		}
		return y[start:end]
	}
	return fixLength(y[start:], length)
}

func (f *frames) windowSumSquare(numFrames, n int) []float64 {
	out := make([]float64, n)
	for t := 0; t < numFrames; t++ {
		start := t * f.hop
		for j, w := range f.window {
			out[start+j] += w * w
		}
	}
	return out
}

// hermitian은 반쪽 스펙트럼 half로 길이 len(full)의 켤레 대칭 스펙트럼을 만든다.
func hermitian(full, half []complex128) {
	n := len(full)
	for k := range full {
		switch {
		case k < len(half):
			full[k] = half[k]
		default:
			full[k] = cmplx.Conj(half[n-k])
		}
	}
}

func fixLength(y []float64, length int) []float64 {
	if len(y) >= length {
		return y[:length]
	}
	out := make([]float64, length)
	copy(out, y)
	return out
}

// pad는 y 양쪽에 width개씩 샘플을 덧붙인 새 슬라이스를 반환한다.
func pad(y []float64, width int, mode PadMode) []float64 {
	n := len(y)
	out := make([]float64, n+2*width)
	copy(out[width:], y)
	if n == 0 || mode == PadConstant {
		return out
	}
	for i := 0; i < width; i++ {
		out[width-1-i] = y[padIndex(-1-i, n, mode)]
		out[width+n+i] = y[padIndex(n+i, n, mode)]
	}
	return out
}

func padIndex(i, n int, mode PadMode) int {
	if mode == PadEdge || n == 1 {
		return min(max(i, 0), n-1)
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}
