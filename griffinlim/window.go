package griffinlim

import (
	"github.com/mjibson/go-dsp/window"
)

// WindowFunc는 길이 n의 분석 창을 만든다.
type WindowFunc func(n int) []float64

// 아래 창들은 FFT용 periodic 창이다. 길이 n+1 대칭 창의 마지막 샘플을 뺀 것과 같다.
var (
	Hann        WindowFunc = periodic(window.Hann)
	Hamming     WindowFunc = periodic(window.Hamming)
	Blackman    WindowFunc = periodic(window.Blackman)
	Bartlett    WindowFunc = periodic(window.Bartlett)
	Rectangular WindowFunc = window.Rectangular
)

// Windows는 이름으로 창을 찾을 때 쓰는 표다.
var Windows = map[string]WindowFunc{
	"hann":        Hann,
	"hamming":     Hamming,
	"blackman":    Blackman,
	"bartlett":    Bartlett,
	"rectangular": Rectangular,
	"boxcar":      Rectangular,
	"ones":        Rectangular,
}

func periodic(symmetric func(int) []float64) WindowFunc {
	return func(n int) []float64 {
		if n <= 1 {
			return window.Rectangular(n)
		}
		return symmetric(n + 1)[:n]
	}
}

// padCenter는 win을 길이 size의 가운데에 놓고 양쪽을 0으로 채운다.
func padCenter(win []float64, size int) []float64 {
	out := make([]float64, size)
	offset := (size - len(win)) / 2
	copy(out[offset:], win)
	return out
}
