package featio

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
)

// ImageOptions는 스펙트로그램 이미지 설정이다.
type ImageOptions struct {
	// DB면 10·log10(v)로 바꾼 뒤 최대값 아래 TopDB 범위만 그린다.
	DB    bool
	TopDB float64
	// YReverse면 낮은 밴드를 이미지 아래쪽에 둔다.
	YReverse bool
}

// WritePNG는 [밴드 × 프레임] 행렬을 가로가 시간인 흑백 PNG로 저장한다.
func WritePNG(path string, m mat.Matrix, opts ImageOptions) (err error) {
	if m == nil {
		return errors.New("nil matrix")
	}
	img := render(m, opts)

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create png file failed")
	}
	defer func() {
		if err0 := f.Close(); err0 != nil {
			err = multierr.Append(err, err0)
		}
	}()

	return errors.Wrap(png.Encode(f, img), "encode png failed")
}

func render(m mat.Matrix, opts ImageOptions) *image.Gray {
	rows, cols := m.Dims()
	values := mat.DenseCopyOf(m)
	if opts.DB {
		topDB := opts.TopDB
		if topDB <= 0 {
			topDB = 80
		}
		values.Apply(func(_, _ int, v float64) float64 {
			return 10 * math.Log10(math.Max(v, 1e-10))
		}, values)
		floor := mat.Max(values) - topDB
		values.Apply(func(_, _ int, v float64) float64 {
			return math.Max(v, floor)
		}, values)
	}

	lo, hi := mat.Min(values), mat.Max(values)
	scale := 0.0
	if hi > lo {
		scale = 255 / (hi - lo)
	}

	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		row := y
		if opts.YReverse {
			row = rows - y - 1
		}
		for x := 0; x < cols; x++ {
			img.SetGray(x, row, color.Gray{Y: uint8(math.Round((values.At(y, x) - lo) * scale))})
		}
	}
	return img
}
