package inverse

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DType은 행렬과 신호 값의 수치 정밀도다.
type DType int

const (
	// Float32는 단정밀도다. 모든 값이 float32로 표현 가능하도록 반올림된다. 기본값이다.
	Float32 DType = iota
	// Float64는 배정밀도다.
	Float64
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

func (d DType) valid() bool {
	return d == Float32 || d == Float64
}

// Matrix는 (밴드 또는 bin 또는 계수) × 프레임 행렬과 그 정밀도다.
type Matrix struct {
	*mat.Dense
	DType DType
}

// NewMatrix는 행 우선 data로 Float64 행렬을 만든다. data가 nil이면 0으로 채운다.
func NewMatrix(rows, cols int, data []float64) (*Matrix, error) {
	if err := checkDims(rows, cols, len(data), data == nil); err != nil {
		return nil, err
	}
	if data != nil {
		data = append([]float64(nil), data...)
	}
	return &Matrix{Dense: mat.NewDense(rows, cols, data), DType: Float64}, nil
}

// NewMatrix32는 행 우선 data로 Float32 행렬을 만든다.
func NewMatrix32(rows, cols int, data []float32) (*Matrix, error) {
	if err := checkDims(rows, cols, len(data), data == nil); err != nil {
		return nil, err
	}
	values := make([]float64, rows*cols)
	for i, v := range data {
		values[i] = float64(v)
	}
	return &Matrix{Dense: mat.NewDense(rows, cols, values), DType: Float32}, nil
}

// FromDense는 d를 감싼다. dtype이 Float32이면 d의 값을 제자리에서 반올림한다.
func FromDense(d *mat.Dense, dtype DType) *Matrix {
	if dtype == Float32 {
		roundFloat32(d)
	}
	return &Matrix{Dense: d, DType: dtype}
}

// Float32s는 신호를 []float32로 복사한다.
func Float32s(y []float64) []float32 {
	out := make([]float32, len(y))
	for i, v := range y {
		out[i] = float32(v)
	}
	return out
}

func checkDims(rows, cols, n int, empty bool) error {
	if rows <= 0 || cols <= 0 {
		return errors.Wrapf(ErrShapeMismatch, "invalid matrix shape %dx%d", rows, cols)
	}
	if !empty && n != rows*cols {
		return errors.Wrapf(ErrShapeMismatch, "%d values for %dx%d matrix", n, rows, cols)
	}
	return nil
}

func roundFloat32(d *mat.Dense) {
	raw := d.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols]
		for j, v := range row {
			row[j] = float64(float32(v))
		}
	}
}

func (m *Matrix) empty() bool {
	return m == nil || m.Dense == nil || m.Dense.IsEmpty()
}
