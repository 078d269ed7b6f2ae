// Package dct는 행렬의 첫 번째 축(행 방향)을 따라 DCT type 1/2/3과 그 역변환을 수행한다.
//
// 스케일은 scipy.fftpack과 같다. 정규화하지 않은 경우 Inverse(Transform(x))는
// type 2/3에서 2N·x, type 1에서 2(N-1)·x가 된다. NormOrtho는 type 2/3에서만
// 허용되며 이때 두 변환은 서로의 정확한 역이다.
package dct

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/zrma/go-melinv/internal/errs"
)

// ErrInvalidParameter는 변환 종류나 정규화 조합이 잘못되었을 때 감싸지는 오류다.
var ErrInvalidParameter = errs.InvalidParameter

// Type은 DCT 변형이다.
type Type int

const (
	Type1 Type = 1
	Type2 Type = 2
	Type3 Type = 3
)

// Norm은 DCT 정규화 방식이다.
type Norm int

const (
	NormNone Norm = iota
	NormOrtho
)

// Transform은 x의 각 열에 순방향 DCT를 적용한다.
// n이 0이면 x의 행 수를 사용하고, 그 외에는 입력 열을 n으로 자르거나 0으로 채운 뒤 변환한다.
func Transform(x mat.Matrix, kind Type, norm Norm, n int) (*mat.Dense, error) {
	return apply(x, kind, norm, n)
}

// Inverse는 x의 각 열에 역 DCT를 적용한다. n의 의미는 Transform과 같다.
//
// 역변환 길이 n이 계수 개수보다 크면 빠진 고차 계수를 0으로 간주한다.
// 새로운 정보가 만들어지는 것이 아니라 매끄러운 포락선만 복원된다.
// n이 더 작으면 고차 계수는 버려진다.
func Inverse(x mat.Matrix, kind Type, norm Norm, n int) (*mat.Dense, error) {
	switch kind {
	case Type1:
		return apply(x, Type1, norm, n)
	case Type2:
		return apply(x, Type3, norm, n)
	case Type3:
		return apply(x, Type2, norm, n)
	default:
		return nil, errors.Wrapf(ErrInvalidParameter, "unsupported dct type: %d", kind)
	}
}

// Basis는 길이 n 열벡터에 곱하는 [n × n] 변환 행렬을 반환한다.
func Basis(kind Type, norm Norm, n int) (*mat.Dense, error) {
	if err := validate(kind, norm, n); err != nil {
		return nil, err
	}
	return basis(kind, norm, n), nil
}

func apply(x mat.Matrix, kind Type, norm Norm, n int) (*mat.Dense, error) {
	if x == nil {
		return nil, errors.Wrap(ErrInvalidParameter, "nil input matrix")
	}
	rows, cols := x.Dims()
	if n == 0 {
		n = rows
	}
	if err := validate(kind, norm, n); err != nil {
		return nil, err
	}

	// 입력 계수를 n행으로 맞춘다. 잘리거나 0으로 채워진다.
	keep := min(rows, n)
	padded := mat.NewDense(n, cols, nil)
	padded.Slice(0, keep, 0, cols).(*mat.Dense).Copy(x)

	out := mat.NewDense(n, cols, nil)
	out.Mul(basis(kind, norm, n), padded)
	return out, nil
}

func validate(kind Type, norm Norm, n int) error {
	switch kind {
	case Type1, Type2, Type3:
	default:
		return errors.Wrapf(ErrInvalidParameter, "unsupported dct type: %d", kind)
	}
	switch norm {
	case NormNone, NormOrtho:
	default:
		return errors.Wrapf(ErrInvalidParameter, "unsupported dct norm: %d", norm)
	}
	if kind == Type1 && norm == NormOrtho {
		return errors.Wrap(ErrInvalidParameter, "orthonormal dct is not supported for type 1")
	}
	if n <= 0 {
		return errors.Wrapf(ErrInvalidParameter, "invalid dct length: %d", n)
	}
	if kind == Type1 && n < 2 {
		return errors.Wrapf(ErrInvalidParameter, "dct type 1 needs at least 2 points, got %d", n)
	}
	return nil
}

func basis(kind Type, norm Norm, n int) *mat.Dense {
	b := mat.NewDense(n, n, nil)
	nf := float64(n)

	switch kind {
	case Type1:
		// y[k] = x[0] + (-1)^k x[N-1] + 2 Σ_{j=1}^{N-2} x[j] cos(πkj/(N-1))
		for k := 0; k < n; k++ {
			for j := 0; j < n; j++ {
				v := 2 * math.Cos(math.Pi*float64(k*j)/(nf-1))
				if j == 0 || j == n-1 {
					v /= 2
				}
				b.Set(k, j, v)
			}
		}
	case Type2:
		// y[k] = 2 Σ x[j] cos(πk(2j+1)/(2N))
		for k := 0; k < n; k++ {
			scale := 2.0
			if norm == NormOrtho {
				scale = math.Sqrt(2 / nf)
				if k == 0 {
					scale = math.Sqrt(1 / nf)
				}
			}
			for j := 0; j < n; j++ {
				b.Set(k, j, scale*math.Cos(math.Pi*float64(k)*(2*float64(j)+1)/(2*nf)))
			}
		}
	case Type3:
		// y[k] = x[0] + 2 Σ_{j=1}^{N-1} x[j] cos(πj(2k+1)/(2N))
		for k := 0; k < n; k++ {
			for j := 0; j < n; j++ {
				var scale float64
				switch {
				case norm == NormOrtho && j == 0:
					scale = math.Sqrt(1 / nf)
				case norm == NormOrtho:
					scale = math.Sqrt(2 / nf)
				case j == 0:
					scale = 1
				default:
					scale = 2
				}
				b.Set(k, j, scale*math.Cos(math.Pi*float64(j)*(2*float64(k)+1)/(2*nf)))
			}
		}
	}

	return b
}
