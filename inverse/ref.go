package inverse

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type refKind int

const (
	refDefault refKind = iota
	refFixed
	refDerived
)

// Ref는 dB를 파워로 바꿀 때 쓰는 기준 파워다.
// 고정값(FixedRef)이거나 dB 배열에서 계산하는 함수(DerivedRef)다.
// 0 값은 FixedRef(1)과 같다.
type Ref struct {
	kind   refKind
	value  float64
	derive func(logPower *mat.Dense) float64
}

// FixedRef는 상수 기준 파워다.
func FixedRef(v float64) Ref {
	return Ref{kind: refFixed, value: v}
}

// DerivedRef는 변환할 dB 배열을 받아 기준 파워를 계산하는 함수다.
func DerivedRef(f func(logPower *mat.Dense) float64) Ref {
	return Ref{kind: refDerived, derive: f}
}

// MaxRef는 배열의 최댓값을 기준으로 쓴다.
func MaxRef() Ref {
	return DerivedRef(func(logPower *mat.Dense) float64 {
		return mat.Max(logPower)
	})
}

func (r Ref) resolve(logPower *mat.Dense) (float64, error) {
	var v float64
	switch r.kind {
	case refDefault:
		return 1, nil
	case refFixed:
		v = r.value
	case refDerived:
		if r.derive == nil {
			return 0, errors.Wrap(ErrInvalidParameter, "nil reference function")
		}
		v = r.derive(logPower)
	default:
		return 0, errors.Wrapf(ErrInvalidParameter, "unknown reference kind: %d", r.kind)
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, errors.Wrapf(ErrInvalidParameter, "invalid reference power: %v", v)
	}
	return v, nil
}

// DBToPower는 ref · 10^(logPower/10)을 원소별로 계산한 새 행렬을 반환한다.
func DBToPower(logPower *mat.Dense, ref Ref) (*mat.Dense, error) {
	if logPower == nil || logPower.IsEmpty() {
		return nil, errors.Wrap(ErrInvalidParameter, "empty log power matrix")
	}
	rows, cols := logPower.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := logPower.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Wrapf(ErrInvalidParameter, "non-finite log power at (%d, %d)", i, j)
			}
		}
	}

	scale, err := ref.resolve(logPower)
	if err != nil {
		return nil, err
	}

	var power mat.Dense
	power.Apply(func(i, j int, v float64) float64 {
		return scale * math.Pow(10, 0.1*v)
	}, logPower)

	if !allFinite(&power) {
		return nil, errors.Wrap(ErrNumericDegeneracy, "db to power overflowed")
	}
	return &power, nil
}

func allFinite(m mat.Matrix) bool {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
