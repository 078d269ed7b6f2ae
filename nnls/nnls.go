// Package nnls는 음이 아닌 최소제곱(NNLS) 문제 min ‖A·X − B‖ s.t. X ≥ 0 을 푼다.
//
// B의 각 열은 독립된 문제이며 Lawson-Hanson active set 방법으로 푼다.
// 반환되는 해는 정확히 0 또는 양수이며 음수 항목을 갖지 않는다.
package nnls

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/zrma/go-melinv/internal/errs"
)

var (
	// ErrShapeMismatch는 A와 B의 행 수가 다를 때 감싸지는 오류다.
	ErrShapeMismatch = errs.ShapeMismatch
	// ErrNumericDegeneracy는 반복 한도 안에 수렴하지 못했을 때 감싸지는 오류다.
	ErrNumericDegeneracy = errs.NumericDegeneracy
	// ErrInvalidParameter는 입력이 nil이거나 유한하지 않을 때 감싸지는 오류다.
	ErrInvalidParameter = errs.InvalidParameter
)

// Options는 솔버 설정이다. 0 값 필드는 기본값으로 채워진다.
type Options struct {
	// MaxIter는 열마다 허용하는 active set 교체 횟수다. 기본값은 3·(A의 열 수)다.
	MaxIter int
	// Tolerance는 쌍대 변수의 양수 판정 임계값이다. 지정하면 모든 열에 그대로 쓴다.
	// 0이면 열마다 10·eps·‖A‖₁·max(m, n)·‖b‖∞로 정해져 B의 크기와 무관하게 같은 상대 정밀도를 낸다.
	Tolerance float64
}

// Solve는 [n × k] 해 행렬을 반환한다. A는 [m × n], B는 [m × k]이다.
// 반환된 행렬은 새로 할당되며 호출자가 단독으로 소유한다.
func Solve(a, b mat.Matrix, opts Options) (*mat.Dense, error) {
	if a == nil || b == nil {
		return nil, errors.Wrap(ErrInvalidParameter, "nil matrix")
	}
	m, n := a.Dims()
	bm, k := b.Dims()
	if m != bm {
		return nil, errors.Wrapf(ErrShapeMismatch, "design matrix has %d rows but target has %d", m, bm)
	}
	if !allFinite(a) || !allFinite(b) {
		return nil, errors.Wrap(ErrInvalidParameter, "non-finite value in nnls input")
	}

	s := newSolver(a, opts)
	x := mat.NewDense(n, k, nil)
	col := make([]float64, m)
	for j := 0; j < k; j++ {
		mat.Col(col, j, b)
		sol, err := s.solveVec(col)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", j)
		}
		x.SetCol(j, sol)
	}
	return x, nil
}

// Residual은 ‖A·X − B‖_F를 계산한다.
func Residual(a, x, b mat.Matrix) float64 {
	var r mat.Dense
	r.Mul(a, x)
	r.Sub(&r, b)
	return mat.Norm(&r, 2)
}

type solver struct {
	a       mat.Matrix
	cols    [][]float64
	m, n    int
	maxIter int
	// tol이 0보다 크면 고정 임계값이고, 아니면 scale·‖b‖∞를 쓴다.
	tol   float64
	scale float64
}

func newSolver(a mat.Matrix, opts Options) *solver {
	m, n := a.Dims()
	cols := make([][]float64, n)
	for j := range cols {
		cols[j] = mat.Col(nil, j, a)
	}

	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = 3 * n
	}
	return &solver{
		a:       a,
		cols:    cols,
		m:       m,
		n:       n,
		maxIter: maxIter,
		tol:     opts.Tolerance,
		scale:   10 * eps * mat.Norm(a, 1) * float64(max(m, n)),
	}
}

const eps = 0x1p-52

func (s *solver) solveVec(b []float64) ([]float64, error) {
	x := make([]float64, s.n)
	z := make([]float64, s.n)
	w := make([]float64, s.n)
	passive := make([]bool, s.n)
	rejected := make([]bool, s.n)
	bv := mat.NewVecDense(s.m, b)

	tol := s.tol
	if tol <= 0 {
		tol = s.scale * floats.Norm(b, math.Inf(1))
	}
	s.gradient(w, x, bv)

	for iter := 0; ; {
		j := -1
		best := tol
		for i, wi := range w {
			if !passive[i] && !rejected[i] && wi > best {
				best = wi
				j = i
			}
		}
		if j < 0 {
			return x, nil
		}
		if iter >= s.maxIter {
			return nil, errors.Wrapf(ErrNumericDegeneracy, "nnls did not converge in %d iterations", s.maxIter)
		}

		passive[j] = true
		singular, err := s.leastSquares(z, passive, bv)
		if err != nil {
			return nil, err
		}
		if singular || z[j] <= 0 {
			// 이미 passive 집합이 생성하는 공간에 있는 열은 후보에서 뺀다.
			passive[j] = false
			rejected[j] = true
			continue
		}
		iter++
		clear(rejected)

		for {
			feasible := true
			alpha := math.Inf(1)
			for i := range z {
				if passive[i] && z[i] <= 0 {
					feasible = false
					if d := x[i] - z[i]; d > 0 {
						alpha = math.Min(alpha, x[i]/d)
					}
				}
			}
			if feasible {
				copy(x, z)
				break
			}
			if math.IsInf(alpha, 1) {
				alpha = 0
			}

			for i := range x {
				x[i] += alpha * (z[i] - x[i])
				if passive[i] && x[i] <= tol {
					passive[i] = false
					x[i] = 0
				}
			}
			if !anyTrue(passive) {
				break
			}
			if _, err := s.leastSquares(z, passive, bv); err != nil {
				return nil, err
			}
		}

		s.gradient(w, x, bv)
	}
}

// gradient는 쌍대 변수 w = Aᵀ(b − A·x)를 계산한다.
func (s *solver) gradient(w, x []float64, b *mat.VecDense) {
	r := mat.NewVecDense(s.m, nil)
	r.MulVec(s.a, mat.NewVecDense(s.n, x))
	r.SubVec(b, r)
	res := r.RawVector().Data
	for i, c := range s.cols {
		w[i] = floats.Dot(c, res)
	}
}

// leastSquares는 passive 집합의 열만으로 최소제곱 해를 구해 z에 채운다.
// 부분 행렬이 수치적으로 특이하면 singular가 true다.
func (s *solver) leastSquares(z []float64, passive []bool, b *mat.VecDense) (singular bool, err error) {
	idx := make([]int, 0, s.n)
	for i, p := range passive {
		if p {
			idx = append(idx, i)
		}
	}
	clear(z)

	ap := mat.NewDense(s.m, len(idx), nil)
	for c, i := range idx {
		ap.SetCol(c, s.cols[i])
	}

	var sol mat.VecDense
	if err := sol.SolveVec(ap, b); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return false, errors.Wrap(ErrNumericDegeneracy, err.Error())
		}
		singular = true
	}
	for c, i := range idx {
		v := sol.AtVec(c)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true, nil
		}
		z[i] = v
	}
	return singular, nil
}

func allFinite(a mat.Matrix) bool {
	rows, cols := a.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := a.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func anyTrue(flags []bool) bool {
	for _, f := range flags {
		if f {
			return true
		}
	}
	return false
}
