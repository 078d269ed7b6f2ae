package inverse

import "github.com/zrma/go-melinv/internal/errs"

// 하위 단계(filters, nnls, dct, griffinlim)의 오류도 같은 값을 감싸므로
// errors.Is로 종류를 판별할 수 있다.
var (
	ErrInvalidParameter  = errs.InvalidParameter
	ErrShapeMismatch     = errs.ShapeMismatch
	ErrNumericDegeneracy = errs.NumericDegeneracy
)
