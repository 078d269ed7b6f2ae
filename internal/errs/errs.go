// Package errs는 역변환 파이프라인의 모든 단계가 공유하는 오류 종류를 정의한다.
// 각 단계는 이 값들을 문맥과 함께 감싸서 반환하므로, 호출자는 어느 단계에서
// 실패했든 errors.Is로 종류를 판별할 수 있다.
package errs

import "github.com/pkg/errors"

var (
	InvalidParameter  = errors.New("invalid parameter")
	ShapeMismatch     = errors.New("shape mismatch")
	NumericDegeneracy = errors.New("numeric degeneracy")
)
