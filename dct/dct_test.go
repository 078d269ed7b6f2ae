package dct

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"
)

func randomMatrix(r *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.NormFloat64()
	}
	return mat.NewDense(rows, cols, data)
}

func TestInverse_RoundTrip(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	r := rand.New(rand.NewSource(1))
	const n = 13

	tests := []struct {
		name  string
		kind  Type
		norm  Norm
		scale float64
	}{
		{"type1", Type1, NormNone, 2 * (n - 1)},
		{"type2", Type2, NormNone, 2 * n},
		{"type3", Type3, NormNone, 2 * n},
		{"type2 ortho", Type2, NormOrtho, 1},
		{"type3 ortho", Type3, NormOrtho, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := randomMatrix(r, n, 4)

			y, err := Transform(x, tt.kind, tt.norm, 0)
			require.NoError(t, err)
			back, err := Inverse(y, tt.kind, tt.norm, 0)
			require.NoError(t, err)

			var want mat.Dense
			want.Scale(tt.scale, x)
			assert.True(t, mat.EqualApprox(&want, back, 1e-9), "round trip mismatch")
		})
	}
}

func TestTransform_KnownValues(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	x := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	// scipy.fftpack.dct([1, 2, 3, 4], type=2)
	y, err := Transform(x, Type2, NormNone, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{20, -6.30864406, 0, -0.44834153}, mat.Col(nil, 0, y), 1e-7)

	// scipy.fftpack.dct([1, 2, 3, 4], type=1)
	y, err = Transform(x, Type1, NormNone, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{15, -4, 0, -1}, mat.Col(nil, 0, y), 1e-9)

	// ortho DCT-II의 DC 계수는 합 / sqrt(N)이다.
	y, err = Transform(x, Type2, NormOrtho, 0)
	require.NoError(t, err)
	assert.InDelta(t, 10/math.Sqrt(4), y.At(0, 0), 1e-12)
}

func TestBasis_OrthoIsOrthogonal(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	for _, kind := range []Type{Type2, Type3} {
		b, err := Basis(kind, NormOrtho, 16)
		require.NoError(t, err)

		var prod mat.Dense
		prod.Mul(b, b.T())
		identity := mat.NewDiagDense(16, nil)
		for i := 0; i < 16; i++ {
			identity.SetDiag(i, 1)
		}
		assert.True(t, mat.EqualApprox(&prod, identity, 1e-10), "type %d", kind)
	}
}

func TestInverse_ResizesCoefficients(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	r := rand.New(rand.NewSource(2))
	coeffs := randomMatrix(r, 5, 3)

	t.Run("zero extension", func(t *testing.T) {
		got, err := Inverse(coeffs, Type2, NormOrtho, 12)
		require.NoError(t, err)
		rows, cols := got.Dims()
		assert.Equal(t, 12, rows)
		assert.Equal(t, 3, cols)

		padded := mat.NewDense(12, 3, nil)
		padded.Slice(0, 5, 0, 3).(*mat.Dense).Copy(coeffs)
		want, err := Inverse(padded, Type2, NormOrtho, 0)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(want, got, 1e-12))
	})

	t.Run("truncation", func(t *testing.T) {
		got, err := Inverse(coeffs, Type2, NormOrtho, 3)
		require.NoError(t, err)
		want, err := Inverse(coeffs.Slice(0, 3, 0, 3), Type2, NormOrtho, 0)
		require.NoError(t, err)
		assert.True(t, mat.EqualApprox(want, got, 1e-12))
	})
}

func TestInverse_InvalidParameters(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	x := mat.NewDense(4, 2, nil)

	tests := []struct {
		name string
		kind Type
		norm Norm
		n    int
		want string
	}{
		{"type1 ortho", Type1, NormOrtho, 0, "not supported for type 1"},
		{"type0", Type(0), NormNone, 0, "unsupported dct type"},
		{"type4", Type(4), NormOrtho, 0, "unsupported dct type"},
		{"unknown norm", Type2, Norm(3), 0, "unsupported dct norm"},
		{"negative length", Type2, NormOrtho, -1, "invalid dct length"},
		{"type1 single point", Type1, NormNone, 1, "at least 2 points"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inverse(x, tt.kind, tt.norm, tt.n)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParameter)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Inverse(nil, Type2, NormOrtho, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
