package inverse

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"

	"github.com/zrma/go-melinv/griffinlim"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SampleRate = 8_000
	cfg.NFFT = 256
	cfg.HopLength = 0
	cfg.NIter = 4
	return cfg
}

func randomNonNegative(r *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = r.Float64()
	}
	return mat.NewDense(rows, cols, data)
}

// melOf는 B·S^power를 계산해 S에서 나온 멜 스펙트로그램을 만든다.
func melOf(t *testing.T, s *mat.Dense, nMels int, cfg Config) *Matrix {
	t.Helper()

	basis, err := MelBasis(nMels, Float64, cfg)
	require.NoError(t, err)

	var sp, m mat.Dense
	sp.Apply(func(_, _ int, v float64) float64 { return math.Pow(v, cfg.Power) }, s)
	m.Mul(basis, &sp)
	return FromDense(&m, Float64)
}

func TestMelToSTFT_RoundTripBound(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	r := rand.New(rand.NewSource(11))
	cfg := testConfig()
	s := randomNonNegative(r, cfg.NFFT/2+1, 6)
	m := melOf(t, s, 32, cfg)

	got, err := MelToSTFT(m, cfg)
	require.NoError(t, err)

	original, err := MelResidual(m, FromDense(s, Float64), cfg)
	require.NoError(t, err)
	recovered, err := MelResidual(m, got, cfg)
	require.NoError(t, err)

	eps := 1e-6 * mat.Norm(m.Dense, 2)
	assert.LessOrEqual(t, recovered, original+eps)
}

func TestMelToSTFT_LeastSquaresOptimality(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	// 필터 뱅크로 만들 수 없는 멜 스펙트로그램에서도
	// 다른 어떤 음이 아닌 후보보다 잔차가 크지 않아야 한다.
	r := rand.New(rand.NewSource(5))
	cfg := testConfig()
	cfg.DType = Float64
	m := FromDense(randomNonNegative(r, 24, 4), Float64)

	got, err := MelToSTFT(m, cfg)
	require.NoError(t, err)
	recovered, err := MelResidual(m, got, cfg)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		candidate := FromDense(randomNonNegative(r, cfg.NFFT/2+1, 4), Float64)
		other, err := MelResidual(m, candidate, cfg)
		require.NoError(t, err)
		assert.LessOrEqual(t, recovered, other+1e-9)
	}

	zero := FromDense(mat.NewDense(cfg.NFFT/2+1, 4, nil), Float64)
	other, err := MelResidual(m, zero, cfg)
	require.NoError(t, err)
	assert.LessOrEqual(t, recovered, other+1e-9)
}

func TestMelToSTFT_NonNegative(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	r := rand.New(rand.NewSource(3))
	data := make([]float32, 40*5)
	for i := range data {
		data[i] = float32(r.ExpFloat64())
	}
	m, err := NewMatrix32(40, 5, data)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.NFFT = 512
	for _, power := range []float64{0.5, 1, 2, 3} {
		cfg.Power = power
		got, err := MelToSTFT(m, cfg)
		require.NoError(t, err)
		require.Equal(t, Float32, got.DType)

		rows, cols := got.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				v := got.At(i, j)
				require.GreaterOrEqual(t, v, 0.0, "power=%v (%d,%d)", power, i, j)
				require.Equal(t, v, float64(float32(v)))
			}
		}
	}
}

func TestMelToSTFT_ExponentIdentity(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	for _, power := range []float64{1, 2} {
		t.Run(map[float64]string{1: "energy", 2: "power"}[power], func(t *testing.T) {
			r := rand.New(rand.NewSource(17))
			cfg := testConfig()
			cfg.Power = power
			s := randomNonNegative(r, cfg.NFFT/2+1, 3)
			m := melOf(t, s, 20, cfg)

			got, err := MelToSTFT(m, cfg)
			require.NoError(t, err)

			basis, err := MelBasis(20, Float64, cfg)
			require.NoError(t, err)
			var sp, reproduced mat.Dense
			sp.Apply(func(_, _ int, v float64) float64 { return math.Pow(v, power) }, got)
			reproduced.Mul(basis, &sp)

			assert.True(t, mat.EqualApprox(m.Dense, &reproduced, 1e-7))
		})
	}
}

func TestMelToSTFT_ShapePropagation(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	r := rand.New(rand.NewSource(1))
	for _, tc := range []struct {
		nMels, nFFT, frames int
	}{
		{8, 64, 1},
		{16, 128, 3},
		{40, 512, 7},
		{64, 256, 2},
	} {
		cfg := testConfig()
		cfg.NFFT = tc.nFFT
		m := FromDense(randomNonNegative(r, tc.nMels, tc.frames), Float64)

		got, err := MelToSTFT(m, cfg)
		require.NoError(t, err)
		rows, cols := got.Dims()
		assert.Equal(t, tc.nFFT/2+1, rows)
		assert.Equal(t, tc.frames, cols)
		assert.Equal(t, Float64, got.DType)
	}
}

func TestMelToSTFT_InvalidParameters(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	m, err := NewMatrix(8, 2, nil)
	require.NoError(t, err)
	negative, err := NewMatrix(8, 2, nil)
	require.NoError(t, err)
	negative.Set(3, 1, -0.1)

	for _, tc := range []struct {
		desc   string
		m      *Matrix
		mutate func(*Config)
	}{
		{"zero power", m, func(c *Config) { c.Power = 0 }},
		{"negative power", m, func(c *Config) { c.Power = -2 }},
		{"nan power", m, func(c *Config) { c.Power = math.NaN() }},
		{"inf power", m, func(c *Config) { c.Power = math.Inf(1) }},
		{"zero sample rate", m, func(c *Config) { c.SampleRate = 0 }},
		{"zero fft size", m, func(c *Config) { c.NFFT = 0 }},
		{"negative fmin", m, func(c *Config) { c.Mel.FMin = -1 }},
		{"negative mel", negative, func(*Config) {}},
		{"nil", nil, func(*Config) {}},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			got, err := MelToSTFT(tc.m, cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParameter)
			assert.Nil(t, got)
		})
	}
}

func TestMelToAudio(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	r := rand.New(rand.NewSource(9))
	cfg := testConfig()
	m := FromDense(randomNonNegative(r, 24, 6), Float32)

	y, err := MelToAudio(m, cfg)
	require.NoError(t, err)
	assert.Len(t, y, 64*5)
	for _, v := range y {
		require.Equal(t, v, float64(float32(v)))
	}

	cfg.Length = 1_000
	cfg.DType = Float64
	y, err = MelToAudio(m, cfg)
	require.NoError(t, err)
	assert.Len(t, y, 1_000)
	assert.Zero(t, y[999])
}

func TestMelToAudio_PropagatesCollaboratorErrors(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	m, err := NewMatrix(16, 3, nil)
	require.NoError(t, err)

	for _, tc := range []struct {
		desc   string
		mutate func(*Config)
	}{
		{"zero iterations", func(c *Config) { c.NIter = 0 }},
		{"negative hop", func(c *Config) { c.HopLength = -1 }},
		{"window longer than fft", func(c *Config) { c.WinLength = 512 }},
		{"negative momentum", func(c *Config) { c.Momentum = -1 }},
		{"bad pad mode", func(c *Config) { c.PadMode = griffinlim.PadMode(42) }},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			_, err := MelToAudio(m, cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParameter)
		})
	}
}

func TestSTFTToAudio_ShapeMismatch(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	s, err := NewMatrix(100, 4, nil)
	require.NoError(t, err)

	_, err = STFTToAudio(s, testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSTFTToAudio_RecoversSpectrogram(t *testing.T) {
	t.Cleanup(func() { goleak.VerifyNone(t) })

	cfg := testConfig()
	cfg.DType = Float64
	cfg.NIter = 32

	y := make([]float64, 2_048)
	for i := range y {
		y[i] = math.Sin(2 * math.Pi * 440 * float64(i) / cfg.SampleRate)
	}
	spec, err := griffinlim.STFT(y, cfg.NFFT, griffinlim.Options{HopLength: 64})
	require.NoError(t, err)

	s, err := NewMatrix(cfg.NFFT/2+1, len(spec), nil)
	require.NoError(t, err)
	for j, column := range spec {
		for k, v := range column {
			s.Set(k, j, math.Hypot(real(v), imag(v)))
		}
	}

	cfg.Length = len(y)
	got, err := STFTToAudio(s, cfg)
	require.NoError(t, err)
	require.Len(t, got, len(y))

	sc, err := griffinlim.SpectralConvergence(got, s.Dense, griffinlim.Options{HopLength: 64})
	require.NoError(t, err)
	assert.Less(t, sc, 0.3)
}
