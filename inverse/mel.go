package inverse

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/zrma/go-melinv/filters"
	"github.com/zrma/go-melinv/griffinlim"
	"github.com/zrma/go-melinv/internal/logging"
	"github.com/zrma/go-melinv/nnls"
)

// MelBasis는 cfg의 샘플레이트, FFT 크기, 멜 옵션으로 [nMels × (NFFT/2+1)] 필터 뱅크를 만든다.
// dtype이 Float32이면 값을 float32 정밀도로 반올림한다.
func MelBasis(nMels int, dtype DType, cfg Config) (*mat.Dense, error) {
	basis, err := filters.Mel(cfg.SampleRate, cfg.NFFT, nMels, cfg.Mel)
	if err != nil {
		return nil, errors.Wrap(err, "build mel basis failed")
	}
	if dtype == Float32 {
		roundFloat32(basis)
	}
	return basis, nil
}

// MelToSTFT는 멜 파워 스펙트로그램 m으로부터 [(NFFT/2+1) × 프레임] 선형 크기 스펙트로그램을 근사한다.
//
// 필터 뱅크 B에 대해 B·X ≈ m을 X ≥ 0 조건으로 풀고 X^(1/Power)를 반환한다.
// 결과의 정밀도는 m을 따른다.
func MelToSTFT(m *Matrix, cfg Config) (*Matrix, error) {
	if err := cfg.validateSpectral(); err != nil {
		return nil, err
	}
	if m.empty() {
		return nil, errors.Wrap(ErrInvalidParameter, "empty mel spectrogram")
	}
	if !m.DType.valid() {
		return nil, errors.Wrapf(ErrInvalidParameter, "unsupported dtype: %d", m.DType)
	}
	nMels, frames := m.Dims()
	if err := checkNonNegative(m.Dense); err != nil {
		return nil, err
	}

	logger := logging.OrDiscard(cfg.Logger).WithFields(logrus.Fields{
		"stage":  "mel_to_stft",
		"n_mels": nMels,
		"n_fft":  cfg.NFFT,
		"frames": frames,
	})

	basis, err := MelBasis(nMels, m.DType, cfg)
	if err != nil {
		return nil, err
	}
	if rows, _ := basis.Dims(); rows != nMels {
		return nil, errors.Wrapf(ErrShapeMismatch, "mel basis has %d bands but spectrogram has %d", rows, nMels)
	}
	if empty := filters.EmptyChannels(basis); len(empty) > 0 {
		logger.WithField("channels", empty).Warn("empty mel filters; consider fewer mel bands or a larger fft size")
	}

	// x는 Solve가 새로 할당했으므로 지수 적용을 제자리에서 해도 다른 곳과 공유되지 않는다.
	x, err := nnls.Solve(basis, m.Dense, cfg.NNLS)
	if err != nil {
		return nil, errors.Wrap(err, "solve mel basis nnls failed")
	}
	logger.WithField("residual", nnls.Residual(basis, x, m.Dense)).Debug("mel basis inverted")

	if cfg.Power != 1 {
		exp := 1 / cfg.Power
		x.Apply(func(_, _ int, v float64) float64 {
			return math.Pow(v, exp)
		}, x)
	}
	return FromDense(x, m.DType), nil
}

// MelToAudio는 MelToSTFT로 크기 스펙트로그램을 구한 뒤 STFTToAudio로 신호를 만든다.
func MelToAudio(m *Matrix, cfg Config) ([]float64, error) {
	s, err := MelToSTFT(m, cfg)
	if err != nil {
		return nil, err
	}
	return STFTToAudio(s, cfg)
}

// STFTToAudio는 크기 스펙트로그램 s의 위상을 Griffin-Lim으로 추정해 신호를 만든다.
// s의 행 수는 NFFT/2+1이어야 한다. 출력 샘플 정밀도는 cfg.DType을 따른다.
func STFTToAudio(s *Matrix, cfg Config) ([]float64, error) {
	if cfg.NFFT <= 0 {
		return nil, errors.Wrapf(ErrInvalidParameter, "invalid fft size: %d", cfg.NFFT)
	}
	if !cfg.DType.valid() {
		return nil, errors.Wrapf(ErrInvalidParameter, "unsupported dtype: %d", cfg.DType)
	}
	if s.empty() {
		return nil, errors.Wrap(ErrInvalidParameter, "empty magnitude spectrogram")
	}
	bins, frames := s.Dims()
	if bins != cfg.NFFT/2+1 {
		return nil, errors.Wrapf(ErrShapeMismatch, "spectrogram has %d bins, want %d for n_fft=%d", bins, cfg.NFFT/2+1, cfg.NFFT)
	}

	logging.OrDiscard(cfg.Logger).WithFields(logrus.Fields{
		"stage":      "stft_to_audio",
		"n_fft":      cfg.NFFT,
		"frames":     frames,
		"iterations": cfg.NIter,
	}).Debug("reconstructing phase")

	return griffinlim.Reconstruct(s.Dense, cfg.griffinLimOptions())
}

// MelResidual은 ‖B·S^Power − M‖_F를 계산한다. 역변환 품질을 확인할 때 쓴다.
func MelResidual(m, s *Matrix, cfg Config) (float64, error) {
	if err := cfg.validateSpectral(); err != nil {
		return 0, err
	}
	if m.empty() || s.empty() {
		return 0, errors.Wrap(ErrInvalidParameter, "empty matrix")
	}
	nMels, frames := m.Dims()
	bins, sFrames := s.Dims()
	if frames != sFrames {
		return 0, errors.Wrapf(ErrShapeMismatch, "mel has %d frames but spectrogram has %d", frames, sFrames)
	}
	if bins != cfg.NFFT/2+1 {
		return 0, errors.Wrapf(ErrShapeMismatch, "spectrogram has %d bins, want %d for n_fft=%d", bins, cfg.NFFT/2+1, cfg.NFFT)
	}

	basis, err := MelBasis(nMels, Float64, cfg)
	if err != nil {
		return 0, err
	}
	var sp mat.Dense
	sp.Apply(func(_, _ int, v float64) float64 {
		return math.Pow(v, cfg.Power)
	}, s.Dense)
	return nnls.Residual(basis, &sp, m.Dense), nil
}

func checkNonNegative(m *mat.Dense) error {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(ErrInvalidParameter, "invalid mel power %v at band %d frame %d", v, i, j)
			}
		}
	}
	return nil
}
