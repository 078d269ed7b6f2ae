package inverse

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zrma/go-melinv/dct"
	"github.com/zrma/go-melinv/internal/logging"
)

// MFCCToMel은 [계수 × 프레임] MFCC를 [NMels × 프레임] 멜 파워 스펙트로그램으로 되돌린다.
//
// 계수 축을 따라 역 DCT를 적용해 dB 단위 로그 멜을 구하고 ref · 10^(dB/10)으로 바꾼다.
// 결과의 정밀도는 mfcc를 따른다.
func MFCCToMel(mfcc *Matrix, cfg CepstralConfig) (*Matrix, error) {
	if mfcc.empty() {
		return nil, errors.Wrap(ErrInvalidParameter, "empty mfcc matrix")
	}
	if !mfcc.DType.valid() {
		return nil, errors.Wrapf(ErrInvalidParameter, "unsupported dtype: %d", mfcc.DType)
	}
	cfg, err := cfg.resolve()
	if err != nil {
		return nil, err
	}

	numCoefficients, frames := mfcc.Dims()
	logger := logging.OrDiscard(cfg.Logger).WithFields(logrus.Fields{
		"stage":  "mfcc_to_mel",
		"n_mfcc": numCoefficients,
		"n_mels": cfg.NMels,
		"frames": frames,
	})
	if cfg.NMels > numCoefficients {
		logger.Debug("zero-extending cepstral coefficients")
	} else if cfg.NMels < numCoefficients {
		logger.Debug("truncating cepstral coefficients")
	}

	logMel, err := dct.Inverse(mfcc.Dense, cfg.DCTType, cfg.Norm, cfg.NMels)
	if err != nil {
		return nil, errors.Wrap(err, "inverse dct failed")
	}
	if mfcc.DType == Float32 {
		roundFloat32(logMel)
	}

	power, err := DBToPower(logMel, cfg.Ref)
	if err != nil {
		return nil, err
	}
	return FromDense(power, mfcc.DType), nil
}

// MFCCToAudio는 MFCCToMel과 MelToAudio를 차례로 호출한다.
func MFCCToAudio(mfcc *Matrix, ccfg CepstralConfig, cfg Config) ([]float64, error) {
	mel, err := MFCCToMel(mfcc, ccfg)
	if err != nil {
		return nil, err
	}
	return MelToAudio(mel, cfg)
}
