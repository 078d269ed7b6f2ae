package inverse

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/zrma/go-melinv/dct"
	"github.com/zrma/go-melinv/filters"
	"github.com/zrma/go-melinv/griffinlim"
	"github.com/zrma/go-melinv/nnls"
)

const (
	defaultSampleRate = 22_050
	defaultNFFT       = 2_048
	defaultHopLength  = 512
	defaultPower      = 2.0
	defaultNIter      = 32
	defaultMomentum   = 0.99

	defaultNumMels = 128
)

// Config는 멜 역변환과 위상 복원 설정이다.
//
// HopLength, WinLength, Window, PadMode의 0 값은 각각 NFFT/4, NFFT, Hann, reflect로 채워진다.
// SampleRate, NFFT, Power, NIter, Momentum은 그대로 사용되므로 DefaultConfig에서 시작한다.
type Config struct {
	SampleRate    float64
	NFFT          int
	HopLength     int
	WinLength     int
	Window        griffinlim.WindowFunc
	DisableCenter bool
	PadMode       griffinlim.PadMode

	// Power는 멜 스펙트로그램의 지수다. 2는 파워, 1은 에너지(크기)다.
	Power float64

	NIter    int
	Momentum float64
	Init     griffinlim.Init
	Seed     int64

	// DType은 출력 신호의 정밀도다. 크기 스펙트로그램의 정밀도는 입력을 따른다.
	DType DType
	// Length가 0보다 크면 출력 신호를 그 길이로 자르거나 0으로 채운다.
	Length int

	Mel  filters.Options
	NNLS nnls.Options

	Logger logrus.FieldLogger
}

// DefaultConfig는 22.05kHz 음성/음악용 기본 설정을 반환한다.
func DefaultConfig() Config {
	return Config{
		SampleRate: defaultSampleRate,
		NFFT:       defaultNFFT,
		HopLength:  defaultHopLength,
		Power:      defaultPower,
		NIter:      defaultNIter,
		Momentum:   defaultMomentum,
		DType:      Float32,
	}
}

// Validate는 잘못된 필드를 모두 찾아 하나의 오류로 합쳐 반환한다.
// 반환된 오류는 errors.Is(err, ErrInvalidParameter)를 만족한다.
func (c Config) Validate() error {
	err := c.validateSpectral()
	if c.HopLength < 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "invalid hop length: %d", c.HopLength))
	}
	if c.WinLength < 0 || c.WinLength > c.NFFT {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "invalid window length: %d (n_fft=%d)", c.WinLength, c.NFFT))
	}
	if c.NIter <= 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "invalid iteration count: %d", c.NIter))
	}
	if c.Momentum < 0 || math.IsNaN(c.Momentum) || math.IsInf(c.Momentum, 0) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "invalid momentum: %v", c.Momentum))
	}
	if c.Length < 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "invalid output length: %d", c.Length))
	}
	if !c.DType.valid() {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "unsupported dtype: %d", c.DType))
	}
	return err
}

// validateSpectral은 멜 역변환 단계가 직접 쓰는 필드만 검사한다.
// 나머지는 griffinlim이 검사하고 그 오류를 그대로 전달한다.
func (c Config) validateSpectral() error {
	var err error
	if !(c.SampleRate > 0) || math.IsInf(c.SampleRate, 0) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "invalid sample rate: %v", c.SampleRate))
	}
	if c.NFFT <= 0 {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "invalid fft size: %d", c.NFFT))
	}
	if !(c.Power > 0) || math.IsInf(c.Power, 0) {
		err = multierr.Append(err, errors.Wrapf(ErrInvalidParameter, "invalid power: %v", c.Power))
	}
	return err
}

func (c Config) hopLength() int {
	if c.HopLength == 0 {
		return max(1, c.NFFT/4)
	}
	return c.HopLength
}

func (c Config) griffinLimOptions() griffinlim.Options {
	return griffinlim.Options{
		NFFT:            c.NFFT,
		HopLength:       c.hopLength(),
		WinLength:       c.WinLength,
		Window:          c.Window,
		DisableCenter:   c.DisableCenter,
		PadMode:         c.PadMode,
		NIter:           c.NIter,
		Momentum:        c.Momentum,
		Init:            c.Init,
		Seed:            c.Seed,
		Length:          c.Length,
		SinglePrecision: c.DType == Float32,
		Logger:          c.Logger,
	}
}

// CepstralConfig는 MFCC를 멜 파워로 되돌리는 설정이다.
//
// NMels와 DCTType의 0 값은 128과 dct.Type2로, Ref의 0 값은 FixedRef(1)로 채워진다.
// Norm은 그대로 사용한다(0 값은 dct.NormNone).
//
// NMels가 계수 개수보다 크면 없는 고차 계수를 0으로 보고, 작으면 고차 계수를 버린다.
// 어느 쪽이든 원래 멜 스펙트럼의 세부는 복원되지 않는다.
type CepstralConfig struct {
	NMels   int
	DCTType dct.Type
	Norm    dct.Norm
	Ref     Ref

	Logger logrus.FieldLogger
}

// DefaultCepstralConfig는 128 밴드, type 2 orthonormal DCT, 기준 파워 1을 반환한다.
func DefaultCepstralConfig() CepstralConfig {
	return CepstralConfig{
		NMels:   defaultNumMels,
		DCTType: dct.Type2,
		Norm:    dct.NormOrtho,
		Ref:     FixedRef(1),
	}
}

func (c CepstralConfig) resolve() (CepstralConfig, error) {
	if c.NMels == 0 {
		c.NMels = defaultNumMels
	}
	if c.NMels < 0 {
		return c, errors.Wrapf(ErrInvalidParameter, "invalid mel band count: %d", c.NMels)
	}
	if c.DCTType == 0 {
		c.DCTType = dct.Type2
	}
	return c, nil
}
