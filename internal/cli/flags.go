// Package cli는 mel2wav와 mfcc2wav가 공유하는 플래그를 inverse 설정으로 옮긴다.
package cli

import (
	"flag"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/zrma/go-melinv/dct"
	"github.com/zrma/go-melinv/filters"
	"github.com/zrma/go-melinv/griffinlim"
	"github.com/zrma/go-melinv/inverse"
	"github.com/zrma/go-melinv/wavio"
)

// Flags는 멜 역변환, 위상 복원, 출력 관련 플래그 값이다.
type Flags struct {
	SampleRate    float64
	NFFT          int
	HopLength     int
	WinLength     int
	Window        string
	DisableCenter bool
	PadMode       string
	Power         float64
	NIter         int
	Momentum      float64
	ZeroInit      bool
	Seed          int64
	DType         string
	Length        int

	FMin    float64
	FMax    float64
	HTK     bool
	MelNorm string

	Output    string
	Like      string
	BitDepth  int
	Normalize bool
	STFTOut   string
	PNGOut    string
	Verbose   bool
}

// Register는 fs에 공통 플래그를 등록한다. 기본값은 inverse.DefaultConfig를 따른다.
func Register(fs *flag.FlagSet) *Flags {
	def := inverse.DefaultConfig()
	f := &Flags{}

	fs.Float64Var(&f.SampleRate, "sr", def.SampleRate, "sample rate in Hz")
	fs.IntVar(&f.NFFT, "n-fft", def.NFFT, "fft size")
	fs.IntVar(&f.HopLength, "hop", 0, "hop length in samples (0 = n-fft/4)")
	fs.IntVar(&f.WinLength, "win", 0, "window length in samples (0 = n-fft)")
	fs.StringVar(&f.Window, "window", "hann", "window function: "+names(griffinlim.Windows))
	fs.BoolVar(&f.DisableCenter, "no-center", false, "frames are not centered on their sample index")
	fs.StringVar(&f.PadMode, "pad-mode", "reflect", "edge padding for centered frames: "+names(griffinlim.PadModes))
	fs.Float64Var(&f.Power, "power", def.Power, "exponent of the mel spectrogram (2 = power, 1 = energy)")
	fs.IntVar(&f.NIter, "n-iter", def.NIter, "griffin-lim iterations")
	fs.Float64Var(&f.Momentum, "momentum", def.Momentum, "fast griffin-lim momentum (0 = plain griffin-lim)")
	fs.BoolVar(&f.ZeroInit, "zero-phase", false, "start from zero phase instead of random phase")
	fs.Int64Var(&f.Seed, "seed", 0, "random phase seed")
	fs.StringVar(&f.DType, "dtype", def.DType.String(), "output sample precision: float32 or float64")
	fs.IntVar(&f.Length, "length", 0, "trim or zero-pad output to this many samples (0 = natural length)")

	fs.Float64Var(&f.FMin, "fmin", 0, "lowest mel filter frequency in Hz")
	fs.Float64Var(&f.FMax, "fmax", 0, "highest mel filter frequency in Hz (0 = sr/2)")
	fs.BoolVar(&f.HTK, "htk", false, "use the HTK mel scale instead of Slaney")
	fs.StringVar(&f.MelNorm, "mel-norm", "slaney", "mel filter normalization: slaney or none")

	fs.StringVar(&f.Output, "o", "", "output wav path (default: input path with .wav)")
	fs.StringVar(&f.Like, "like", "", "reference wav; its sample rate and length override -sr and -length")
	fs.IntVar(&f.BitDepth, "bits", 16, "output PCM bit depth: 8, 16, 24 or 32")
	fs.BoolVar(&f.Normalize, "normalize", false, "scale output to full range")
	fs.StringVar(&f.STFTOut, "stft", "", "also save the recovered magnitude spectrogram as .npy")
	fs.StringVar(&f.PNGOut, "png", "", "also save the recovered magnitude spectrogram as a png image")
	fs.BoolVar(&f.Verbose, "v", false, "debug logging")

	return f
}

// Config는 플래그 값을 inverse.Config로 옮긴다. 잘못된 값은 모두 모아서 보고한다.
func (f *Flags) Config(logger logrus.FieldLogger) (inverse.Config, error) {
	cfg := inverse.Config{
		SampleRate:    f.SampleRate,
		NFFT:          f.NFFT,
		HopLength:     f.HopLength,
		WinLength:     f.WinLength,
		DisableCenter: f.DisableCenter,
		Power:         f.Power,
		NIter:         f.NIter,
		Momentum:      f.Momentum,
		Seed:          f.Seed,
		Length:        f.Length,
		Mel: filters.Options{
			FMin: f.FMin,
			FMax: f.FMax,
			HTK:  f.HTK,
		},
		Logger: logger,
	}
	if f.ZeroInit {
		cfg.Init = griffinlim.InitZero
	}

	var err error
	if w, ok := griffinlim.Windows[strings.ToLower(f.Window)]; ok {
		cfg.Window = w
	} else {
		err = multierr.Append(err, errors.Wrapf(inverse.ErrInvalidParameter, "unknown window %q", f.Window))
	}
	if p, ok := griffinlim.PadModes[strings.ToLower(f.PadMode)]; ok {
		cfg.PadMode = p
	} else {
		err = multierr.Append(err, errors.Wrapf(inverse.ErrInvalidParameter, "unknown pad mode %q", f.PadMode))
	}
	switch strings.ToLower(f.DType) {
	case "float32", "f4":
		cfg.DType = inverse.Float32
	case "float64", "f8":
		cfg.DType = inverse.Float64
	default:
		err = multierr.Append(err, errors.Wrapf(inverse.ErrInvalidParameter, "unknown dtype %q", f.DType))
	}
	switch strings.ToLower(f.MelNorm) {
	case "slaney":
		cfg.Mel.Norm = filters.NormSlaney
	case "none", "":
		cfg.Mel.Norm = filters.NormNone
	default:
		err = multierr.Append(err, errors.Wrapf(inverse.ErrInvalidParameter, "unknown mel norm %q", f.MelNorm))
	}

	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyLike는 -like로 지정한 WAV 파일의 샘플레이트와 길이를 cfg에 반영한다.
func (f *Flags) ApplyLike(cfg *inverse.Config) error {
	if f.Like == "" {
		return nil
	}
	samples, sampleRate, err := wavio.ReadMono(f.Like)
	if err != nil {
		return errors.Wrapf(err, "read reference wav %s failed", f.Like)
	}
	cfg.SampleRate = float64(sampleRate)
	cfg.Length = len(samples)
	return nil
}

// OutputPath는 출력 WAV 경로를 정한다.
func (f *Flags) OutputPath(input string) string {
	if f.Output != "" {
		return f.Output
	}
	return strings.TrimSuffix(input, ".npy") + ".wav"
}

// WriteOptions는 WAV 인코딩 옵션을 만든다.
func (f *Flags) WriteOptions(software string) wavio.WriteOptions {
	return wavio.WriteOptions{
		BitDepth:  f.BitDepth,
		Normalize: f.Normalize,
		Software:  software,
	}
}

// CepstralFlags는 MFCC 역변환 플래그 값이다.
type CepstralFlags struct {
	NMels   int
	DCTType int
	Norm    string
	Ref     string
	MelOut  string
}

// RegisterCepstral은 fs에 MFCC 플래그를 등록한다.
func RegisterCepstral(fs *flag.FlagSet) *CepstralFlags {
	def := inverse.DefaultCepstralConfig()
	c := &CepstralFlags{}

	fs.IntVar(&c.NMels, "n-mels", def.NMels, "mel bands to reconstruct")
	fs.IntVar(&c.DCTType, "dct-type", int(def.DCTType), "dct type used by the forward transform: 1, 2 or 3")
	fs.StringVar(&c.Norm, "norm", "ortho", "dct normalization: ortho or none")
	fs.StringVar(&c.Ref, "ref", "1", `reference power: a positive number or "max"`)
	fs.StringVar(&c.MelOut, "mel", "", "also save the recovered mel power spectrogram as .npy")

	return c
}

// Config는 플래그 값을 inverse.CepstralConfig로 옮긴다.
func (c *CepstralFlags) Config(logger logrus.FieldLogger) (inverse.CepstralConfig, error) {
	cfg := inverse.CepstralConfig{
		NMels:   c.NMels,
		DCTType: dct.Type(c.DCTType),
		Logger:  logger,
	}

	var err error
	switch strings.ToLower(c.Norm) {
	case "ortho":
		cfg.Norm = dct.NormOrtho
	case "none", "":
		cfg.Norm = dct.NormNone
	default:
		err = multierr.Append(err, errors.Wrapf(inverse.ErrInvalidParameter, "unknown dct norm %q", c.Norm))
	}

	if strings.EqualFold(c.Ref, "max") {
		cfg.Ref = inverse.MaxRef()
	} else if v, perr := strconv.ParseFloat(c.Ref, 64); perr == nil && v > 0 {
		cfg.Ref = inverse.FixedRef(v)
	} else {
		err = multierr.Append(err, errors.Wrapf(inverse.ErrInvalidParameter, "invalid reference power %q", c.Ref))
	}

	if c.NMels <= 0 {
		err = multierr.Append(err, errors.Wrapf(inverse.ErrInvalidParameter, "invalid mel band count: %d", c.NMels))
	}
	switch cfg.DCTType {
	case dct.Type1, dct.Type2, dct.Type3:
	default:
		err = multierr.Append(err, errors.Wrapf(inverse.ErrInvalidParameter, "unsupported dct type: %d", c.DCTType))
	}
	if cfg.DCTType == dct.Type1 && cfg.Norm == dct.NormOrtho {
		err = multierr.Append(err, errors.Wrap(inverse.ErrInvalidParameter, "orthonormal dct is not supported for type 1"))
	}
	return cfg, err
}

func names[V any](m map[string]V) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}
