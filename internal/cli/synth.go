package cli

import (
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zrma/go-melinv/featio"
	"github.com/zrma/go-melinv/internal/logging"
	"github.com/zrma/go-melinv/inverse"
	"github.com/zrma/go-melinv/wavio"
)

// Synthesize는 멜 파워 스펙트로그램 m을 WAV 파일 output으로 합성한다.
// -stft, -png 플래그가 있으면 복원한 크기 스펙트로그램도 저장한다.
func (f *Flags) Synthesize(m *inverse.Matrix, cfg inverse.Config, output, software string, logger logrus.FieldLogger) error {
	logger = logging.OrDiscard(logger)

	s, err := inverse.MelToSTFT(m, cfg)
	if err != nil {
		return err
	}
	if residual, err := inverse.MelResidual(m, s, cfg); err == nil {
		logger.WithField("residual", residual).Info("mel spectrogram inverted")
	}
	if err := f.saveSpectrogram(s); err != nil {
		return err
	}

	y, err := inverse.STFTToAudio(s, cfg)
	if err != nil {
		return err
	}
	if err := wavio.Write(output, y, int(math.Round(cfg.SampleRate)), f.WriteOptions(software)); err != nil {
		return errors.Wrapf(err, "write %s failed", output)
	}
	logger.WithFields(logrus.Fields{"output": output, "samples": len(y)}).Info("wav written")
	return nil
}

func (f *Flags) saveSpectrogram(s *inverse.Matrix) error {
	if f.STFTOut != "" {
		if err := featio.Write(f.STFTOut, s, featio.KindOf(s.DType)); err != nil {
			return errors.Wrapf(err, "write %s failed", f.STFTOut)
		}
	}
	if f.PNGOut != "" {
		if err := featio.WritePNG(f.PNGOut, s, featio.ImageOptions{DB: true, YReverse: true}); err != nil {
			return errors.Wrapf(err, "write %s failed", f.PNGOut)
		}
	}
	return nil
}
