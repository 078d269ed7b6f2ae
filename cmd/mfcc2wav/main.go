package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zrma/go-melinv/featio"
	"github.com/zrma/go-melinv/internal/cli"
	"github.com/zrma/go-melinv/internal/logging"
	"github.com/zrma/go-melinv/inverse"
)

const software = "mfcc2wav"

func main() {
	fs := flag.NewFlagSet(software, flag.ExitOnError)
	f := cli.Register(fs)
	c := cli.RegisterCepstral(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <mfcc.npy>\n", software)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	logger := logging.New(f.Verbose)
	input := fs.Arg(0)
	if err := run(input, f, c, logger); err != nil {
		logger.WithError(err).WithField("input", input).Error("mfcc to wav conversion failed")
		os.Exit(1)
	}
}

func run(input string, f *cli.Flags, c *cli.CepstralFlags, logger logrus.FieldLogger) error {
	cfg, err := f.Config(logger)
	if err != nil {
		return err
	}
	if err := f.ApplyLike(&cfg); err != nil {
		return err
	}
	ccfg, err := c.Config(logger)
	if err != nil {
		return err
	}

	mfcc, err := featio.Read(input)
	if err != nil {
		return errors.Wrapf(err, "read mfcc %s failed", input)
	}
	rows, cols := mfcc.Dims()
	logger.WithFields(logrus.Fields{"n_mfcc": rows, "frames": cols, "dtype": mfcc.DType}).Debug("mfcc loaded")

	// -mel 출력에 중간 멜 스펙트로그램이 필요해 inverse.MFCCToAudio 대신 두 단계로 나눈다.
	m, err := inverse.MFCCToMel(mfcc, ccfg)
	if err != nil {
		return err
	}
	if c.MelOut != "" {
		if err := featio.Write(c.MelOut, m, featio.KindOf(m.DType)); err != nil {
			return errors.Wrapf(err, "write %s failed", c.MelOut)
		}
	}

	return f.Synthesize(m, cfg, f.OutputPath(input), software, logger)
}
