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
)

const software = "mel2wav"

func main() {
	fs := flag.NewFlagSet(software, flag.ExitOnError)
	f := cli.Register(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [flags] <mel.npy>\n", software)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	logger := logging.New(f.Verbose)
	input := fs.Arg(0)
	if err := run(input, f, logger); err != nil {
		logger.WithError(err).WithField("input", input).Error("mel to wav conversion failed")
		os.Exit(1)
	}
}

func run(input string, f *cli.Flags, logger logrus.FieldLogger) error {
	cfg, err := f.Config(logger)
	if err != nil {
		return err
	}
	if err := f.ApplyLike(&cfg); err != nil {
		return err
	}

	m, err := featio.Read(input)
	if err != nil {
		return errors.Wrapf(err, "read mel spectrogram %s failed", input)
	}
	rows, cols := m.Dims()
	logger.WithFields(logrus.Fields{"n_mels": rows, "frames": cols, "dtype": m.DType}).Debug("mel spectrogram loaded")

	return f.Synthesize(m, cfg, f.OutputPath(input), software, logger)
}
