// Package logging은 패키지 사이에서 공유하는 logrus 설정 도우미다.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}()

// OrDiscard는 l이 nil이면 아무것도 출력하지 않는 로거를 돌려준다.
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return discard
	}
	return l
}

// New는 CLI용 stderr 로거를 만든다. verbose면 Debug 레벨까지 출력한다.
func New(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}
