package dcgan_go

import (
	"github.com/sirupsen/logrus"
)

var logger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return l
}

// SetLogger Replaces logger used during graph construction. Nil restores the default one.
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = newDefaultLogger()
	}
	logger = l
}

// Logger Returns logger used during graph construction
func Logger() *logrus.Logger {
	return logger
}
