package strategy

import (
	"io/ioutil"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithError(err error) *logrus.Entry
	WithField(key string, value interface{}) *logrus.Entry
}

func ensureLogger(logger Logger) Logger {
	if logger != nil {
		return logger
	}

	discard := logrus.New()
	discard.SetOutput(ioutil.Discard)

	return discard
}
