package main

import (
	"io"

	"github.com/sirupsen/logrus"
)

// messageFormatter writes only the message, so attempt failures read as
// plain "Data not good, skip" lines on stderr.
type messageFormatter struct{}

func (messageFormatter) Format(e *logrus.Entry) ([]byte, error) {
	return []byte(e.Message + "\n"), nil
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	if verbose {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
		return logger
	}
	logger.SetFormatter(messageFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return logger
}
