package testutils

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewTestLogger returns a logger that keeps test output clean.
func NewTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	return logger
}
