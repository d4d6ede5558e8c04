// Package buildlog is a thin wrapper over logrus giving the rest of the
// tree a small, stable logging surface (Debugf/Infof/Warningf/Errorf)
// without threading a logger instance through every function call —
// the same shape apptainer's own sylog package is used for throughout
// internal/pkg/build, backed here by the teacher's actual logging
// dependency since sylog's source wasn't part of the retrieved pack.
package buildlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return l
}

// SetLevel adjusts the minimum logged severity.
func SetLevel(level logrus.Level) {
	logger.SetLevel(level)
}

func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

func Warningf(format string, args ...any) {
	logger.Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}
