// Package logging wires the structured logger shared by every component,
// the same logrus entry-per-component idiom the teacher's health logger
// and compliance engine use.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger from the debug level (0-3, mapping to
// error/warn/info/debug) and an optional file sink. When file is empty the
// logger writes text-formatted lines to stderr; otherwise it appends
// JSON-formatted lines to the given path, matching the teacher's
// NewHealthLogger file-sink behaviour.
func New(debugLevel int, file string) (*logrus.Logger, error) {
	lg := logrus.New()
	lg.SetLevel(levelFor(debugLevel))

	if file == "" {
		lg.SetOutput(os.Stderr)
		lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return lg, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	lg.SetOutput(f)
	lg.SetFormatter(&logrus.JSONFormatter{})
	return lg, nil
}

func levelFor(debug int) logrus.Level {
	switch debug {
	case 0:
		return logrus.ErrorLevel
	case 1:
		return logrus.WarnLevel
	case 2:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

// Component returns a *logrus.Entry pre-seeded with a "component" field, so
// call sites never repeat WithField("component", ...) themselves.
func Component(lg *logrus.Logger, name string) *logrus.Entry {
	return lg.WithField("component", name)
}
