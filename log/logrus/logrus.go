// Package logrus adapts a *logrus.Entry to kvault.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/kvault"
)

var _ kvault.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps e; nil uses the logrus standard logger.
func New(e *logrus.Entry) Logger {
	if e == nil {
		e = logrus.NewEntry(logrus.StandardLogger())
	}
	return Logger{E: e}
}

func (l Logger) Debug(msg string, f kvault.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f kvault.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f kvault.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f kvault.Fields) { l.with(f).Error(msg) }

// with maps an error under "err" to logrus' own error key.
func (l Logger) with(f kvault.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	out := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			out[logrus.ErrorKey] = err
			continue
		}
		out[k] = v
	}
	return l.E.WithFields(out)
}
