// Package logging adapts logrus to the telegraf.Logger contract
// (spec.md §6 "Logger: leveled logging with format-string semantics"),
// the way the teacher's own plugins log through s.Log.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Entry to satisfy telegraf.Logger.
type Logger struct {
	entry *logrus.Entry
}

// New returns a Logger that writes through the standard logrus logger,
// tagged with the given field set (typically {"plugin": "statsd",
// "node": <node name>}).
func New(fields logrus.Fields) *Logger {
	return &Logger{entry: logrus.WithFields(fields)}
}

func (l *Logger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// AddError logs a non-nil err at error level; errors are not collected
// anywhere else.
func (l *Logger) AddError(err error) {
	if err != nil {
		l.entry.Error(err)
	}
}
