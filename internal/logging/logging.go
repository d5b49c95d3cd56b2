// Package logging wires github.com/sirupsen/logrus for the scheduler:
// a program-wide base entry plus a per-worker entry for multi-schedule
// runs, so concurrent workers' log lines stay distinguishable.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the process-wide logrus.Logger: text formatter, full
// timestamps, output to stderr.
func New(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	return l
}

// Base returns the program-wide entry, carrying program/version fields
// on every line.
func Base(l *logrus.Logger, program, version string) *logrus.Entry {
	return l.WithFields(logrus.Fields{"program": program, "version": version})
}

// ForWorker returns the per-worker entry a multi-schedule run threads
// through its Scheduler, carrying a "worker" field.
func ForWorker(l *logrus.Logger, worker int) *logrus.Entry {
	return l.WithField("worker", worker)
}

// DumpParameters logs the run's effective settings at info level, one
// structured field per setting.
func DumpParameters(entry *logrus.Entry, fields logrus.Fields) {
	entry.WithFields(fields).Info("settings")
}
