package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestForWorkerAddsWorkerField(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	entry := ForWorker(l, 3)
	entry.Info("hello")

	assert.Contains(t, buf.String(), `"worker":3`)
}

func TestDumpParametersLogsFields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	DumpParameters(l.WithField("worker", 0), logrus.Fields{"anchor": "start"})
	assert.Contains(t, buf.String(), `"anchor":"start"`)
}
