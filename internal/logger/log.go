package logger

import "testing"

// Log is the part of Logger that the pipeline packages depend on.
type Log interface {
	Info(format string, v ...interface{})
	Warning(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type testLogWriter struct {
	t testing.TB
}

func (w *testLogWriter) Write(p []byte) (n int, err error) {
	w.t.Log(string(p))
	return len(p), nil
}

// NewTestLogger routes all levels to t.Log.
func NewTestLogger(t testing.TB) *Logger {
	return NewWriterLogger(&testLogWriter{t: t})
}
