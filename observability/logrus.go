package observability

import "github.com/sirupsen/logrus"

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger adapts a logrus logger to the Logger interface. It is the
// backend used by the CLI; library code defaults to NopLogger.
func NewLogrusLogger(l *logrus.Logger) Logger {
	return logrusLogger{entry: logrus.NewEntry(l)}
}

func (l logrusLogger) Debug(msg string, fields ...Field) { l.entry.WithFields(toLogrus(fields)).Debug(msg) }
func (l logrusLogger) Info(msg string, fields ...Field)  { l.entry.WithFields(toLogrus(fields)).Info(msg) }
func (l logrusLogger) Warn(msg string, fields ...Field)  { l.entry.WithFields(toLogrus(fields)).Warn(msg) }
func (l logrusLogger) Error(msg string, fields ...Field) { l.entry.WithFields(toLogrus(fields)).Error(msg) }

func (l logrusLogger) With(fields ...Field) Logger {
	return logrusLogger{entry: l.entry.WithFields(toLogrus(fields))}
}

func toLogrus(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key()] = f.Value()
	}
	return out
}
