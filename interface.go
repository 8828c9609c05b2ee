package hyperspy

import (
	"go.uber.org/zap/zapcore"

	"github.com/din14970/hyperspy/events"
)

// Observable interface defines stateful objects that expose an events container
type Observable interface {
	Events() *events.Events
}

// Logger is a simplified abstraction of the zap.Logger
type Logger interface {
	Info(msg string, fields ...zapcore.Field)
	Error(msg string, fields ...zapcore.Field)
	Fatal(msg string, fields ...zapcore.Field)
	With(fields ...zapcore.Field) Logger
}
