package consent

import "go.uber.org/zap"

// ZapLogger adapts a zap logger to the Logger interface.
type ZapLogger struct {
	log *zap.Logger
}

// NewZapLogger wraps log; a nil logger yields a no-op adapter.
func NewZapLogger(log *zap.Logger) *ZapLogger {
	return &ZapLogger{log: log}
}

// Log implements Logger.
func (z *ZapLogger) Log(event LogEvent) {
	if z == nil || z.log == nil {
		return
	}
	fields := make([]zap.Field, 0, len(event.Fields))
	for key, value := range event.Fields {
		fields = append(fields, zap.Any(key, value))
	}
	switch event.Level {
	case levelDebug:
		z.log.Debug(event.Message, fields...)
	case levelWarn:
		z.log.Warn(event.Message, fields...)
	case levelError:
		z.log.Error(event.Message, fields...)
	default:
		z.log.Info(event.Message, fields...)
	}
}
