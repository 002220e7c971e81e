package consent

// LogEvent describes one diagnostic emitted while resolving configuration or
// driving the consent lifecycle. Fields carries structured context such as the
// route expression or the storage key involved.
type LogEvent struct {
	Level   string
	Message string
	Fields  map[string]any
}

// Logger records engine diagnostics. Implementations must be safe for
// concurrent use.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

const (
	levelDebug = "debug"
	levelWarn  = "warn"
	levelError = "error"
)

func logDebug(log Logger, msg string, fields map[string]any) {
	logAt(log, levelDebug, msg, fields)
}

func logWarn(log Logger, msg string, fields map[string]any) {
	logAt(log, levelWarn, msg, fields)
}

func logError(log Logger, msg string, fields map[string]any) {
	logAt(log, levelError, msg, fields)
}

func logAt(log Logger, level, msg string, fields map[string]any) {
	if log == nil {
		return
	}
	log.Log(LogEvent{Level: level, Message: msg, Fields: fields})
}
