package logger

// Field is a structured key/value attached to a log entry.
type Field struct {
	Key   string
	Value any
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Err is shorthand for an "error" field.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}
