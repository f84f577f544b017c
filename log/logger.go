package log

import (
	hlog "github.com/haxii/log/v2"
)

// Logger used by the engine, the consumers and the result pools to report
// debug info and swallowed errors
type Logger interface {
	Debugf(format string, v ...interface{})
	Errorf(err error, format string, v ...interface{})
}

// DefaultLogger default logger based on haxii's global logger
type DefaultLogger struct {
	// Name prefixed to every message, e.g. "engine" or "pool"
	Name string
}

// Debugf log debug info
func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	hlog.Debugf(l.prefix()+format, v...)
}

// Errorf log error
func (l *DefaultLogger) Errorf(err error, format string, v ...interface{}) {
	hlog.Errorf(err, l.prefix()+format, v...)
}

func (l *DefaultLogger) prefix() string {
	if len(l.Name) == 0 {
		return ""
	}
	return "[" + l.Name + "] "
}

// NopLogger drops everything
type NopLogger struct{}

// Debugf ...
func (NopLogger) Debugf(string, ...interface{}) {}

// Errorf ...
func (NopLogger) Errorf(error, string, ...interface{}) {}

// Named returns a DefaultLogger with the given name
func Named(name string) Logger {
	return &DefaultLogger{Name: name}
}

// OrDefault returns l, or a named default logger if l is nil
func OrDefault(l Logger, name string) Logger {
	if l == nil {
		return Named(name)
	}
	return l
}

// errorsOnly drops debug output
type errorsOnly struct {
	Logger
}

func (errorsOnly) Debugf(string, ...interface{}) {}

// ForLevel returns a named logger for level: "debug" logs everything,
// "none" nothing, anything else errors only
func ForLevel(name, level string) Logger {
	switch level {
	case "debug":
		return Named(name)
	case "none":
		return NopLogger{}
	}
	return errorsOnly{Named(name)}
}
