package logger

import (
	"io"
	"sync/atomic"
)

// Discard is the logger in effect until SetGlobalLogger installs another.
// It reports LogLevelNone, so DBLogger skips formatting queries entirely.
var Discard Logger = discard{}

type discard struct{}

func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
func (discard) SetLevel(LogLevel)    {}
func (discard) GetLevel() LogLevel   { return LogLevelNone }
func (discard) SetOutput(io.Writer)  {}

type box struct{ Logger }

var global atomic.Pointer[box]

// SetGlobalLogger replaces the process-wide logger; nil restores Discard.
// Loaders and drivers created without an explicit logger pick it up.
func SetGlobalLogger(l Logger) {
	if l == nil {
		l = Discard
	}
	global.Store(&box{l})
}

func GetGlobalLogger() Logger {
	if b := global.Load(); b != nil {
		return b.Logger
	}
	return Discard
}

func Debug(format string, args ...any) { GetGlobalLogger().Debug(format, args...) }
func Info(format string, args ...any)  { GetGlobalLogger().Info(format, args...) }
func Warn(format string, args ...any)  { GetGlobalLogger().Warn(format, args...) }
func Error(format string, args ...any) { GetGlobalLogger().Error(format, args...) }
