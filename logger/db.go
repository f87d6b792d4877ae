package logger

import (
	"fmt"
	"strings"
	"time"
)

// DBLogger adds query logging to a Logger. Queries are only formatted when
// the wrapped logger is at debug level.
type DBLogger struct {
	Logger
}

// NewDBLogger wraps l, falling back to the global logger when l is nil
func NewDBLogger(l Logger) *DBLogger {
	if l == nil {
		l = GetGlobalLogger()
	}
	return &DBLogger{Logger: l}
}

// LogSQL logs a statement, its bind arguments and how long it took
func (l *DBLogger) LogSQL(sql string, args []any, duration time.Duration) {
	if l.GetLevel() < LogLevelDebug {
		return
	}

	l.Debug("SQL (%v):\n%s", duration, strings.TrimSpace(sql))
	if len(args) > 0 {
		parts := make([]string, len(args))
		for i, arg := range args {
			parts[i] = fmt.Sprintf("%v", arg)
		}
		l.Debug("Args: [%s]", strings.Join(parts, ", "))
	}
}

// LogCommand logs a non-SQL command such as a MongoDB find
func (l *DBLogger) LogCommand(command string, duration time.Duration) {
	if l.GetLevel() >= LogLevelDebug {
		l.Debug("Command (%v):\n%s", duration, command)
	}
}
