package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mattn/go-isatty"
)

var levelColors = map[LogLevel]string{
	LogLevelError: "\033[31m",
	LogLevelWarn:  "\033[33m",
	LogLevelInfo:  "\033[32m",
	LogLevelDebug: "\033[90m",
}

const colorReset = "\033[0m"

// DefaultLogger writes one timestamped line per message. Level names are
// colored only while the output is a terminal.
type DefaultLogger struct {
	prefix string
	level  atomic.Int32

	mu    sync.Mutex
	out   io.Writer
	color bool
}

// NewDefaultLogger creates an info level logger writing to stdout
func NewDefaultLogger(prefix string) *DefaultLogger {
	l := &DefaultLogger{prefix: prefix}
	l.level.Store(int32(LogLevelInfo))
	l.SetOutput(os.Stdout)
	return l
}

func (l *DefaultLogger) SetLevel(level LogLevel) { l.level.Store(int32(level)) }

func (l *DefaultLogger) GetLevel() LogLevel { return LogLevel(l.level.Load()) }

func (l *DefaultLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	l.color = false
	if f, ok := w.(*os.File); ok {
		l.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
}

func (l *DefaultLogger) Debug(format string, args ...any) { l.write(LogLevelDebug, format, args) }
func (l *DefaultLogger) Info(format string, args ...any)  { l.write(LogLevelInfo, format, args) }
func (l *DefaultLogger) Warn(format string, args ...any)  { l.write(LogLevelWarn, format, args) }
func (l *DefaultLogger) Error(format string, args ...any) { l.write(LogLevelError, format, args) }

func (l *DefaultLogger) write(level LogLevel, format string, args []any) {
	if l.GetLevel() < level {
		return
	}

	name := level.String()
	line := time.Now().Format("15:04:05.000") + " "
	if l.prefix != "" {
		line += "[" + l.prefix + "] "
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.color {
		name = levelColors[level] + name + colorReset
	}
	fmt.Fprintf(l.out, "%s%s: %s\n", line, name, fmt.Sprintf(format, args...))
}
