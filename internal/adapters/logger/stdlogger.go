package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

// LogLevel is the minimum severity a logger emits.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[LogLevel]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a LOG_LEVEL value onto a LogLevel. Unrecognized values fall
// back to Info rather than erroring, so a typo in the environment never
// silences the gateway.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// StdLogger is the plain-text Logger used for interactive runs and the
// controlctl CLI. Records are one line each:
//
//	LEVEL message | key=value key=value
//
// with keys sorted so gate decisions and order dispatches diff cleanly in
// captured output. All field maps in a call are merged; later maps win on
// key collisions.
type StdLogger struct {
	out   *log.Logger
	level LogLevel
}

// NewStdLogger writes to stderr with timestamps from the log package.
func NewStdLogger(level LogLevel) *StdLogger {
	return newStdLogger(os.Stderr, level, log.LstdFlags|log.Lmicroseconds)
}

// NewStdLoggerWithWriter writes timestamp-free records to w. Tests use this
// to assert on exact output.
func NewStdLoggerWithWriter(w io.Writer, level LogLevel) *StdLogger {
	return newStdLogger(w, level, 0)
}

func newStdLogger(w io.Writer, level LogLevel, flags int) *StdLogger {
	return &StdLogger{out: log.New(w, "", flags), level: level}
}

func (l *StdLogger) emit(level LogLevel, msg string, err error, fields []map[string]interface{}) {
	if level < l.level {
		return
	}

	merged := make(map[string]interface{})
	for _, m := range fields {
		for k, v := range m {
			merged[k] = v
		}
	}
	if err != nil {
		merged["error"] = err.Error()
	}

	var sb strings.Builder
	sb.WriteString(level.String())
	sb.WriteByte(' ')
	sb.WriteString(msg)
	if len(merged) > 0 {
		keys := make([]string, 0, len(merged))
		for k := range merged {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" |")
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, merged[k])
		}
	}
	l.out.Println(sb.String())
}

func (l *StdLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(LevelDebug, msg, nil, fields)
}

func (l *StdLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(LevelInfo, msg, nil, fields)
}

func (l *StdLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.emit(LevelWarn, msg, nil, fields)
}

func (l *StdLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.emit(LevelError, msg, err, fields)
}
