package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdLoggerRecordFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerWithWriter(&buf, LevelDebug)

	l.Info(context.Background(), "Order set dispatched", map[string]interface{}{
		"symbol":  "AAPL",
		"orderID": 5001,
	})

	assert.Equal(t, "INFO Order set dispatched | orderID=5001 symbol=AAPL\n", buf.String(),
		"keys are sorted for stable output")
}

func TestStdLoggerLevelThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerWithWriter(&buf, LevelWarn)

	l.Debug(context.Background(), "noise")
	l.Info(context.Background(), "noise")
	l.Warn(context.Background(), "kept")

	assert.Equal(t, "WARN kept\n", buf.String())
}

func TestStdLoggerMergesFieldMaps(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerWithWriter(&buf, LevelDebug)

	l.Info(context.Background(), "msg",
		map[string]interface{}{"a": 1, "b": "first"},
		map[string]interface{}{"b": "second", "c": 3},
	)

	assert.Equal(t, "INFO msg | a=1 b=second c=3\n", buf.String(),
		"later maps win on key collisions")
}

func TestStdLoggerErrorField(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLoggerWithWriter(&buf, LevelDebug)

	l.Error(context.Background(), errors.New("venue down"), "Dispatch failed", map[string]interface{}{"orderID": 7})

	assert.Equal(t, "ERROR Dispatch failed | error=venue down orderID=7\n", buf.String())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		" warn ":  LevelWarn,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"verbose": LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}
