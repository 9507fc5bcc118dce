package ports

import "context"

// Logger is the gateway's logging contract. Every service gets one injected;
// the adapters package provides a plain-text implementation for interactive
// use and a zap-backed one for structured JSON output.
//
// Fields are passed as maps so call sites can attach order ids, gate vetoes
// and venue symbols without committing to a concrete logging library. All
// maps in a call are merged into one record.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error attaches err as the record's error field.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
