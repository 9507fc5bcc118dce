package ports

import (
	"context"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
)

// ControlStore persists the trading-control state. Reads must reflect the
// latest successful write; writes must be atomic so a concurrent gate check
// never observes a partially written document.
type ControlStore interface {
	// Read returns the persisted state. A missing document is reported via
	// ErrNotFound so the caller can fall back to the safe posture.
	Read(ctx context.Context) (domain.ControlState, error)

	// Write atomically replaces the persisted state.
	Write(ctx context.Context, state domain.ControlState) error
}

// AuditStore appends structured audit records. Appends are best-effort from
// the caller's point of view: a failed append is logged and never fails the
// trading operation it describes.
type AuditStore interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
}
