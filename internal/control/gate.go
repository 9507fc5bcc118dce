package control

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"
)

// Gate computes the effective safety posture before any order dispatch.
// It is an explicit service object: construct once, inject everywhere that
// needs a gate check. State is never cached across calls: every check
// re-reads the persisted document so administrative changes and the
// kill-switch file take effect immediately.
type Gate struct {
	store          ports.ControlStore
	audit          ports.AuditStore
	logger         ports.Logger
	killSwitchPath string
}

// Config holds configuration for the control gate.
type Config struct {
	Store          ports.ControlStore
	Audit          ports.AuditStore
	Logger         ports.Logger
	KillSwitchPath string
}

// New creates a control gate. Store and Logger are required; Audit may be nil
// for tests (audit writes are best-effort anyway).
func New(cfg Config) (*Gate, error) {
	if cfg.Store == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for control gate")
	}
	if cfg.KillSwitchPath == "" {
		return nil, fmt.Errorf("kill-switch path is required")
	}
	return &Gate{
		store:          cfg.Store,
		audit:          cfg.Audit,
		logger:         cfg.Logger,
		killSwitchPath: cfg.KillSwitchPath,
	}, nil
}

// Load reads the persisted control state. A missing document yields the safe
// posture with no error; a corrupt one yields the safe posture and a wrapped
// ErrConfigurationError so callers can surface the problem without ever
// trading on it.
func (g *Gate) Load(ctx context.Context) (domain.ControlState, error) {
	state, err := g.store.Read(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			g.logger.Warn(ctx, "Control state missing, falling back to safe posture")
			return domain.SafeControlState(), nil
		}
		g.logger.Error(ctx, err, "Control state unreadable, falling back to safe posture")
		return domain.SafeControlState(), fmt.Errorf("%w: %v", ports.ErrConfigurationError, err)
	}
	return state, nil
}

// Validate returns human-readable problems with a control state. An empty
// slice means the state is coherent.
func (g *Gate) Validate(state domain.ControlState) []string {
	var problems []string
	if !state.TradingMode.Valid() {
		problems = append(problems, fmt.Sprintf("unknown trading_mode %q (expected paper or live)", state.TradingMode))
	}
	if state.LiveTradingEnabled() {
		if state.LiveTradingOverrideFile == "" {
			problems = append(problems, "live trading enabled but live_trading_override_file is not set")
		} else if _, err := os.Stat(state.LiveTradingOverrideFile); err != nil {
			problems = append(problems, fmt.Sprintf("live trading enabled but override file %q does not exist", state.LiveTradingOverrideFile))
		}
	}
	return problems
}

// KillSwitchEngaged reports whether the independent file-based kill switch is
// present. It is checked outside of the persisted state and always wins.
func (g *Gate) KillSwitchEngaged() bool {
	_, err := os.Stat(g.killSwitchPath)
	return err == nil
}

// Check returns a veto reason, or "" when order dispatch is permitted.
// Veto priority: kill switch, orders disabled, invalid state. The persisted
// document is read fresh on every call.
func (g *Gate) Check(ctx context.Context) (string, error) {
	if g.KillSwitchEngaged() {
		return fmt.Sprintf("kill switch engaged (%s present)", g.killSwitchPath), nil
	}

	state, err := g.Load(ctx)
	if err != nil {
		// Corrupt state: safe posture already applied, veto with the reason.
		return "control state unreadable, trading disabled", nil
	}
	if !state.OrdersEnabled {
		return "order placement disabled (orders_enabled=false)", nil
	}
	if problems := g.Validate(state); len(problems) > 0 {
		return fmt.Sprintf("control state invalid: %s", problems[0]), nil
	}
	return "", nil
}

// Update is the administrative write path. The new state is re-validated
// before persisting; an invalid state is rejected and nothing is written.
// Every successful write appends an audit record (best-effort).
func (g *Gate) Update(ctx context.Context, state domain.ControlState, reason string) error {
	if problems := g.Validate(state); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ports.ErrConfigurationError, problems[0])
	}
	if err := g.store.Write(ctx, state); err != nil {
		return fmt.Errorf("persisting control state: %w", err)
	}
	g.logger.Info(ctx, "Control state updated", map[string]interface{}{
		"tradingMode":   state.TradingMode,
		"ordersEnabled": state.OrdersEnabled,
		"dryRun":        state.DryRun,
		"reason":        reason,
	})
	g.appendAudit(ctx, domain.AuditEntry{
		Time:   time.Now().UTC(),
		Action: "control_state_update",
		Reason: reason,
		Metadata: map[string]interface{}{
			"trading_mode":   string(state.TradingMode),
			"orders_enabled": state.OrdersEnabled,
			"dry_run":        state.DryRun,
		},
	})
	return nil
}

// appendAudit writes an audit record without ever failing the caller.
func (g *Gate) appendAudit(ctx context.Context, entry domain.AuditEntry) {
	if g.audit == nil {
		return
	}
	if err := g.audit.Append(ctx, entry); err != nil {
		g.logger.Error(ctx, err, "Failed to append audit entry", map[string]interface{}{"action": entry.Action})
	}
}
