package domain

// TradingMode selects which account class orders are routed to.
type TradingMode string

const (
	ModePaper TradingMode = "paper"
	ModeLive  TradingMode = "live"
)

// Valid reports whether the mode is one of the known values.
func (m TradingMode) Valid() bool {
	return m == ModePaper || m == ModeLive
}

// ControlState is the persisted trading-control posture. It is read fresh on
// every gate check so administrative changes take effect without a restart.
type ControlState struct {
	TradingMode             TradingMode `json:"trading_mode"`
	OrdersEnabled           bool        `json:"orders_enabled"`
	DryRun                  bool        `json:"dry_run"`
	LiveTradingOverrideFile string      `json:"live_trading_override_file,omitempty"`
}

// SafeControlState returns the safest possible posture: paper account, order
// placement disabled, dry-run forced on. Used whenever persisted state is
// missing or cannot be parsed.
func SafeControlState() ControlState {
	return ControlState{
		TradingMode:   ModePaper,
		OrdersEnabled: false,
		DryRun:        true,
	}
}

// LiveTradingEnabled reports whether the state requests real-money routing.
func (s ControlState) LiveTradingEnabled() bool {
	return s.TradingMode == ModeLive && s.OrdersEnabled
}

// EffectiveDryRun is false only when live trading is fully enabled; any other
// posture keeps the configured dry-run flag in force.
func (s ControlState) EffectiveDryRun() bool {
	if s.LiveTradingEnabled() {
		return false
	}
	return s.DryRun
}
