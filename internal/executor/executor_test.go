package executor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/adapters/controlstore"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/control"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/orders"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/resolver"
)

// The executor and the sim router are interchangeable behind this contract.
var _ ports.OrderRouter = (*Executor)(nil)

// Mock implementations

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockAudit struct {
	entries []domain.AuditEntry
}

func (m *mockAudit) Append(ctx context.Context, entry domain.AuditEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

type mockSession struct {
	connected  bool
	candidates []domain.ResolvedContract

	placedLegs []domain.OrderLeg
	nextID     int64
	failAtLeg  int // 1-based index of the leg whose placement fails; 0 = never
	placeErr   error

	cancelErr error
	state     domain.OrderState
	stateErr  error
	quote     domain.Quote
	account   domain.AccountSummary
}

func (m *mockSession) IsConnected() bool { return m.connected }

func (m *mockSession) QualifyContract(ctx context.Context, spec domain.SymbolSpec) ([]domain.ResolvedContract, error) {
	return m.candidates, nil
}

func (m *mockSession) ContractDetails(ctx context.Context, spec domain.SymbolSpec) ([]domain.ContractDetails, error) {
	return nil, nil
}

func (m *mockSession) PlaceOrder(ctx context.Context, contract domain.ResolvedContract, leg domain.OrderLeg) (int64, error) {
	if m.failAtLeg > 0 && len(m.placedLegs)+1 == m.failAtLeg {
		return 0, m.placeErr
	}
	m.placedLegs = append(m.placedLegs, leg)
	m.nextID++
	return m.nextID, nil
}

func (m *mockSession) CancelOrder(ctx context.Context, orderID int64) error { return m.cancelErr }

func (m *mockSession) OrderState(ctx context.Context, orderID int64) (domain.OrderState, error) {
	return m.state, m.stateErr
}

func (m *mockSession) Quote(ctx context.Context, contract domain.ResolvedContract) (domain.Quote, error) {
	return m.quote, nil
}

func (m *mockSession) AccountSummary(ctx context.Context) (domain.AccountSummary, error) {
	return m.account, nil
}

// test fixture

type fixture struct {
	executor *Executor
	session  *mockSession
	gate     *control.Gate
	store    *controlstore.FileStore
	audit    *mockAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := controlstore.New(controlstore.Config{
		Path:   filepath.Join(dir, "control.json"),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	audit := &mockAudit{}
	gate, err := control.New(control.Config{
		Store:          store,
		Audit:          audit,
		Logger:         &mockLogger{},
		KillSwitchPath: filepath.Join(dir, "KILL_SWITCH"),
	})
	require.NoError(t, err)

	session := &mockSession{
		connected: true,
		nextID:    5000,
		candidates: []domain.ResolvedContract{
			{ConID: 265598, Symbol: "AAPL", SecurityType: domain.SecStock, Exchange: "SMART", Currency: "USD"},
		},
		quote:   domain.Quote{Bid: 189.9, Ask: 190.1},
		account: domain.AccountSummary{NetLiquidation: 1_000_000},
	}

	res, err := resolver.New(resolver.Config{Session: session, Logger: &mockLogger{}})
	require.NoError(t, err)

	exec, err := New(Config{
		Gate:     gate,
		Resolver: res,
		Builder:  orders.NewBuilder(),
		Session:  session,
		Audit:    audit,
		Logger:   &mockLogger{},
	})
	require.NoError(t, err)

	return &fixture{executor: exec, session: session, gate: gate, store: store, audit: audit}
}

func (f *fixture) enableTrading(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.Write(context.Background(), domain.ControlState{
		TradingMode:   domain.ModePaper,
		OrdersEnabled: true,
		DryRun:        false,
	}))
}

func marketSpec() domain.OrderSpec {
	return domain.OrderSpec{
		Instrument: domain.SymbolSpec{Symbol: "AAPL", SecurityType: domain.SecStock},
		Side:       domain.Buy,
		Quantity:   100,
		OrderType:  domain.Market,
	}
}

func bracketSpec() domain.OrderSpec {
	spec := marketSpec()
	spec.OrderType = domain.Bracket
	spec.TakeProfitPrice = 210
	spec.StopLossPrice = 175
	return spec
}

func TestPlaceOrderGateVeto(t *testing.T) {
	f := newFixture(t)
	// Default posture: no control state on disk, safest defaults apply.

	result, err := f.executor.PlaceOrder(context.Background(), marketSpec())

	require.NoError(t, err)
	assert.Equal(t, domain.ResultSimulated, result.Status)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "disabled")
	assert.Empty(t, f.session.placedLegs, "a vetoed order must never reach the venue")

	// The veto is auditable under the trading-disabled error class.
	require.NotEmpty(t, f.audit.entries)
	last := f.audit.entries[len(f.audit.entries)-1]
	assert.Equal(t, "place_order", last.Action)
	assert.Contains(t, last.Reason, ports.ErrTradingDisabled.Error())
}

func TestPlaceOrderDryRunSimulates(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Write(context.Background(), domain.ControlState{
		TradingMode:   domain.ModePaper,
		OrdersEnabled: true,
		DryRun:        true,
	}))

	result, err := f.executor.PlaceOrder(context.Background(), marketSpec())

	require.NoError(t, err)
	assert.Equal(t, domain.ResultSimulated, result.Status)
	assert.Empty(t, f.session.placedLegs)
}

func TestPlaceOrderValidationRejects(t *testing.T) {
	f := newFixture(t)
	f.enableTrading(t)
	spec := marketSpec()
	spec.Quantity = -1

	result, err := f.executor.PlaceOrder(context.Background(), spec)

	require.NoError(t, err)
	assert.Equal(t, domain.ResultRejected, result.Status)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, f.session.placedLegs, "invalid specs never reach the venue")
}

func TestPlaceOrderSingleLeg(t *testing.T) {
	f := newFixture(t)
	f.enableTrading(t)

	result, err := f.executor.PlaceOrder(context.Background(), marketSpec())

	require.NoError(t, err)
	assert.Equal(t, domain.ResultAccepted, result.Status)
	assert.Equal(t, int64(5001), result.OrderID)
	assert.Equal(t, []int64{5001}, result.OrderIDs)
	assert.Equal(t, int64(5001), result.OrderRoles[domain.RoleEntry])
	require.Len(t, f.session.placedLegs, 1)
}

func TestPlaceOrderBracketDispatchOrder(t *testing.T) {
	f := newFixture(t)
	f.enableTrading(t)

	result, err := f.executor.PlaceOrder(context.Background(), bracketSpec())

	require.NoError(t, err)
	assert.Equal(t, domain.ResultAccepted, result.Status)
	require.Len(t, f.session.placedLegs, 3)

	// Legs arrive in builder order with the activating leg last.
	assert.Equal(t, domain.RoleEntry, f.session.placedLegs[0].Role)
	assert.Equal(t, domain.RoleTakeProfit, f.session.placedLegs[1].Role)
	assert.Equal(t, domain.RoleStopLoss, f.session.placedLegs[2].Role)
	assert.False(t, f.session.placedLegs[0].Transmit)
	assert.False(t, f.session.placedLegs[1].Transmit)
	assert.True(t, f.session.placedLegs[2].Transmit)

	// The entry leg id is the primary id; every role is recorded.
	assert.Equal(t, result.OrderRoles[domain.RoleEntry], result.OrderID)
	assert.Len(t, result.OrderIDs, 3)
	assert.Len(t, result.OrderRoles, 3)
}

func TestPlaceOrderLegRejectionFailsWhole(t *testing.T) {
	f := newFixture(t)
	f.enableTrading(t)
	f.session.failAtLeg = 3
	f.session.placeErr = ports.ErrOrderPlacementFailed

	result, err := f.executor.PlaceOrder(context.Background(), bracketSpec())

	require.NoError(t, err)
	assert.Equal(t, domain.ResultRejected, result.Status)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "stop_loss")

	// Earlier accepted legs stay visible for the caller to clean up.
	assert.Len(t, result.OrderIDs, 2)
	assert.Contains(t, result.OrderRoles, domain.RoleEntry)
	assert.Contains(t, result.OrderRoles, domain.RoleTakeProfit)
}

func TestPlaceOrderAuditsOutcome(t *testing.T) {
	f := newFixture(t)
	f.enableTrading(t)

	_, err := f.executor.PlaceOrder(context.Background(), marketSpec())

	require.NoError(t, err)
	require.NotEmpty(t, f.audit.entries)
	last := f.audit.entries[len(f.audit.entries)-1]
	assert.Equal(t, "place_order", last.Action)
	assert.Equal(t, "accepted", last.Reason)
}

func TestPreviewOrderNeverDispatches(t *testing.T) {
	f := newFixture(t)
	// Gate closed: previews must still work, they are non-committing.

	preview, err := f.executor.PreviewOrder(context.Background(), bracketSpec())

	require.NoError(t, err)
	assert.InDelta(t, 190.0, preview.EstimatedPrice, 1e-9)
	require.Len(t, preview.Legs, 3)
	assert.Empty(t, f.session.placedLegs)
}

func TestPreviewOrderValidationError(t *testing.T) {
	f := newFixture(t)
	spec := marketSpec()
	spec.OrderType = domain.Limit // missing limit price

	_, err := f.executor.PreviewOrder(context.Background(), spec)

	assert.ErrorIs(t, err, ports.ErrOrderValidation)
}

func TestCancelOrderOutcomes(t *testing.T) {
	t.Run("cancelled", func(t *testing.T) {
		f := newFixture(t)
		result := f.executor.CancelOrder(context.Background(), 42)
		assert.Equal(t, domain.CancelDone, result.Status)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		f.session.cancelErr = ports.ErrOrderNotFound
		result := f.executor.CancelOrder(context.Background(), 42)
		assert.Equal(t, domain.CancelNotFound, result.Status)
	})

	t.Run("already filled", func(t *testing.T) {
		f := newFixture(t)
		f.session.cancelErr = ports.ErrOrderCancelFailed
		f.session.state = domain.OrderState{OrderID: 42, Status: "Filled", FilledQty: 100}
		result := f.executor.CancelOrder(context.Background(), 42)
		assert.Equal(t, domain.CancelAlreadyFilled, result.Status)
	})

	t.Run("rejected", func(t *testing.T) {
		f := newFixture(t)
		f.session.cancelErr = ports.ErrOrderCancelFailed
		f.session.state = domain.OrderState{OrderID: 42, Status: "Submitted"}
		result := f.executor.CancelOrder(context.Background(), 42)
		assert.Equal(t, domain.CancelRejected, result.Status)
	})
}

func TestCancelOrderSetReturnsPerID(t *testing.T) {
	f := newFixture(t)

	results := f.executor.CancelOrderSet(context.Background(), []int64{1, 2, 3})

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, int64(i+1), r.OrderID)
		assert.Equal(t, domain.CancelDone, r.Status)
	}
}

func TestGetOrderStatusNormalizes(t *testing.T) {
	f := newFixture(t)
	f.session.state = domain.OrderState{OrderID: 9, Status: "PreSubmitted", FilledQty: 0}

	state, err := f.executor.GetOrderStatus(context.Background(), 9)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingSubmit, state.Status)
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]domain.OrderStatus{
		"Submitted":        domain.StatusSubmitted,
		"PendingSubmit":    domain.StatusPendingSubmit,
		"NEW":              domain.StatusPendingSubmit,
		"PARTIALLY_FILLED": domain.StatusPartiallyFilled,
		"FILLED":           domain.StatusFilled,
		"Filled":           domain.StatusFilled,
		"CANCELED":         domain.StatusCancelled,
		"ApiCancelled":     domain.StatusCancelled,
		"Inactive":         domain.StatusRejected,
		"EXPIRED":          domain.StatusExpired,
		"PendingCancel":    domain.StatusPendingCancel,
		"something-new":    domain.StatusSubmitted,
	}
	for native, want := range cases {
		assert.Equal(t, want, NormalizeStatus(native), "native status %q", native)
	}
}
