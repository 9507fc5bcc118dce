package main

import (
	"context"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"github.com/MrRolie/mm-ibkr-gateway-sub000/config"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/adapters/controlstore"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/adapters/logger"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/adapters/sqlite"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/control"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/orders"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/sim"
)

// Offline demo: wires the safety gate and the simulated matching engine, then
// previews and places a bracket order without any venue connection.
func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	var appLogger ports.Logger
	if cfg.LogFormat == "json" {
		zl, err := logger.NewZapLogger(cfg.LogLevel)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize zap logger: %v", err)
		}
		defer zl.Sync()
		appLogger = zl
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Audit Store
	audit, err := sqlite.NewAuditStore(sqlite.Config{
		DBPath: cfg.AuditDBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize audit store: %v", err)
	}
	defer func() {
		if err := audit.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing audit store")
		}
	}()

	// 4. Initialize Control Gate
	store, err := controlstore.New(controlstore.Config{Path: cfg.ControlStatePath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize control store: %v", err)
	}
	gate, err := control.New(control.Config{
		Store:          store,
		Audit:          audit,
		Logger:         appLogger,
		KillSwitchPath: cfg.KillSwitchPath,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize control gate: %v", err)
	}

	state, _ := gate.Load(ctx)
	veto, err := gate.Check(ctx)
	if err != nil {
		log.Fatalf("FATAL: Gate check failed: %v", err)
	}
	fmt.Printf("Trading posture: mode=%s orders_enabled=%v dry_run=%v\n", state.TradingMode, state.OrdersEnabled, state.EffectiveDryRun())
	if veto != "" {
		fmt.Printf("Gate veto in force: %s\n", veto)
	}

	// 5. Wire the simulated venue
	builder := orders.NewBuilder()
	engine := sim.NewEngine()
	router, err := sim.NewRouter(engine, builder, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize simulated router: %v", err)
	}

	// 6. Preview and place a bracket against synthetic quotes
	spec := domain.OrderSpec{
		Instrument:      domain.SymbolSpec{Symbol: "AAPL", SecurityType: domain.SecStock},
		Side:            domain.Buy,
		Quantity:        100,
		OrderType:       domain.Bracket,
		TakeProfitPrice: 210,
		StopLossPrice:   175,
	}

	preview, err := router.PreviewOrder(ctx, spec)
	if err != nil {
		appLogger.Error(ctx, err, "Preview failed")
		return
	}
	fmt.Printf("Preview: price=%.2f notional=%.2f commission=%.2f warnings=%v\n",
		preview.EstimatedPrice, preview.EstimatedNotional, preview.EstimatedCommission, preview.Warnings)

	result, err := router.PlaceOrder(ctx, spec)
	if err != nil {
		appLogger.Error(ctx, err, "Placement failed")
		return
	}
	fmt.Printf("Placed: status=%s entry=%d legs=%v roles=%v\n", result.Status, result.OrderID, result.OrderIDs, result.OrderRoles)

	states, err := router.GetOrderSetStatus(ctx, result.OrderIDs)
	if err != nil {
		appLogger.Error(ctx, err, "Status poll failed")
		return
	}
	for _, st := range states {
		fmt.Printf("  order %d: %s filled=%.0f @ %.2f\n", st.OrderID, st.Status, st.FilledQty, st.AvgFillPrice)
	}

	for _, cr := range router.CancelOrderSet(ctx, result.OrderIDs) {
		fmt.Printf("  cancel %d: %s\n", cr.OrderID, cr.Status)
	}
}
