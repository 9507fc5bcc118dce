package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/config"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/adapters/controlstore"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/adapters/logger"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/adapters/sqlite"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/control"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
)

// controlctl shows and updates the persisted trading-control state through
// the gate's administrative path, so every change is re-validated and audited.
//
//	controlctl show
//	controlctl set -mode paper -orders=false -dry-run=true -reason "maintenance"
func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	store, err := controlstore.New(controlstore.Config{Path: cfg.ControlStatePath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize control store: %v", err)
	}
	audit, err := sqlite.NewAuditStore(sqlite.Config{DBPath: cfg.AuditDBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize audit store: %v", err)
	}
	defer audit.Close()

	gate, err := control.New(control.Config{
		Store:          store,
		Audit:          audit,
		Logger:         appLogger,
		KillSwitchPath: cfg.KillSwitchPath,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize control gate: %v", err)
	}

	switch os.Args[1] {
	case "show":
		show(ctx, gate)
	case "set":
		set(ctx, gate, os.Args[2:])
	default:
		usage()
	}
}

func show(ctx context.Context, gate *control.Gate) {
	state, err := gate.Load(ctx)
	if err != nil {
		fmt.Printf("warning: %v\n", err)
	}
	fmt.Printf("trading_mode:    %s\n", state.TradingMode)
	fmt.Printf("orders_enabled:  %v\n", state.OrdersEnabled)
	fmt.Printf("dry_run:         %v (effective: %v)\n", state.DryRun, state.EffectiveDryRun())
	if state.LiveTradingOverrideFile != "" {
		fmt.Printf("override_file:   %s\n", state.LiveTradingOverrideFile)
	}
	if problems := gate.Validate(state); len(problems) > 0 {
		fmt.Println("state problems:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
	}
	if gate.KillSwitchEngaged() {
		fmt.Println("KILL SWITCH ENGAGED")
	}
	if veto, err := gate.Check(ctx); err == nil && veto != "" {
		fmt.Printf("gate veto:       %s\n", veto)
	}
}

func set(ctx context.Context, gate *control.Gate, args []string) {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	mode := fs.String("mode", "paper", "trading mode: paper or live")
	ordersEnabled := fs.Bool("orders", false, "enable order placement")
	dryRun := fs.Bool("dry-run", true, "dry-run mode")
	overrideFile := fs.String("override-file", "", "live trading override file (required for live+orders)")
	reason := fs.String("reason", "", "reason recorded in the audit log")
	fs.Parse(args)

	if *reason == "" {
		log.Fatal("FATAL: -reason is required for control-state changes")
	}

	state := domain.ControlState{
		TradingMode:             domain.TradingMode(*mode),
		OrdersEnabled:           *ordersEnabled,
		DryRun:                  *dryRun,
		LiveTradingOverrideFile: *overrideFile,
	}
	if err := gate.Update(ctx, state, *reason); err != nil {
		log.Fatalf("FATAL: Update rejected: %v", err)
	}
	fmt.Println("control state updated")
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: controlctl show | controlctl set [flags]")
	os.Exit(2)
}
