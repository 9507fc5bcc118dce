package controlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "control.json")
	store, err := New(Config{Path: path, Logger: &mockLogger{}})
	require.NoError(t, err)
	return store, path
}

func TestReadMissingFile(t *testing.T) {
	store, _ := newStore(t)

	_, err := store.Read(context.Background())

	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestReadMalformedFile(t *testing.T) {
	store, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"trading_mode": `), 0o644))

	_, err := store.Read(context.Background())

	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestWriteReadRoundTrip(t *testing.T) {
	store, path := newStore(t)
	state := domain.ControlState{
		TradingMode:             domain.ModeLive,
		OrdersEnabled:           true,
		DryRun:                  false,
		LiveTradingOverrideFile: "/tmp/override",
	}

	require.NoError(t, store.Write(context.Background(), state))

	loaded, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	// The write must land via rename, leaving no temp files behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestWriteOverwritesAtomically(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, domain.ControlState{TradingMode: domain.ModePaper, DryRun: true}))
	require.NoError(t, store.Write(ctx, domain.ControlState{TradingMode: domain.ModePaper, OrdersEnabled: true}))

	loaded, err := store.Read(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.OrdersEnabled)
	assert.False(t, loaded.DryRun)
}
