package controlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"
)

// FileStore implements ports.ControlStore as a single JSON document on disk.
// Writes go through a temp file and rename so a concurrent gate check can
// never observe a partially written document.
type FileStore struct {
	path   string
	logger ports.Logger
}

// Config holds configuration for the file-backed control store.
type Config struct {
	Path   string
	Logger ports.Logger
}

// New creates a file-backed control store and ensures its directory exists.
func New(cfg Config) (*FileStore, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for control store")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("control state path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create control state directory '%s': %w", filepath.Dir(cfg.Path), err)
	}
	return &FileStore{path: cfg.Path, logger: cfg.Logger}, nil
}

// Read loads the persisted control state. A missing file maps to
// ports.ErrNotFound; malformed JSON maps to ports.ErrConfigurationError.
func (f *FileStore) Read(ctx context.Context) (domain.ControlState, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ControlState{}, fmt.Errorf("control state %s: %w", f.path, ports.ErrNotFound)
		}
		return domain.ControlState{}, fmt.Errorf("reading control state %s: %w", f.path, err)
	}

	var state domain.ControlState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.ControlState{}, fmt.Errorf("%w: malformed control state %s: %v", ports.ErrConfigurationError, f.path, err)
	}
	return state, nil
}

// Write atomically replaces the persisted state (temp file + rename).
func (f *FileStore) Write(ctx context.Context, state domain.ControlState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding control state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".control-*.json")
	if err != nil {
		return fmt.Errorf("creating temp control state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp control state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp control state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp control state file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replacing control state file: %w", err)
	}

	f.logger.Debug(ctx, "Control state persisted", map[string]interface{}{"path": f.path})
	return nil
}
