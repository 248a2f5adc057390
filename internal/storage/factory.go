package storage

import (
	"context"
	"fmt"
)

// Config controls how the storage backend is opened.
type Config struct {
	Driver  string
	DSN     string
	Portals []Portal
}

// Open constructs a Storage based on the given configuration.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	drv := cfg.Driver
	if drv == "" {
		drv = "memory"
	}
	switch drv {
	case "memory":
		if len(cfg.Portals) > 0 {
			return NewMemoryWithPortals(cfg.Portals), nil
		}
		return NewMemory(), nil

	case "sqlite", "postgres":
		st, err := NewGormStorage(drv, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("storage migrate: %w", err)
		}
		if err := seedPortals(ctx, st, cfg.Portals); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil

	case "postgrespool":
		st, err := OpenPostgresPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := seedPortals(ctx, st, cfg.Portals); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", drv)
	}
}

// seedPortals upserts the known distributor catalog so a fresh backend
// starts populated.
func seedPortals(ctx context.Context, st Storage, portals []Portal) error {
	for _, p := range portals {
		if err := st.UpsertPortal(ctx, p); err != nil {
			return fmt.Errorf("seed portal %s: %w", p.Code, err)
		}
	}
	return nil
}
