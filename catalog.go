package orderagent

import (
	"context"
	"fmt"
	"log/slog"

	"orderagent/menu"
	"orderagent/storage"
)

// LoadCatalog reads the menu from src and applies the configured caps. A nil
// src means the built-in menu.
func LoadCatalog(ctx context.Context, src storage.MenuSource, cfg CounterConfig) (*menu.Catalog, error) {
	c := menu.Default()
	if src != nil {
		data, err := src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load menu: %w", err)
		}
		if c, err = menu.Decode(data); err != nil {
			return nil, fmt.Errorf("failed to decode menu: %w", err)
		}
	}

	c = c.WithLimits(menu.Limits{MaxExtraShots: cfg.MaxExtraShots, MaxSyrupPumps: cfg.MaxSyrupPumps})
	slog.Info("SETUP: Menu loaded", "items", len(c.Items()), "max_extra_shots", c.Limits().MaxExtraShots, "max_syrup_pumps", c.Limits().MaxSyrupPumps)
	return c, nil
}
