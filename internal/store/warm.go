package store

import (
	"context"
	"fmt"
	"log/slog"
)

// warmHistoryLimit bounds how many recent hashes are replayed per brand.
// Matches the window the dedup check cares about.
const warmHistoryLimit = 200

// WarmHistory replays each active brand's recent caption hashes into the
// history store. Called at startup when history lives in process and would
// otherwise forget every past caption across a restart.
func WarmHistory(ctx context.Context, brands BrandStore, captions CaptionStore, history HistoryStore) error {
	profiles, err := brands.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active brands: %w", err)
	}

	loaded := 0
	for i := range profiles {
		brandID := profiles[i].ID
		hashes, err := captions.ListRecentHashes(ctx, brandID, warmHistoryLimit)
		if err != nil {
			return fmt.Errorf("load caption hashes for brand %d: %w", brandID, err)
		}
		for _, hash := range hashes {
			if err := history.Remember(ctx, brandID, hash); err != nil {
				return fmt.Errorf("seed history for brand %d: %w", brandID, err)
			}
		}
		loaded += len(hashes)
	}

	slog.InfoContext(ctx, "caption history warmed", "brands", len(profiles), "hashes", loaded)
	return nil
}
