// Package history persists the append-only audit record of every
// generation+publish run. Entries are never edited or deleted; reads return
// the most recent entries first.
package history

import (
	"context"

	"dataset-registry/core/models"
)

// MaxListing caps how many entries a listing returns
const MaxListing = 100

// Ledger is an append-only store of history entries
type Ledger interface {
	// Append records one entry. Implementations append atomically; there is
	// no read-modify-write of previously written entries.
	Append(ctx context.Context, entry models.HistoryEntry) error
	// Recent returns up to limit entries, newest first. limit values outside
	// (0, MaxListing] are clamped to MaxListing.
	Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	Close() error
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListing {
		return MaxListing
	}
	return limit
}
