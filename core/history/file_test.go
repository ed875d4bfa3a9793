package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-registry/core/models"
)

func entry(i int) models.HistoryEntry {
	return models.HistoryEntry{
		ID:          fmt.Sprintf("entry-%03d", i),
		InputText:   "input",
		ContentHash: "0xabc",
		ContentURL:  "https://arweave.net/tx",
		MetadataURL: "https://arweave.net/meta",
		CreatedAt:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
	}
}

func TestFileLedgerAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")

	ledger, err := OpenFile(path)
	require.NoError(t, err)
	defer ledger.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, ledger.Append(ctx, entry(i)))
	}

	entries, err := ledger.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "entry-004", entries[0].ID, "newest first")
	assert.Equal(t, "entry-002", entries[2].ID)
}

func TestFileLedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")

	ledger, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, ledger.Append(ctx, entry(0)))
	require.NoError(t, ledger.Close())

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Append(ctx, entry(1)))

	entries, err := reopened.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "entry-001", entries[0].ID)
}

func TestFileLedgerCapsListing(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")

	ledger, err := OpenFile(path)
	require.NoError(t, err)
	defer ledger.Close()

	for i := 0; i < MaxListing+20; i++ {
		require.NoError(t, ledger.Append(ctx, entry(i)))
	}

	entries, err := ledger.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, MaxListing)

	entries, err = ledger.Recent(ctx, MaxListing+500)
	require.NoError(t, err)
	assert.Len(t, entries, MaxListing)
}

func TestFileLedgerSkipsCorruptLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")

	ledger, err := OpenFile(path)
	require.NoError(t, err)
	defer ledger.Close()

	require.NoError(t, ledger.Append(ctx, entry(0)))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{this is not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, ledger.Append(ctx, entry(1)))

	entries, err := ledger.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "entry-001", entries[0].ID)
	assert.Equal(t, "entry-000", entries[1].ID)
}

func TestFileLedgerConcurrentAppendsLoseNothing(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")

	ledger, err := OpenFile(path)
	require.NoError(t, err)
	defer ledger.Close()

	const writers = 10
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_ = ledger.Append(ctx, entry(w*10+i))
			}
		}(w)
	}
	wg.Wait()

	entries, err := ledger.Recent(ctx, MaxListing)
	require.NoError(t, err)
	assert.Len(t, entries, writers*5)
}

func TestFileLedgerEmptyFile(t *testing.T) {
	ctx := context.Background()
	ledger, err := OpenFile(filepath.Join(t.TempDir(), "history.jsonl"))
	require.NoError(t, err)
	defer ledger.Close()

	entries, err := ledger.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
