package history

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"dataset-registry/core/models"
)

var log = logrus.WithField("component", "history")

// FileLedger appends JSON lines to a file opened once in append mode. Writes
// never read existing content back, so concurrent appends cannot lose each
// other's entries.
type FileLedger struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenFile opens (or creates) the ledger file for appending
func OpenFile(path string) (*FileLedger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, xerrors.Errorf("create ledger directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, xerrors.Errorf("open ledger file %s: %w", path, err)
	}
	return &FileLedger{path: path, f: f}, nil
}

// Append writes one entry as a single JSON line
func (l *FileLedger) Append(ctx context.Context, entry models.HistoryEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return xerrors.Errorf("serialize history entry: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(line); err != nil {
		return xerrors.Errorf("append history entry: %w", err)
	}
	return nil
}

// Recent scans the file and returns the newest entries first. Lines that fail
// to parse are skipped with a warning rather than failing the listing.
func (l *FileLedger) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	limit = clampLimit(limit)

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.HistoryEntry{}, nil
		}
		return nil, xerrors.Errorf("open ledger file for reading: %w", err)
	}
	defer f.Close()

	var entries []models.HistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var entry models.HistoryEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			log.WithError(err).Warn("skipping unparseable history line")
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, xerrors.Errorf("scan ledger file: %w", err)
	}

	// file order is oldest first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Close closes the append handle
func (l *FileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
