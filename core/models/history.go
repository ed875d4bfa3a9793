package models

import "time"

// HistoryEntry is one append-only audit record of a generation+publish run.
// Entries are never edited or deleted.
type HistoryEntry struct {
	ID          string         `json:"id"`
	InputText   string         `json:"input_text"`
	Rows        []GeneratedRow `json:"rows"`
	ContentHash string         `json:"content_hash"`
	ContentURL  string         `json:"content_url"`
	MetadataURL string         `json:"metadata_url"`
	TokenID     *uint64        `json:"token_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
