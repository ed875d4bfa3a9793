package models

import "time"

// RowStatus is the terminal verification status of a generated row
type RowStatus string

const (
	RowStatusVerified RowStatus = "verified"
	RowStatusFailed   RowStatus = "failed"
)

// SyntheticPayload is the structured synthetic record produced for one row.
// All three fields are required for a row to be considered verified.
type SyntheticPayload struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

// GeneratedRow is one synthetic record derived from the source text
type GeneratedRow struct {
	SourceText string           `json:"source_text"`
	Payload    SyntheticPayload `json:"payload"`
	Status     RowStatus        `json:"status"`
}

// DatasetRecord is the result of one generation run. Immutable once published:
// re-generation produces a new record, never an edit.
type DatasetRecord struct {
	InputText string         `json:"input_text"`
	Rows      []GeneratedRow `json:"rows"`
	CreatedAt time.Time      `json:"created_at"`
}

// VerifiedRows returns the subset of rows eligible for publication. Failed rows
// stay in the record so failure is observable, but they are never monetized.
func (d *DatasetRecord) VerifiedRows() []GeneratedRow {
	var rows []GeneratedRow
	for _, r := range d.Rows {
		if r.Status == RowStatusVerified {
			rows = append(rows, r)
		}
	}
	return rows
}

// Tag is a single name/value pair attached to an upload. Order is preserved.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ContentReference binds a permanent storage URL to the hash of the exact bytes
// stored there. Any verifier can re-fetch the URL and recompute the hash.
type ContentReference struct {
	URL         string `json:"url"`
	ContentHash string `json:"content_hash"`
	Tags        []Tag  `json:"tags,omitempty"`
}

// PromptResult is the outcome of a single ad hoc generation call
type PromptResult struct {
	Raw string        `json:"raw"`
	Row *GeneratedRow `json:"row,omitempty"`
}
