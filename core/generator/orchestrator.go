// Package generator drives the text-generation collaborator and verifies each
// returned row. Attempts are independent: one malformed response never aborts
// the remaining attempts, and the run fails only when nothing usable came back.
package generator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"dataset-registry/core/apperr"
	"dataset-registry/core/models"
)

var log = logrus.WithField("component", "generator")

// MaxSampleSize caps one generation run
const MaxSampleSize = 50

// Completer issues one text-completion call against the generation model
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Orchestrator fans a generation request out into independent completion calls
type Orchestrator struct {
	completer Completer
}

// New creates an orchestrator over the given completion collaborator
func New(completer Completer) *Orchestrator {
	return &Orchestrator{completer: completer}
}

// Generate issues sampleSize independent completion calls and returns the
// dataset record built from the parsed rows. Per-attempt failures are logged
// and skipped. The run fails only when zero rows verify: partial success is a
// success with a smaller result set.
func (o *Orchestrator) Generate(ctx context.Context, inputText string, sampleSize int) (*models.DatasetRecord, error) {
	if strings.TrimSpace(inputText) == "" {
		return nil, apperr.Invalid("input text is required", "input_text")
	}
	if sampleSize < 1 || sampleSize > MaxSampleSize {
		return nil, apperr.Invalid("sample size must be between 1 and 50", "sample_size")
	}

	record := &models.DatasetRecord{
		InputText: inputText,
		CreatedAt: time.Now().UTC(),
	}

	for i := 0; i < sampleSize; i++ {
		raw, err := o.completer.Complete(ctx, buildPrompt(inputText))
		if err != nil {
			log.WithError(err).WithField("attempt", i+1).Warn("generation attempt failed")
			continue
		}

		payload, ok := parsePayload(raw)
		if !ok {
			log.WithField("attempt", i+1).Warn("generation attempt returned malformed row")
			continue
		}

		row, ok := verifyRow(inputText, payload)
		if !ok {
			// verification itself blew up; drop the row rather than retain
			// it with a made-up status
			continue
		}
		record.Rows = append(record.Rows, row)
	}

	if len(record.VerifiedRows()) == 0 {
		return nil, apperr.New(apperr.Upstream, "generation failed, no usable results")
	}
	return record, nil
}

// TestPrompt issues exactly one completion call and returns the raw model
// output alongside the parsed row when the output is usable.
func (o *Orchestrator) TestPrompt(ctx context.Context, inputText string) (*models.PromptResult, error) {
	if strings.TrimSpace(inputText) == "" {
		return nil, apperr.Invalid("input text is required", "input_text")
	}

	raw, err := o.completer.Complete(ctx, buildPrompt(inputText))
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "generation call failed", err)
	}

	result := &models.PromptResult{Raw: raw}
	if payload, ok := parsePayload(raw); ok {
		if row, ok := verifyRow(inputText, payload); ok {
			result.Row = &row
		}
	}
	return result, nil
}

// parsePayload extracts the structured payload from one model response.
// Empty responses and malformed JSON count as attempt failures.
func parsePayload(raw string) (models.SyntheticPayload, bool) {
	var payload models.SyntheticPayload

	cleaned := stripFences(raw)
	if cleaned == "" {
		return payload, false
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return payload, false
	}
	return payload, true
}

// verifyRow assigns the terminal status: verified iff every required field is
// present and non-empty. Verification never returns an error; the only failure
// path is a panic, which drops the row.
func verifyRow(sourceText string, payload models.SyntheticPayload) (row models.GeneratedRow, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("row verification panicked, dropping row")
			ok = false
		}
	}()

	row = models.GeneratedRow{
		SourceText: sourceText,
		Payload:    payload,
		Status:     models.RowStatusFailed,
	}
	if strings.TrimSpace(payload.Question) != "" &&
		strings.TrimSpace(payload.Answer) != "" &&
		strings.TrimSpace(payload.Category) != "" {
		row.Status = models.RowStatusVerified
	}
	return row, true
}

// stripFences removes a markdown code fence the model sometimes wraps around
// its JSON output.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
