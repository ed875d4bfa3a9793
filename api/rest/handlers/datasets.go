package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"dataset-registry/core/models"
	"dataset-registry/core/pipeline"
)

// DatasetHandler handles generation, upload, preview, marketplace and history
type DatasetHandler struct {
	pipe *pipeline.Service
}

// NewDatasetHandler creates a dataset handler
func NewDatasetHandler(pipe *pipeline.Service) *DatasetHandler {
	return &DatasetHandler{pipe: pipe}
}

// GenerateRequest is the body for dataset generation endpoints
type GenerateRequest struct {
	InputText  string       `json:"input_text"`
	SampleSize int          `json:"sample_size"`
	Tags       []models.Tag `json:"tags,omitempty"`
}

// Generate handles POST /v1/datasets/generate
func (h *DatasetHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.pipe.GenerateAndPublish(r.Context(), req.InputText, req.SampleSize, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GenerateAndMint handles POST /v1/datasets/generate-and-mint
func (h *DatasetHandler) GenerateAndMint(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.pipe.GenerateAndMint(r.Context(), req.InputText, req.SampleSize, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

// TestPromptRequest is the body for the prompt debugging endpoint
type TestPromptRequest struct {
	InputText string `json:"input_text"`
}

// TestPrompt handles POST /v1/datasets/test-prompt
func (h *DatasetHandler) TestPrompt(w http.ResponseWriter, r *http.Request) {
	var req TestPromptRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.pipe.TestPrompt(r.Context(), req.InputText)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// UploadRequest is the body for direct dataset uploads
type UploadRequest struct {
	Payload json.RawMessage `json:"payload"`
	Tags    []models.Tag    `json:"tags,omitempty"`
}

// Upload handles POST /v1/datasets/upload
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ref, err := h.pipe.UploadDataset(r.Context(), req.Payload, req.Tags)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

// Preview handles GET /v1/datasets/{tokenId}/preview
func (h *DatasetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathID(r, "tokenId")
	if err != nil {
		writeError(w, err)
		return
	}

	rows := 0
	if raw := r.URL.Query().Get("rows"); raw != "" {
		rows, _ = strconv.Atoi(raw)
	}

	preview, err := h.pipe.Preview(r.Context(), tokenID, rows)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token_id": tokenID,
		"rows":     preview,
	})
}

// Marketplace handles GET /v1/marketplace
func (h *DatasetHandler) Marketplace(w http.ResponseWriter, r *http.Request) {
	listings, err := h.pipe.Marketplace(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": listings})
}

// History handles GET /v1/history
func (h *DatasetHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	entries, err := h.pipe.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": entries})
}
