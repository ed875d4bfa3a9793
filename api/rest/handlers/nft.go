package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"dataset-registry/core/models"
	"dataset-registry/core/pipeline"
)

// NFTHandler handles mint, metadata reads and donations
type NFTHandler struct {
	pipe *pipeline.Service
}

// NewNFTHandler creates an NFT handler
func NewNFTHandler(pipe *pipeline.Service) *NFTHandler {
	return &NFTHandler{pipe: pipe}
}

// Mint handles POST /v1/nft/mint
func (h *NFTHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req models.MintRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.pipe.MintExisting(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Get handles GET /v1/nft/{tokenId}
func (h *NFTHandler) Get(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathID(r, "tokenId")
	if err != nil {
		writeError(w, err)
		return
	}

	meta, err := h.pipe.GetNFT(r.Context(), tokenID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// ByCreator handles GET /v1/nft/creator/{address}
func (h *NFTHandler) ByCreator(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	ids, err := h.pipe.TokensByCreator(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"creator":   address,
		"token_ids": ids,
	})
}

// DonateRequest is the body for donations
type DonateRequest struct {
	Amount string `json:"amount"`
}

// Donate handles POST /v1/nft/{tokenId}/donate
func (h *NFTHandler) Donate(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathID(r, "tokenId")
	if err != nil {
		writeError(w, err)
		return
	}

	var req DonateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	outcome, err := h.pipe.Donate(r.Context(), tokenID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// DonationInfo handles GET /v1/nft/{tokenId}/donation-info
func (h *NFTHandler) DonationInfo(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathID(r, "tokenId")
	if err != nil {
		writeError(w, err)
		return
	}

	info, err := h.pipe.DonationInfo(r.Context(), tokenID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
