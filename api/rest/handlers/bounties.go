package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"dataset-registry/core/bounty"
)

// BountyHandler handles bounty escrow endpoints
type BountyHandler struct {
	mgr *bounty.Manager
}

// NewBountyHandler creates a bounty handler
func NewBountyHandler(mgr *bounty.Manager) *BountyHandler {
	return &BountyHandler{mgr: mgr}
}

// CreateBountyRequest is the body for bounty creation
type CreateBountyRequest struct {
	Amount string `json:"amount"`
}

// Create handles POST /v1/bounties
func (h *BountyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBountyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.mgr.Create(r.Context(), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// AddContributorRequest is the body for contributor registration
type AddContributorRequest struct {
	Address string `json:"address"`
}

// AddContributor handles POST /v1/bounties/{id}/contributors
func (h *BountyHandler) AddContributor(w http.ResponseWriter, r *http.Request) {
	bountyID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req AddContributorRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.mgr.AddContributor(r.Context(), bountyID, req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Distribute handles POST /v1/bounties/{id}/distribute
func (h *BountyHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	bountyID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.mgr.Distribute(r.Context(), bountyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get handles GET /v1/bounties/{id}
func (h *BountyHandler) Get(w http.ResponseWriter, r *http.Request) {
	bountyID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := h.mgr.Get(r.Context(), bountyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// List handles GET /v1/bounties
func (h *BountyHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.mgr.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": views})
}

// ByCreator handles GET /v1/bounties/creator/{address}
func (h *BountyHandler) ByCreator(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	views, err := h.mgr.ListByCreator(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"creator": address,
		"items":   views,
	})
}
