package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"dataset-registry/core/apperr"
)

var log = logrus.WithField("component", "http")

// errorResponse is the stable error envelope every failed request returns
type errorResponse struct {
	Error         string   `json:"error"`
	Details       string   `json:"details,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

// writeError maps tagged error kinds to status codes. Untagged errors are
// internal failures and expose no cause.
func writeError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		log.WithError(err).Error("unclassified handler error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	status := http.StatusBadGateway
	switch ae.Kind {
	case apperr.Validation:
		status = http.StatusBadRequest
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Permission:
		status = http.StatusForbidden
	case apperr.AlreadyDistributed:
		status = http.StatusConflict
	}

	resp := errorResponse{Error: ae.Message, MissingFields: ae.Fields}
	if ae.Cause != nil {
		resp.Details = ae.Cause.Error()
	}
	if status >= 500 {
		log.WithError(err).Warn("upstream failure")
	}
	writeJSON(w, status, resp)
}

// pathID reads a positive integer path variable
func pathID(r *http.Request, name string) (uint64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Invalid("path parameter "+name+" must be a positive integer", name)
	}
	return id, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	return nil
}
