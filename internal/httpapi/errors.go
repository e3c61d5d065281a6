package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"stemd/internal/classify"
	"stemd/internal/orchestrator"
	"stemd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeError(w, types.ErrorResponse{Error: msg, Code: status})
}

func writeError(w http.ResponseWriter, body types.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Code)
	_ = json.NewEncoder(w).Encode(body)
}

// errorResponse maps service errors onto status codes:
// invalid request 400, missing artifact 404, backpressure 429, missing
// separator 503, classified failures 422 (device failures that survived the
// CPU retry 503, unknown ones 500), anything else 500.
func errorResponse(err error) types.ErrorResponse {
	resp := types.ErrorResponse{Error: err.Error(), Code: http.StatusInternalServerError}
	var ce *classify.ClassifiedError
	var he HTTPError
	switch {
	case orchestrator.IsInvalidRequest(err):
		resp.Code = http.StatusBadRequest
	case orchestrator.IsArtifactNotFound(err):
		resp.Code = http.StatusNotFound
	case orchestrator.IsTooBusy(err):
		resp.Code = http.StatusTooManyRequests
	case orchestrator.IsDependencyUnavailable(err):
		resp.Code = http.StatusServiceUnavailable
	case errors.As(err, &ce):
		resp.Error = ce.Message
		resp.Category = string(ce.Category)
		resp.Suggestion = ce.Suggestion
		switch {
		case ce.Category == classify.CategoryDevice:
			resp.Code = http.StatusServiceUnavailable
		case ce.Category == classify.CategoryUnknown:
			resp.Code = http.StatusInternalServerError
		default:
			resp.Code = http.StatusUnprocessableEntity
		}
	case errors.As(err, &he):
		resp.Code = he.StatusCode()
	}
	return resp
}
