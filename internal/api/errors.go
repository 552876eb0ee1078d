package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/cinnamon-core/internal/bridge"
	"github.com/nerrad567/cinnamon-core/internal/entry"
	"github.com/nerrad567/cinnamon-core/internal/experience"
	"github.com/nerrad567/cinnamon-core/internal/motion"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// Error is the body of an error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorEnvelope wraps Error as {"error": {...}}.
type errorEnvelope struct {
	Error Error `json:"error"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeUnavailable  = "unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: Error{Code: code, Message: message}})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeEngineError maps an engine error onto an HTTP status.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sequence.ErrAlreadyActive), errors.Is(err, entry.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, sequence.ErrNoStages):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, motion.ErrInvalidWindow), errors.Is(err, entry.ErrInvalidPlan),
		errors.Is(err, sequence.ErrInvalidStage), errors.Is(err, experience.ErrInvalidScript):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	case errors.Is(err, experience.ErrUnknownMaterial), errors.Is(err, bridge.ErrUnknownScene),
		errors.Is(err, sequence.ErrRunNotFound), errors.Is(err, motion.ErrOutcomeNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, timeline.ErrLoopStopped), errors.Is(err, timeline.ErrInboxFull):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
