package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/errs"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload) //nolint:errcheck // headers already sent
}

// writeResult wraps a payload in the standard success envelope.
func writeResult(w http.ResponseWriter, status int, payload interface{}) {
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    payload,
	})
}

// writeError maps a tagged error kind onto its HTTP status class and emits
// the standard failure envelope.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error": map[string]string{
			"kind":    errs.KindOf(err).String(),
			"message": err.Error(),
		},
	})
}

func statusForError(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindDependency:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
