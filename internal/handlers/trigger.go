package handlers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/alert"
	"github.com/cse408-project/secureherai-api/internal/authz"
	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
)

type TriggerHandler struct {
	triggers *alert.TriggerService
	logger   zerolog.Logger
}

func NewTriggerHandler(triggers *alert.TriggerService, logger zerolog.Logger) *TriggerHandler {
	return &TriggerHandler{
		triggers: triggers,
		logger:   logger.With().Str("handler", "trigger").Logger(),
	}
}

type locationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address"`
}

func (p *locationPayload) toLocation() (models.Location, error) {
	if p == nil || p.Latitude == nil || p.Longitude == nil {
		return models.Location{}, errs.Validationf("latitude and longitude are required")
	}
	return models.NewLocation(*p.Latitude, *p.Longitude, p.Address)
}

type textTriggerRequest struct {
	Message  string           `json:"message"`
	Keyword  string           `json:"keyword"`
	Location *locationPayload `json:"location"`
}

type manualTriggerRequest struct {
	Message  string           `json:"message"`
	Location *locationPayload `json:"location"`
}

type voiceTriggerRequest struct {
	Audio        string           `json:"audio"` // base64-encoded
	AudioRef     string           `json:"audio_ref"`
	AudioURL     string           `json:"audio_url"`
	LanguageCode string           `json:"language_code"`
	Location     *locationPayload `json:"location"`
}

// Text handles the text-command SOS path. A keyword mismatch is reported as
// success=false with reason, status 200; a created or reused alert returns
// 201.
func (h *TriggerHandler) Text(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var req textTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, errs.Validationf("invalid request body"))
		return
	}
	loc, err := req.Location.toLocation()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.triggers.TriggerText(r.Context(), userID, req.Message, req.Keyword, loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeTriggerResult(w, result)
}

// Manual handles the SOS button path.
func (h *TriggerHandler) Manual(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var req manualTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, errs.Validationf("invalid request body"))
		return
	}
	loc, err := req.Location.toLocation()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.triggers.TriggerManual(r.Context(), userID, loc, req.Message)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeTriggerResult(w, result)
}

// Voice handles uploaded audio (base64 in the JSON body).
func (h *TriggerHandler) Voice(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var req voiceTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, errs.Validationf("invalid request body"))
		return
	}
	loc, err := req.Location.toLocation()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil || len(audio) == 0 {
		writeError(w, h.logger, errs.Validationf("audio must be non-empty base64"))
		return
	}

	result, err := h.triggers.TriggerVoice(r.Context(), userID, audio, req.AudioRef, req.LanguageCode, loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeTriggerResult(w, result)
}

// VoiceURL handles audio already uploaded to storage, referenced by URL.
func (h *TriggerHandler) VoiceURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	var req voiceTriggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, errs.Validationf("invalid request body"))
		return
	}
	if strings.TrimSpace(req.AudioURL) == "" {
		writeError(w, h.logger, errs.Validationf("audio_url is required"))
		return
	}
	loc, err := req.Location.toLocation()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.triggers.TriggerVoiceURL(r.Context(), userID, req.AudioURL, req.LanguageCode, loc)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeTriggerResult(w, result)
}

func (h *TriggerHandler) writeTriggerResult(w http.ResponseWriter, result alert.TriggerResult) {
	if !result.Created && !result.Reused {
		// Deliberate no-op: keyword mismatch or transcription failure.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"reason":  result.Reason,
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"created":  result.Created,
		"reused":   result.Reused,
		"alert":    result.Alert,
		"dispatch": result.Dispatch,
	})
}
