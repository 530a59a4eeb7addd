package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/alert"
	"github.com/cse408-project/secureherai-api/internal/authz"
	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
)

type ResponderHandler struct {
	service     *alert.Service
	assignments *alert.AssignmentService
	logger      zerolog.Logger
}

func NewResponderHandler(service *alert.Service, assignments *alert.AssignmentService, logger zerolog.Logger) *ResponderHandler {
	return &ResponderHandler{
		service:     service,
		assignments: assignments,
		logger:      logger.With().Str("handler", "responder").Logger(),
	}
}

func (h *ResponderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	responderID, alertID, ok := h.identify(w, r)
	if !ok {
		return
	}
	row, err := h.assignments.Accept(r.Context(), alertID, responderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, row)
}

func (h *ResponderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	responderID, alertID, ok := h.identify(w, r)
	if !ok {
		return
	}
	row, err := h.assignments.Reject(r.Context(), alertID, responderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, row)
}

type forwardRequest struct {
	ToResponderID string `json:"to_responder_id"`
}

func (h *ResponderHandler) Forward(w http.ResponseWriter, r *http.Request) {
	responderID, alertID, ok := h.identify(w, r)
	if !ok {
		return
	}
	var req forwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.ToResponderID) == "" {
		writeError(w, h.logger, errs.Validationf("to_responder_id is required"))
		return
	}

	row, err := h.assignments.Forward(r.Context(), alertID, responderID, strings.TrimSpace(req.ToResponderID))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, row)
}

type progressRequest struct {
	Status string `json:"status"`
}

// Progress moves the holder through EN_ROUTE/ARRIVED, tolerating the legacy
// ENROUTE spelling.
func (h *ResponderHandler) Progress(w http.ResponseWriter, r *http.Request) {
	responderID, alertID, ok := h.identify(w, r)
	if !ok {
		return
	}
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, errs.Validationf("invalid request body"))
		return
	}
	status, err := models.ParseResponderStatus(req.Status)
	if err != nil {
		writeError(w, h.logger, errs.Validationf("invalid status %q", req.Status))
		return
	}

	row, err := h.assignments.UpdateProgress(r.Context(), alertID, responderID, status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, row)
}

func (h *ResponderHandler) Status(w http.ResponseWriter, r *http.Request) {
	responderID, alertID, ok := h.identify(w, r)
	if !ok {
		return
	}
	status, err := h.assignments.StatusFor(r.Context(), alertID, responderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *ResponderHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	responderID, alertID, ok := h.identify(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Resolve(r.Context(), alertID, responderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, updated)
}

func (h *ResponderHandler) MarkCritical(w http.ResponseWriter, r *http.Request) {
	responderID, alertID, ok := h.identify(w, r)
	if !ok {
		return
	}
	updated, err := h.service.MarkCritical(r.Context(), alertID, responderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, updated)
}

func (h *ResponderHandler) identify(w http.ResponseWriter, r *http.Request) (responderID, alertID string, ok bool) {
	responderID, hasUser := authz.UserIDFromRequest(r)
	if !hasUser {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return "", "", false
	}
	alertID = strings.TrimSpace(mux.Vars(r)["alertID"])
	if alertID == "" {
		writeError(w, h.logger, errs.Validationf("alert ID is required"))
		return "", "", false
	}
	return responderID, alertID, true
}
