package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/alert"
	"github.com/cse408-project/secureherai-api/internal/authz"
	"github.com/cse408-project/secureherai-api/internal/errs"
	"github.com/cse408-project/secureherai-api/internal/models"
)

type AlertHandler struct {
	service *alert.Service
	queries *alert.QueryService
	logger  zerolog.Logger
}

func NewAlertHandler(service *alert.Service, queries *alert.QueryService, logger zerolog.Logger) *AlertHandler {
	return &AlertHandler{
		service: service,
		queries: queries,
		logger:  logger.With().Str("handler", "alert").Logger(),
	}
}

func (h *AlertHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}
	alertID := strings.TrimSpace(mux.Vars(r)["alertID"])
	if alertID == "" {
		writeError(w, h.logger, errs.Validationf("alert ID is required"))
		return
	}

	updated, err := h.service.Cancel(r.Context(), alertID, userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, updated)
}

func (h *AlertHandler) ListOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}

	alerts, err := h.queries.UserAlerts(r.Context(), userID, queryLimit(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, alerts)
}

func (h *AlertHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.queries.ActiveAlerts(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, alerts)
}

func (h *AlertHandler) ListWindow(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, h.logger, errs.Validationf("start must be RFC3339"))
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, h.logger, errs.Validationf("end must be RFC3339"))
		return
	}

	alerts, err := h.queries.AlertsInWindow(r.Context(), start, end, queryLimit(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, alerts)
}

func (h *AlertHandler) ListArea(w http.ResponseWriter, r *http.Request) {
	bounds := make(map[string]float64, 4)
	for _, key := range []string{"latMin", "latMax", "lonMin", "lonMax"} {
		value, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
		if err != nil {
			writeError(w, h.logger, errs.Validationf("%s must be a number", key))
			return
		}
		bounds[key] = value
	}

	alerts, err := h.queries.AlertsInArea(r.Context(),
		bounds["latMin"], bounds["latMax"], bounds["lonMin"], bounds["lonMax"], queryLimit(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, alerts)
}

// Notifications returns the delivery audit trail of one alert. Owners see
// their own alerts; responders and admins see any.
func (h *AlertHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		http.Error(w, "Missing user context", http.StatusUnauthorized)
		return
	}
	alertID := strings.TrimSpace(mux.Vars(r)["alertID"])

	found, err := h.service.Get(r.Context(), alertID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	role, _ := authz.RoleFromRequest(r)
	if found.UserID != userID && !models.HasAtLeast([]models.UserRole{role}, models.RoleResponder) {
		writeError(w, h.logger, errs.Forbiddenf("alert %s does not belong to requester", alertID))
		return
	}

	notifs, err := h.queries.NotificationsForAlert(r.Context(), alertID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeResult(w, http.StatusOK, notifs)
}

func queryLimit(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}
