package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cse408-project/secureherai-api/internal/authz"
	"github.com/cse408-project/secureherai-api/internal/handlers"
	"github.com/cse408-project/secureherai-api/internal/models"
)

// NewRouter sets up the API routes
func NewRouter(
	jwtSecret string,
	trigger *handlers.TriggerHandler,
	alerts *handlers.AlertHandler,
	responder *handlers.ResponderHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(authz.JWTMiddleware(jwtSecret))

	// SOS trigger endpoints
	api.HandleFunc("/sos", trigger.Manual).Methods(http.MethodPost)
	api.HandleFunc("/sos/text", trigger.Text).Methods(http.MethodPost)
	api.HandleFunc("/sos/voice", trigger.Voice).Methods(http.MethodPost)
	api.HandleFunc("/sos/voice-url", trigger.VoiceURL).Methods(http.MethodPost)

	// Alert lifecycle and queries
	api.HandleFunc("/alerts", alerts.ListOwn).Methods(http.MethodGet)
	api.HandleFunc("/alerts/window", alerts.ListWindow).Methods(http.MethodGet)
	api.HandleFunc("/alerts/area", alerts.ListArea).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{alertID}/cancel", alerts.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{alertID}/notifications", alerts.Notifications).Methods(http.MethodGet)

	// Responder-only surface
	responderAPI := api.PathPrefix("").Subrouter()
	responderAPI.Use(authz.RequireRole(models.RoleResponder))
	responderAPI.HandleFunc("/alerts/active", alerts.ListActive).Methods(http.MethodGet)
	responderAPI.HandleFunc("/responder/alerts/{alertID}/accept", responder.Accept).Methods(http.MethodPost)
	responderAPI.HandleFunc("/responder/alerts/{alertID}/reject", responder.Reject).Methods(http.MethodPost)
	responderAPI.HandleFunc("/responder/alerts/{alertID}/forward", responder.Forward).Methods(http.MethodPost)
	responderAPI.HandleFunc("/responder/alerts/{alertID}/progress", responder.Progress).Methods(http.MethodPost)
	responderAPI.HandleFunc("/responder/alerts/{alertID}/resolve", responder.Resolve).Methods(http.MethodPost)
	responderAPI.HandleFunc("/responder/alerts/{alertID}/critical", responder.MarkCritical).Methods(http.MethodPost)
	responderAPI.HandleFunc("/responder/alerts/{alertID}/status", responder.Status).Methods(http.MethodGet)

	return router
}
