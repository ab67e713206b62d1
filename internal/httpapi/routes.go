package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"medcare/internal/logger"
)

// NewRouter wires every route onto a gorilla/mux router.
func NewRouter(h *Handlers, log *logger.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(log))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/consultations", h.CreateConsultation).Methods(http.MethodPost)
	api.HandleFunc("/consultations", h.ListConsultations).Methods(http.MethodGet)
	api.HandleFunc("/lab-results", h.CreateLabResult).Methods(http.MethodPost)
	api.HandleFunc("/lab-results", h.ListLabResults).Methods(http.MethodGet)
	api.HandleFunc("/history", h.History).Methods(http.MethodGet)
	api.HandleFunc("/state", h.State).Methods(http.MethodGet)
	api.HandleFunc("/state", h.DismissNotice).Methods(http.MethodDelete)

	api.HandleFunc("/settings/language", h.GetLanguage).Methods(http.MethodGet)
	api.HandleFunc("/settings/language", h.SetLanguage).Methods(http.MethodPut)
	api.HandleFunc("/settings/accessibility", h.GetAccessibility).Methods(http.MethodGet)
	api.HandleFunc("/settings/accessibility", h.PutAccessibility).Methods(http.MethodPut)
	api.HandleFunc("/settings/accessibility", h.PatchAccessibility).Methods(http.MethodPatch)

	api.HandleFunc("/languages", h.Languages).Methods(http.MethodGet)
	api.HandleFunc("/translations/{code}", h.Translations).Methods(http.MethodGet)
	api.HandleFunc("/speak", h.Speak).Methods(http.MethodPost)
	api.HandleFunc("/license", h.License).Methods(http.MethodGet)

	r.HandleFunc("/healthCheck", h.HealthCheck).Methods(http.MethodGet)
	return r
}
