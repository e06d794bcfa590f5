package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jlh-tonga/meds/internal/metar"
	"github.com/jlh-tonga/meds/internal/service"
)

const errInvalidJSONBody = "invalid JSON body"

// Server holds all dependencies for the REST API handlers.
type Server struct {
	observationSvc  service.ObservationService
	notificationSvc service.NotificationService
	logger          *slog.Logger
}

// New creates a new API Server backed by the provided services.
func New(observationSvc service.ObservationService, notificationSvc service.NotificationService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		observationSvc:  observationSvc,
		notificationSvc: notificationSvc,
		logger:          logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Get("/ping", s.handlePing)
	r.Get("/version", s.handleVersion)

	// Observations
	r.Post("/observations", s.handleSaveObservation)
	r.Get("/observations", s.handleListObservations)
	r.Get("/observations/{id}", s.handleGetObservation)
	r.Get("/observations/{id}/metar", s.handleRenderObservation)

	// Reports
	r.Post("/metar/send", s.handleSendReport)

	// Delivery log
	r.Get("/notifications/log", s.handleListNotificationLog)
	r.Post("/notifications/test", s.handleTestNotification)
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps typed service and domain errors to HTTP responses.
// Anything unrecognised is logged and reported as a 500 with fallback.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var (
		notFound   *service.NotFoundError
		validation *service.ValidationError
		missing    *metar.ValidationError
		check      *metar.CheckError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &missing):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":          err.Error(),
			"missing_fields": missing.Missing,
		})
	case errors.As(err, &check):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    err.Error(),
			"problems": check.Problems,
		})
	default:
		s.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (s *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}
