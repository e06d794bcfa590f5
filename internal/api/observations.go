package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jlh-tonga/meds/internal/storage"
)

// decodeObject reads a JSON object keeping numbers in their literal form so
// that a submitted 0 stays "0".
func decodeObject(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// handleSaveObservation validates and stores one observation.
// Responds {"status":"success","name":<id>} on success.
func (s *Server) handleSaveObservation(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeObject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	obs, err := s.observationSvc.Save(r.Context(), fields)
	if err != nil {
		s.writeServiceError(w, err, "failed to save observation")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "success", "name": obs.ID})
}

// handleListObservations returns stored observations.
// Query: pending=true, station=<id>, limit=N.
func (s *Server) handleListObservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.ObservationFilter{StationID: q.Get("station")}
	if p := q.Get("pending"); p != "" {
		pending, err := strconv.ParseBool(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "pending must be true or false")
			return
		}
		filter.PendingOnly = pending
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	list, err := s.observationSvc.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, err, "failed to list observations")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetObservation(w http.ResponseWriter, r *http.Request) {
	obs, err := s.observationSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, err, "failed to load observation")
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

// handleRenderObservation returns the METAR line of a stored observation.
func (s *Server) handleRenderObservation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	line, err := s.observationSvc.RenderLine(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err, "failed to render observation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "metar": line})
}

// isJSONString reports whether raw holds a JSON string.
func isJSONString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}
