package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jlh-tonga/meds/internal/metar"
	"github.com/jlh-tonga/meds/internal/notification"
	"github.com/jlh-tonga/meds/internal/service"
	"github.com/jlh-tonga/meds/internal/storage"
)

// sendRequest is the body of POST /metar/send. Observations holds stored
// observation IDs and inline records in any mix. MetarList and
// RecipientEmail are the older single-recipient form.
type sendRequest struct {
	Header         string            `json:"header"`
	Observations   []json.RawMessage `json:"observations"`
	MetarList      string            `json:"metar_list"`
	RecipientEmail string            `json:"recipient_email"`
	Recipients     []string          `json:"recipients"`
	Format         string            `json:"format"`
}

func (req sendRequest) toService() (service.SendRequest, error) {
	format, err := notification.ParseFormat(req.Format, "")
	if err != nil {
		return service.SendRequest{}, &service.ValidationError{Field: "format", Message: err.Error()}
	}

	out := service.SendRequest{
		Header:     req.Header,
		MetarList:  req.MetarList,
		Recipients: req.Recipients,
		Format:     format,
	}
	if req.RecipientEmail != "" {
		out.Recipients = append([]string{req.RecipientEmail}, out.Recipients...)
	}

	for i, raw := range req.Observations {
		if isJSONString(raw) {
			var id string
			if err := json.Unmarshal(raw, &id); err != nil {
				return service.SendRequest{}, invalidObservation(i)
			}
			out.ObservationIDs = append(out.ObservationIDs, id)
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var fields map[string]any
		if err := dec.Decode(&fields); err != nil || fields == nil {
			return service.SendRequest{}, invalidObservation(i)
		}
		out.Records = append(out.Records, metar.RecordFromAny(fields))
	}
	return out, nil
}

func invalidObservation(i int) error {
	return &service.ValidationError{
		Field:   "observations",
		Message: fmt.Sprintf("entry %d must be an observation id or an object", i+1),
	}
}

// resultStatus picks the HTTP status for a dispatch outcome. The body always
// carries the full result.
func resultStatus(res notification.Result) int {
	switch {
	case res.Success:
		return http.StatusOK
	case res.State == notification.StateRenderFailed:
		return http.StatusBadRequest
	case res.Reason == notification.ReasonNoRecipients:
		return http.StatusBadRequest
	case res.Reason == notification.ReasonTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// handleSendReport renders the requested observations into one report and
// sends it. Stored observations are marked notified on success.
func (s *Server) handleSendReport(w http.ResponseWriter, r *http.Request) {
	var body sendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}

	req, err := body.toService()
	if err != nil {
		s.writeServiceError(w, err, "invalid send request")
		return
	}

	res, err := s.notificationSvc.SendReport(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err, "failed to send METAR report")
		return
	}
	writeJSON(w, resultStatus(res), res)
}

type testRequest struct {
	Recipients []string `json:"recipients"`
}

// handleTestNotification sends a one-line test message. The body is optional.
func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	var body testRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, errInvalidJSONBody)
		return
	}
	res := s.notificationSvc.TestNotification(r.Context(), body.Recipients)
	writeJSON(w, resultStatus(res), res)
}

// handleListNotificationLog returns recent notification delivery log entries.
// Accepts an optional ?limit=N query parameter.
func (s *Server) handleListNotificationLog(w http.ResponseWriter, r *http.Request) {
	limit := storage.DefaultNotificationLogLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.notificationSvc.ListLog(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err, "failed to list notification log")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
