package service

import (
	"time"

	"github.com/jlh-tonga/meds/internal/notification"
	"github.com/jlh-tonga/meds/internal/storage"
)

// EventPublisher is the sink for observation events. It shares the
// dispatcher's contract so a single eventbus carries both streams.
type EventPublisher = notification.EventPublisher

// publishSaved emits EventObservationSaved for obs. A nil publisher is a no-op.
func publishSaved(p EventPublisher, obs *storage.Observation) {
	if p == nil {
		return
	}
	p.Publish(EventObservationSaved, map[string]string{
		"id":           obs.ID,
		"station_id":   obs.StationID,
		"obs_time":     obs.ObsTime,
		"submitted_at": obs.SubmittedAt.Format(time.RFC3339),
	})
}
