package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlh-tonga/meds/internal/metar"
	"github.com/jlh-tonga/meds/internal/storage"
)

func newObservation(station string, submitted time.Time) *storage.Observation {
	return &storage.Observation{
		ObsType:       "METAR",
		StationID:     station,
		ObsTime:       "2501Z",
		WindDirection: "090",
		WindSpeed:     "10",
		Visibility:    "9999",
		Temperature:   "28",
		DewPoint:      "24",
		QNH:           "1012",
		SubmittedAt:   submitted,
	}
}

func TestSQLiteObservationStore(t *testing.T) {
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	store := storage.NewSQLiteObservationStore(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 25, 1, 0, 0, 0, time.UTC)

	first := newObservation("NFTF", base)
	second := newObservation("NFFN", base.Add(time.Minute))
	second.Remarks = "NOSIG"

	t.Run("create assigns id", func(t *testing.T) {
		require.NoError(t, store.CreateObservation(ctx, first))
		require.NoError(t, store.CreateObservation(ctx, second))
		assert.NotEmpty(t, first.ID)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("get", func(t *testing.T) {
		got, err := store.GetObservation(ctx, second.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "NFFN", got.StationID)
		assert.Equal(t, "NOSIG", got.Remarks)
		assert.False(t, got.Notified)
		assert.Nil(t, got.NotifiedAt)
		assert.True(t, base.Add(time.Minute).Equal(got.SubmittedAt))
	})

	t.Run("get missing returns nil", func(t *testing.T) {
		got, err := store.GetObservation(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list in submission order", func(t *testing.T) {
		list, err := store.ListObservations(ctx, storage.ObservationFilter{})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, first.ID, list[0].ID)
		assert.Equal(t, second.ID, list[1].ID)

		list, err = store.ListObservations(ctx, storage.ObservationFilter{StationID: "NFFN"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, second.ID, list[0].ID)

		list, err = store.ListObservations(ctx, storage.ObservationFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("mark notified", func(t *testing.T) {
		at := base.Add(5 * time.Minute)
		n, err := store.MarkNotified(ctx, at, first.ID, "does-not-exist")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := store.GetObservation(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, got.Notified)
		require.NotNil(t, got.NotifiedAt)
		assert.True(t, at.Equal(*got.NotifiedAt))

		pending, err := store.ListObservations(ctx, storage.ObservationFilter{PendingOnly: true})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, second.ID, pending[0].ID)
	})

	t.Run("mark notified with no ids", func(t *testing.T) {
		n, err := store.MarkNotified(ctx, base)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestObservation_RecordRoundTrip(t *testing.T) {
	obs := newObservation("NFTF", time.Now())
	obs.Remarks = "RMK"

	r := obs.Record()
	assert.True(t, metar.Validate(r).Valid())
	assert.Equal(t, "NFTF", r.StationID())

	back := storage.ObservationFromRecord(r)
	assert.Equal(t, obs.QNH, back.QNH)
	assert.Equal(t, "RMK", back.Remarks)
	assert.Empty(t, back.ID)
}
