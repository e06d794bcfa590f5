package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jlh-tonga/meds/internal/metar"
	"github.com/jlh-tonga/meds/internal/notification"
	"github.com/jlh-tonga/meds/internal/observability"
	"github.com/jlh-tonga/meds/internal/storage"
	"github.com/jlh-tonga/meds/internal/storage/mocks"
)

type captureTransport struct {
	msgs []notification.Message
	err  error
}

func (c *captureTransport) Name() string { return "capture" }

func (c *captureTransport) Send(_ context.Context, msg notification.Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

type notificationFixture struct {
	svc       NotificationService
	obs       *mocks.MockObservationStore
	log       *mocks.MockNotificationStore
	transport *captureTransport
}

func newNotificationFixture(t *testing.T) *notificationFixture {
	t.Helper()
	tr := &captureTransport{}
	d, err := notification.NewDispatcher(notification.DispatcherConfig{
		Transport:         tr,
		DefaultRecipients: []string{"regi@jlh-tonga.com", "reggy.hingano@gmail.com"},
		Format:            notification.FormatPlain,
		Logger:            discardLogger(),
	})
	require.NoError(t, err)

	f := &notificationFixture{
		obs:       new(mocks.MockObservationStore),
		log:       new(mocks.MockNotificationStore),
		transport: tr,
	}
	f.svc = NewNotificationService(NotificationServiceConfig{
		Dispatcher:   d,
		Observations: f.obs,
		Log:          f.log,
		Logger:       discardLogger(),
		Metrics:      observability.NewMetricsForTesting(),
		Clock:        clockwork.NewFakeClockAt(testNow),
	})
	return f
}

func storedObservation(id, station string) *storage.Observation {
	fields := validFields()
	fields["station_id"] = station
	obs := storage.ObservationFromRecord(metar.RecordFromAny(fields))
	obs.ID = id
	return obs
}

// ---------------------------------------------------------------------------
// SendReport
// ---------------------------------------------------------------------------

func TestSendReport_MarksStoredObservations(t *testing.T) {
	f := newNotificationFixture(t)
	f.obs.On("GetObservation", mock.Anything, "a").Return(storedObservation("a", "NFTF"), nil)
	f.obs.On("GetObservation", mock.Anything, "b").Return(storedObservation("b", "NFFN"), nil)
	f.obs.On("MarkNotified", mock.Anything, testNow, []string{"a", "b"}).Return(2, nil)

	res, err := f.svc.SendReport(context.Background(), SendRequest{
		Header:         "SANT31 NFTF 250100",
		ObservationIDs: []string{"a", "b"},
	})

	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	require.Len(t, f.transport.msgs, 1)
	assert.Equal(t,
		"SANT31 NFTF 250100\nMETAR NFTF 250100Z 09010KT 9999 28/24 Q1012\nMETAR NFFN 250100Z 09010KT 9999 28/24 Q1012",
		f.transport.msgs[0].Body)
	f.obs.AssertExpectations(t)
}

func TestSendReport_MixedItemsKeepOrder(t *testing.T) {
	f := newNotificationFixture(t)
	f.obs.On("GetObservation", mock.Anything, "a").Return(storedObservation("a", "NFTF"), nil)
	f.obs.On("MarkNotified", mock.Anything, testNow, []string{"a"}).Return(1, nil)

	inline := metar.RecordFromAny(validFields()).With(metar.FieldStationID, "NFNA")
	res, err := f.svc.SendReport(context.Background(), SendRequest{
		ObservationIDs: []string{"a"},
		Records:        []metar.Record{inline},
		MetarList:      "METAR NFFN 250100Z 00000KT CAVOK 27/22 Q1011\n\n",
		Recipients:     []string{"ops@example.com"},
	})

	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, []string{"ops@example.com"}, res.Recipients)
	assert.Equal(t, []string{"a"}, res.Notified)
	assert.Equal(t,
		"METAR NFTF 250100Z 09010KT 9999 28/24 Q1012\nMETAR NFNA 250100Z 09010KT 9999 28/24 Q1012\nMETAR NFFN 250100Z 00000KT CAVOK 27/22 Q1011",
		f.transport.msgs[0].Body)
}

func TestSendReport_UnknownObservation(t *testing.T) {
	f := newNotificationFixture(t)
	f.obs.On("GetObservation", mock.Anything, "missing").Return(nil, nil)

	_, err := f.svc.SendReport(context.Background(), SendRequest{ObservationIDs: []string{"missing"}})

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Empty(t, f.transport.msgs)
}

func TestSendReport_FailureDoesNotMark(t *testing.T) {
	f := newNotificationFixture(t)
	f.transport.err = errors.New("SMTP down")
	f.obs.On("GetObservation", mock.Anything, "a").Return(storedObservation("a", "NFTF"), nil)

	res, err := f.svc.SendReport(context.Background(), SendRequest{ObservationIDs: []string{"a"}})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "SMTP down")
	f.obs.AssertNotCalled(t, "MarkNotified", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendReport_MarkErrorKeepsSuccess(t *testing.T) {
	f := newNotificationFixture(t)
	f.obs.On("GetObservation", mock.Anything, "a").Return(storedObservation("a", "NFTF"), nil)
	f.obs.On("MarkNotified", mock.Anything, testNow, []string{"a"}).Return(0, errors.New("locked"))

	res, err := f.svc.SendReport(context.Background(), SendRequest{ObservationIDs: []string{"a"}})

	require.NoError(t, err)
	assert.True(t, res.Success)
}

// ---------------------------------------------------------------------------
// SendPending
// ---------------------------------------------------------------------------

func TestSendPending_NothingPending(t *testing.T) {
	f := newNotificationFixture(t)
	f.obs.On("ListObservations", mock.Anything, storage.ObservationFilter{PendingOnly: true}).
		Return([]*storage.Observation{}, nil)

	res, err := f.svc.SendPending(context.Background(), "")

	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, f.transport.msgs)
}

func TestSendPending(t *testing.T) {
	f := newNotificationFixture(t)
	f.obs.On("ListObservations", mock.Anything, storage.ObservationFilter{PendingOnly: true}).
		Return([]*storage.Observation{storedObservation("a", "NFTF"), storedObservation("b", "NFFN")}, nil)
	f.obs.On("MarkNotified", mock.Anything, testNow, []string{"a", "b"}).Return(2, nil)

	res, err := f.svc.SendPending(context.Background(), "SANT31 NFTF 250100")

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"a", "b"}, res.Notified)
	f.obs.AssertExpectations(t)
}

// ---------------------------------------------------------------------------
// TestNotification / ListLog
// ---------------------------------------------------------------------------

func TestTestNotification(t *testing.T) {
	f := newNotificationFixture(t)

	res := f.svc.TestNotification(context.Background(), []string{"ops@example.com"})

	require.True(t, res.Success)
	require.Len(t, f.transport.msgs, 1)
	assert.Equal(t, TestMessageLine, f.transport.msgs[0].Body)
	assert.Equal(t, []string{"ops@example.com"}, f.transport.msgs[0].To)
}

func TestListLog(t *testing.T) {
	f := newNotificationFixture(t)
	f.log.On("ListNotifications", mock.Anything, 10).
		Return([]storage.NotificationLogEntry{{ID: 1, Status: "sent"}}, nil)

	entries, err := f.svc.ListLog(context.Background(), 10)

	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListLog_Error(t *testing.T) {
	f := newNotificationFixture(t)
	f.log.On("ListNotifications", mock.Anything, 0).Return(nil, errors.New("db error"))

	_, err := f.svc.ListLog(context.Background(), 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing notification log")
}

// cancelingTransport accepts the message and then cancels the caller's
// context, as happens when an HTTP client disconnects after delivery.
type cancelingTransport struct {
	cancel context.CancelFunc
}

func (c *cancelingTransport) Name() string { return "canceling" }

func (c *cancelingTransport) Send(_ context.Context, _ notification.Message) error {
	c.cancel()
	return nil
}

func TestSendPending_MarksNotifiedAfterCallerCancels(t *testing.T) {
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := storage.NewSQLiteObservationStore(db)

	obs := storedObservation("", "NFTF")
	require.NoError(t, store.CreateObservation(context.Background(), obs))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d, err := notification.NewDispatcher(notification.DispatcherConfig{
		Transport:         &cancelingTransport{cancel: cancel},
		DefaultRecipients: []string{"regi@jlh-tonga.com"},
		Format:            notification.FormatPlain,
		Logger:            discardLogger(),
	})
	require.NoError(t, err)
	svc := NewNotificationService(NotificationServiceConfig{
		Dispatcher:   d,
		Observations: store,
		Logger:       discardLogger(),
		Clock:        clockwork.NewFakeClockAt(testNow),
	})

	res, err := svc.SendPending(ctx, "SANT31 NFTF 250100")
	require.NoError(t, err)
	require.NotNil(t, res)
	require.True(t, res.Success, res.Message)
	require.Error(t, ctx.Err())

	got, err := store.GetObservation(context.Background(), obs.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Notified)

	pending, err := store.ListObservations(context.Background(), storage.ObservationFilter{PendingOnly: true})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSendReport_MalformedMetarListIsRejected(t *testing.T) {
	f := newNotificationFixture(t)

	res, err := f.svc.SendReport(context.Background(), SendRequest{
		Records:   []metar.Record{metar.RecordFromAny(validFields())},
		MetarList: "METAR NFFN 250100Z 00000KT CAVOK 27/22 Q1011\nMETAR NFFN 250100Z 00000KT CAVOK 27/22",
	})

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, notification.StateRenderFailed, res.State)
	assert.Equal(t, []string{"qnh"}, res.MissingFields["#3"])
	assert.Empty(t, f.transport.msgs)
	f.obs.AssertNotCalled(t, "MarkNotified", mock.Anything, mock.Anything, mock.Anything)
}
