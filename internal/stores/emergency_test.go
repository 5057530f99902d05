package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/models"
	"healthbridge-server/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLocator struct {
	loc models.Location
	err error
}

func (s stubLocator) Locate(context.Context) (models.Location, error) { return s.loc, s.err }

type stubSharer struct{ err error }

func (s stubSharer) Share(context.Context, string, string, string) error { return s.err }

var longTiming = EmergencyTiming{ContactDelay: time.Hour, AutoCancel: time.Hour}

func setupEmergency(t *testing.T, timing EmergencyTiming, locator Locator, sharer Sharer) (*notify.Recorder, *EmergencyStore) {
	rec := &notify.Recorder{}
	store := NewEmergencyStore(DefaultSeed(testNow).Emergency, EmergencyDeps{
		UserID:   "u1",
		Locator:  locator,
		Sharer:   sharer,
		Notifier: rec,
		Timing:   timing,
	}, testOptions(newFakeClock(testNow)))
	t.Cleanup(func() { _ = store.Close() })
	return rec, store
}

func TestEmergencyStore_TriggerThenCancel(t *testing.T) {
	rec, store := setupEmergency(t, longTiming, stubLocator{loc: models.Location{Lat: 40.7128, Lng: -74.006}}, nil)

	st, err := store.TriggerEmergency(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Active)
	require.NotNil(t, st.ActivatedAt)
	assert.Equal(t, testNow, *st.ActivatedAt)
	require.NotNil(t, st.Location)
	assert.Equal(t, 40.7128, st.Location.Lat)

	_, err = store.TriggerEmergency(context.Background())
	requireKind(t, err, apperr.KindConflict)

	assert.False(t, store.CancelEmergency().Active)
	assert.False(t, store.CancelEmergency().Active)

	assert.Equal(t, []string{notify.KindEmergencyActivated, notify.KindEmergencyCancelled}, rec.Kinds())
	assert.Equal(t, "u1", rec.Sent()[0].UserID)
}

func TestEmergencyStore_TriggerSurvivesLocationFailure(t *testing.T) {
	rec, store := setupEmergency(t, longTiming, stubLocator{err: apperr.PermissionDenied("denied")}, nil)

	st, err := store.TriggerEmergency(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Active)
	assert.Nil(t, st.Location)
	assert.Equal(t, 1, rec.Count(notify.KindEmergencyActivated))
}

func TestEmergencyStore_AutoCancelFiresOnce(t *testing.T) {
	rec, store := setupEmergency(t, EmergencyTiming{ContactDelay: time.Hour, AutoCancel: 10 * time.Millisecond}, nil, nil)

	_, err := store.TriggerEmergency(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return !store.Status().Active }, time.Second, 5*time.Millisecond)
	store.CancelEmergency()

	require.Equal(t, 1, rec.Count(notify.KindEmergencyCancelled))
	for _, n := range rec.Sent() {
		if n.Kind == notify.KindEmergencyCancelled {
			assert.Equal(t, "Emergency Auto-Cancelled", n.Title)
		}
	}
}

func TestEmergencyStore_NotifiesPrimaryContactAfterDelay(t *testing.T) {
	rec, store := setupEmergency(t, EmergencyTiming{ContactDelay: 10 * time.Millisecond, AutoCancel: time.Hour}, nil, nil)

	_, err := store.TriggerEmergency(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.Count(notify.KindEmergencyContact) == 1 }, time.Second, 5*time.Millisecond)
	var contact notify.Notification
	for _, n := range rec.Sent() {
		if n.Kind == notify.KindEmergencyContact {
			contact = n
		}
	}
	assert.Equal(t, "Jane Doe has been notified of your emergency.", contact.Body)
	assert.Equal(t, "1", contact.Data["contactId"])
}

func TestEmergencyStore_CancelBeforeContactDelay(t *testing.T) {
	rec, store := setupEmergency(t, EmergencyTiming{ContactDelay: 30 * time.Millisecond, AutoCancel: time.Hour}, nil, nil)

	_, err := store.TriggerEmergency(context.Background())
	require.NoError(t, err)
	store.CancelEmergency()

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, rec.Count(notify.KindEmergencyContact))
}

func TestEmergencyStore_ShareLocation(t *testing.T) {
	loc := stubLocator{loc: models.Location{Lat: 40.7128, Lng: -74.006}}

	_, store := setupEmergency(t, longTiming, loc, stubSharer{})
	res, err := store.ShareLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ShareNative, res.Method)
	assert.Equal(t, "https://maps.google.com/?q=40.7128,-74.006", res.URL)
	assert.Equal(t, "I need help! Here is my current location:", res.Text)

	_, store = setupEmergency(t, longTiming, loc, stubSharer{err: errors.New("share aborted")})
	res, err = store.ShareLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ShareClipboard, res.Method)
	assert.Equal(t, "Emergency Location: https://maps.google.com/?q=40.7128,-74.006", res.Text)

	_, store = setupEmergency(t, longTiming, loc, nil)
	res, err = store.ShareLocation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ShareClipboard, res.Method)

	_, store = setupEmergency(t, longTiming, nil, nil)
	_, err = store.ShareLocation(context.Background())
	requireKind(t, err, apperr.KindUnsupported)
}

func TestEmergencyStore_SinglePrimaryContact(t *testing.T) {
	_, store := setupEmergency(t, longTiming, nil, nil)

	added, err := store.AddContact(models.EmergencyContact{Name: "Bob", Relationship: "Brother", Phone: "555", IsPrimary: true})
	require.NoError(t, err)

	_, err = store.UpdateContact("2", models.EmergencyContactPatch{IsPrimary: boolPtr(true)})
	require.NoError(t, err)

	var primaries []string
	for _, c := range store.Contacts() {
		if c.IsPrimary {
			primaries = append(primaries, c.ID)
		}
	}
	assert.Equal(t, []string{"2"}, primaries)

	require.NoError(t, store.RemoveContact(added.ID))
	assert.Len(t, store.Contacts(), 2)
	requireKind(t, store.RemoveContact(added.ID), apperr.KindNotFound)

	_, err = store.AddContact(models.EmergencyContact{Name: "No phone"})
	requireKind(t, err, apperr.KindValidation)
}

func TestEmergencyStore_UpdateMedicalInfo(t *testing.T) {
	_, store := setupEmergency(t, longTiming, nil, nil)

	info := store.UpdateMedicalInfo(models.MedicalInfoPatch{
		BloodType: strPtr("A-"),
		Allergies: []string{"Latex"},
	})
	assert.Equal(t, "A-", info.BloodType)
	assert.Equal(t, []string{"Latex"}, info.Allergies)
	assert.Equal(t, []string{"Hypertension", "Type 2 Diabetes"}, info.Conditions)

	info.Conditions[0] = "changed"
	assert.Equal(t, "Hypertension", store.MedicalInfo().Conditions[0])
}

func TestDeviceLocator_Locate(t *testing.T) {
	clock := newFakeClock(testNow)
	l := NewDeviceLocator(20*time.Millisecond, time.Minute, clock.Now)

	_, err := l.Locate(context.Background())
	requireKind(t, err, apperr.KindNetwork)

	_, err = l.Report(91, 0, 5)
	requireKind(t, err, apperr.KindValidation)

	_, err = l.Report(52.52, 13.405, 5)
	require.NoError(t, err)
	got, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 52.52, got.Lat)

	clock.Advance(2 * time.Minute)
	_, err = l.Locate(context.Background())
	requireKind(t, err, apperr.KindNetwork)
}

func TestDeviceLocator_WaitsForReport(t *testing.T) {
	l := NewDeviceLocator(time.Second, time.Minute, nil)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_, _ = l.Report(1, 2, 3)
	}()
	got, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Lng)
}

func TestDeviceLocator_PermissionDenied(t *testing.T) {
	l := NewDeviceLocator(time.Second, time.Minute, nil)

	requireKind(t, l.ReportError(GeoPermissionDenied), apperr.KindPermissionDenied)
	requireKind(t, l.ReportError("weird"), apperr.KindUnsupported)
	requireKind(t, l.ReportError(GeoPermissionDenied), apperr.KindPermissionDenied)

	start := time.Now()
	_, err := l.Locate(context.Background())
	requireKind(t, err, apperr.KindPermissionDenied)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
