package scheduler

import (
	"context"
	"testing"
	"time"

	"healthbridge-server/internal/models"
	"healthbridge-server/internal/notify"
	"healthbridge-server/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func dose(id, clock string) models.MedicationReminder {
	due, _ := time.Parse("2006-01-02 15:04", "2026-03-10 "+clock)
	return models.MedicationReminder{ID: id, MedicationName: "Metformin", Dosage: "500mg", Time: clock, DueAt: due}
}

func TestPlan(t *testing.T) {
	prefs := settings.DefaultNotificationPreferences()
	taken := dose("taken", "18:00")
	taken.IsCompleted = true

	plan := Plan([]models.MedicationReminder{
		dose("evening", "20:00"),
		dose("past", "08:00"),
		dose("soon", "12:10"),
		dose("quiet", "22:30"),
		dose("afternoon", "15:00"),
		taken,
	}, prefs, now)

	require.Len(t, plan, 2)
	assert.Equal(t, "afternoon", plan[0].ReminderID)
	assert.Equal(t, now.Add(2*time.Hour+45*time.Minute), plan[0].NotifyAt)
	assert.Equal(t, "Time to take 500mg of Metformin", plan[0].Body)
	assert.Equal(t, "evening", plan[1].ReminderID)
}

func TestPlan_Disabled(t *testing.T) {
	prefs := settings.DefaultNotificationPreferences()
	prefs.Enabled = false
	assert.Empty(t, Plan([]models.MedicationReminder{dose("a", "20:00")}, prefs, now))
}

func TestReminderScheduler_Reschedule(t *testing.T) {
	rec := &notify.Recorder{}
	s := New(rec, 10*time.Second, nil, zap.NewNop())
	t.Cleanup(func() { _ = s.Close() })

	soon := time.Now().Add(20 * time.Millisecond)
	later := time.Now().Add(time.Hour)

	assert.Equal(t, 1, s.Reschedule("u1", []Entry{{ReminderID: "old", NotifyAt: later}}))
	assert.Equal(t, 2, s.Reschedule("u1", []Entry{
		{ReminderID: "r1", NotifyAt: soon, Title: "Medication Reminder"},
		{ReminderID: "r2", NotifyAt: later},
	}))
	assert.Equal(t, 2, s.Pending("u1"))

	require.Eventually(t, func() bool { return rec.Count(notify.KindMedicationReminder) == 1 }, time.Second, 5*time.Millisecond)
	n := rec.Sent()[0]
	assert.Equal(t, "u1", n.UserID)
	assert.Equal(t, "r1", n.Data["reminderId"])
	assert.Equal(t, 10*time.Second, n.TTL)

	s.Cancel("u1")
	assert.Zero(t, s.Pending("u1"))
}

func TestReminderScheduler_NotifyRefills(t *testing.T) {
	rec := &notify.Recorder{}
	s := New(rec, 0, func() time.Time { return now }, zap.NewNop())
	prefs := settings.DefaultNotificationPreferences()

	alerts := []models.RefillAlert{
		{ID: "a1", MedicationID: "m1", MedicationName: "Metformin", DaysUntilEmpty: 2, RefillsRemaining: 1,
			Priority: models.PriorityHigh, Pharmacy: &models.Pharmacy{Name: "CVS Pharmacy"}},
		{ID: "a2", MedicationID: "m2", MedicationName: "Lisinopril", DaysUntilEmpty: 20, RefillsRemaining: 2},
	}

	assert.Equal(t, 1, s.NotifyRefills(context.Background(), "u1", alerts, prefs))
	assert.Zero(t, s.NotifyRefills(context.Background(), "u1", alerts, prefs), "same alert twice a day")
	s.Reschedule("u1", nil)
	assert.Zero(t, s.NotifyRefills(context.Background(), "u1", alerts, prefs), "rescheduling keeps the day's announcements")

	require.Equal(t, []string{notify.KindRefillAlert}, rec.Kinds())
	n := rec.Sent()[0]
	assert.Equal(t, "Metformin runs out in 2 days, 1 refills left at CVS Pharmacy", n.Body)
	assert.Equal(t, "high", n.Data["priority"])

	s.Cancel("u1")
	assert.Equal(t, 1, s.NotifyRefills(context.Background(), "u1", alerts, prefs))

	prefs.Enabled = false
	assert.Zero(t, s.NotifyRefills(context.Background(), "u2", alerts, prefs))
}

func TestNextMidnight(t *testing.T) {
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), NextMidnight(now, time.UTC))

	east := time.FixedZone("UTC+13", 13*3600)
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, east), NextMidnight(now, east))
}

func TestReminderScheduler_Daily(t *testing.T) {
	// 50ms before midnight.
	clock := time.Date(2026, 3, 10, 23, 59, 59, 950_000_000, time.UTC)
	s := New(&notify.Recorder{}, 0, func() time.Time { return clock }, zap.NewNop())

	ran := make(chan struct{}, 1)
	stop := s.Daily(time.UTC, func(context.Context) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})
	defer stop()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("daily job did not run at midnight")
	}
}
