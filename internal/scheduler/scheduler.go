// Package scheduler turns today's medication doses into timed notifications.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"healthbridge-server/internal/models"
	"healthbridge-server/internal/notify"
	"healthbridge-server/internal/settings"

	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// Entry is one planned reminder notification.
type Entry struct {
	ReminderID string    `json:"reminderId"`
	NotifyAt   time.Time `json:"notifyAt"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
}

// Plan returns the notifications for reminders: each fires BeforeDose minutes
// ahead of its dose, only when that moment is still ahead of now and outside
// quiet hours. Completed doses are skipped.
func Plan(reminders []models.MedicationReminder, prefs settings.NotificationPreferences, now time.Time) []Entry {
	if !prefs.Enabled {
		return nil
	}
	lead := time.Duration(prefs.Timing.BeforeDose) * time.Minute
	var plan []Entry
	for _, r := range reminders {
		if r.IsCompleted {
			continue
		}
		at := r.DueAt.Add(-lead)
		if !at.After(now) || prefs.InQuietHours(at) {
			continue
		}
		plan = append(plan, Entry{
			ReminderID: r.ID,
			NotifyAt:   at,
			Title:      "Medication Reminder",
			Body:       fmt.Sprintf("Time to take %s of %s", r.Dosage, r.MedicationName),
		})
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].NotifyAt.Before(plan[j].NotifyAt) })
	return plan
}

// ReminderScheduler keeps one set of armed timers per user.
type ReminderScheduler struct {
	mu       sync.Mutex
	timers   map[string][]*time.Timer
	refills  map[string]string // user/alert -> day last notified
	notifier notify.Notifier
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// New creates a scheduler. ttl is how long delivered reminders stay visible.
func New(notifier notify.Notifier, ttl time.Duration, now func() time.Time, log *zap.Logger) *ReminderScheduler {
	if now == nil {
		now = time.Now
	}
	return &ReminderScheduler{
		timers:   map[string][]*time.Timer{},
		refills:  map[string]string{},
		notifier: notifier,
		ttl:      ttl,
		now:      now,
		log:      log.Named("scheduler"),
	}
}

// Reschedule replaces the user's armed timers with plan.
func (s *ReminderScheduler) Reschedule(userID string, plan []Entry) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked(userID)
	now := s.now()
	timers := make([]*time.Timer, 0, len(plan))
	for _, e := range plan {
		e := e
		timers = append(timers, time.AfterFunc(e.NotifyAt.Sub(now), func() { s.fire(userID, e) }))
	}
	if len(timers) > 0 {
		s.timers[userID] = timers
	}
	s.log.Debug("reminders scheduled", zap.String("user_id", userID), zap.Int("count", len(timers)))
	return len(timers)
}

// NotifyRefills sends a refill notification for each alert that runs out
// within the RefillReminder window. An alert is announced at most once a day.
// It returns how many notifications were sent.
func (s *ReminderScheduler) NotifyRefills(ctx context.Context, userID string, alerts []models.RefillAlert, prefs settings.NotificationPreferences) int {
	if !prefs.Enabled {
		return 0
	}
	day := s.now().Format("2006-01-02")
	var due []models.RefillAlert
	s.mu.Lock()
	for _, a := range alerts {
		if a.DaysUntilEmpty > prefs.Timing.RefillReminder {
			continue
		}
		k := userID + "/" + a.ID
		if s.refills[k] == day {
			continue
		}
		s.refills[k] = day
		due = append(due, a)
	}
	s.mu.Unlock()

	for _, a := range due {
		body := fmt.Sprintf("%s runs out in %d days, %d refills left", a.MedicationName, a.DaysUntilEmpty, a.RefillsRemaining)
		if a.Pharmacy != nil {
			body += " at " + a.Pharmacy.Name
		}
		err := s.notifier.Notify(ctx, notify.Notification{
			UserID: userID,
			Kind:   notify.KindRefillAlert,
			Title:  "Refill Reminder",
			Body:   body,
			Data:   map[string]string{"medicationId": a.MedicationID, "priority": string(a.Priority)},
			SentAt: s.now(),
		})
		if err != nil {
			s.log.Warn("refill notification failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return len(due)
}

// Pending returns how many timers are armed for the user.
func (s *ReminderScheduler) Pending(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[userID])
}

// Cancel stops the user's timers and forgets which refill alerts were
// announced, so a new session announces them again.
func (s *ReminderScheduler) Cancel(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(userID)
	for k := range s.refills {
		if strings.HasPrefix(k, userID+"/") {
			delete(s.refills, k)
		}
	}
}

// Daily calls fn shortly after every midnight in loc until the returned stop
// function is called. fn gets a context that is cancelled on stop.
func (s *ReminderScheduler) Daily(loc *time.Location, fn func(ctx context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu    sync.Mutex
		timer *time.Timer
		arm   func()
	)
	arm = func() {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		now := s.now()
		timer = time.AfterFunc(NextMidnight(now, loc).Sub(now), func() {
			s.log.Info("daily reminder replan")
			fn(ctx)
			arm()
		})
	}
	arm()
	return func() {
		cancel()
		mu.Lock()
		defer mu.Unlock()
		timer.Stop()
	}
}

// NextMidnight returns the start of the day after now in loc.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day()+1, 0, 0, 0, 0, loc)
}

// Close stops every timer.
func (s *ReminderScheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID := range s.timers {
		s.stopLocked(userID)
	}
	return nil
}

func (s *ReminderScheduler) stopLocked(userID string) {
	for _, t := range s.timers[userID] {
		t.Stop()
	}
	delete(s.timers, userID)
}

func (s *ReminderScheduler) fire(userID string, e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	err := s.notifier.Notify(ctx, notify.Notification{
		UserID: userID,
		Kind:   notify.KindMedicationReminder,
		Title:  e.Title,
		Body:   e.Body,
		TTL:    s.ttl,
		Data:   map[string]string{"reminderId": e.ReminderID},
		SentAt: s.now(),
	})
	if err != nil {
		s.log.Warn("reminder notification failed", zap.String("user_id", userID), zap.Error(err))
	}
}
