package handlers

import (
	"context"
	"time"

	"healthbridge-server/internal/scheduler"
	"healthbridge-server/internal/settings"
	"healthbridge-server/internal/stores"

	"go.uber.org/zap"
)

// ReminderSync re-arms a user's reminder notifications after anything that
// changes today's doses or the notification preferences, and announces
// refill alerts that entered the reminder window.
type ReminderSync struct {
	Settings  *settings.Service
	Scheduler *scheduler.ReminderScheduler
	Now       func() time.Time
	Log       *zap.Logger
}

// Sync plans today's open doses of ws and hands the plan to the scheduler.
// It returns the number of armed notifications.
func (r *ReminderSync) Sync(ctx context.Context, ws *stores.Workspace) int {
	if r == nil || r.Scheduler == nil {
		return 0
	}
	prefs := settings.DefaultNotificationPreferences()
	if r.Settings != nil {
		p, err := r.Settings.NotificationPreferences(ctx, ws.UserID)
		if err != nil {
			r.Log.Warn("using default notification preferences", zap.String("user_id", ws.UserID), zap.Error(err))
		} else {
			prefs = p
		}
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	r.Scheduler.NotifyRefills(ctx, ws.UserID, ws.Medications.RefillAlerts(), prefs)
	plan := scheduler.Plan(ws.Medications.TodaysReminders(), prefs, now())
	return r.Scheduler.Reschedule(ws.UserID, plan)
}

// SyncAll re-plans every known workspace. It runs once a day so the new day's
// doses get armed without waiting for a user edit.
func (r *ReminderSync) SyncAll(ctx context.Context, reg *stores.Registry) int {
	total := 0
	reg.Each(func(ws *stores.Workspace) {
		total += r.Sync(ctx, ws)
	})
	return total
}
