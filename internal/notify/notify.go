// Package notify delivers user-facing notifications: reminder alerts,
// emergency updates and speech relayed to the user's device.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Notification kinds.
const (
	KindMedicationReminder = "medication.reminder"
	KindRefillAlert        = "medication.refill"
	KindEmergencyActivated = "emergency.activated"
	KindEmergencyContact   = "emergency.contact"
	KindEmergencyCancelled = "emergency.cancelled"
	KindEmergencyShare     = "emergency.share"
	KindSpeechSpeak        = "speech.speak"
	KindSpeechCancel       = "speech.cancel"
)

// Notification is one message for one user. TTL is how long the client
// should keep it on screen; zero means until dismissed.
type Notification struct {
	UserID string            `json:"userId"`
	Kind   string            `json:"kind"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	TTL    time.Duration     `json:"ttl"`
	Data   map[string]string `json:"data,omitempty"`
	SentAt time.Time         `json:"sentAt"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log. It is the fallback when no
// transport is configured.
type LogNotifier struct {
	Log *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	l.Log.Info("notification",
		zap.String("user_id", n.UserID),
		zap.String("kind", n.Kind),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.Duration("ttl", n.TTL),
	)
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var err error
	for _, nt := range m {
		err = multierr.Append(err, nt.Notify(ctx, n))
	}
	return err
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns the recorded notifications in order.
func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Kinds returns the kinds of the recorded notifications in order.
func (r *Recorder) Kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.sent))
	for i, n := range r.sent {
		kinds[i] = n.Kind
	}
	return kinds
}

// Count returns how many notifications of kind were recorded.
func (r *Recorder) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for _, n := range r.sent {
		if n.Kind == kind {
			c++
		}
	}
	return c
}
