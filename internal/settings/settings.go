// Package settings persists small per-user preference blobs: medication
// notification preferences and the UI language.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"healthbridge-server/internal/apperr"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	notificationsKey = "medication-notifications"
	languageKey      = "language"

	// DefaultLanguage is used until a user picks one.
	DefaultLanguage = "en"
)

// Methods are the delivery channels a user enabled.
type Methods struct {
	Browser bool `json:"browser"`
	Email   bool `json:"email"`
	SMS     bool `json:"sms"`
}

// Timing holds reminder offsets.
type Timing struct {
	BeforeDose     int `json:"beforeDose"`     // minutes before a dose
	MissedDose     int `json:"missedDose"`     // minutes after a dose
	RefillReminder int `json:"refillReminder"` // days before running out
}

// QuietHours is a daily window without notifications. Start may be later
// than End, in which case the window spans midnight.
type QuietHours struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// NotificationPreferences controls medication reminder notifications.
type NotificationPreferences struct {
	Enabled    bool       `json:"enabled"`
	Methods    Methods    `json:"methods"`
	Timing     Timing     `json:"timing"`
	QuietHours QuietHours `json:"quietHours"`
}

// DefaultNotificationPreferences is what a user gets before saving anything.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		Enabled: true,
		Methods: Methods{Browser: true},
		Timing:  Timing{BeforeDose: 15, MissedDose: 30, RefillReminder: 3},
		QuietHours: QuietHours{
			Enabled: true,
			Start:   "22:00",
			End:     "07:00",
		},
	}
}

// Validate checks offsets and quiet hour clock times.
func (p NotificationPreferences) Validate() error {
	if p.Timing.BeforeDose < 0 || p.Timing.MissedDose < 0 || p.Timing.RefillReminder < 0 {
		return apperr.Validation("notification timing must not be negative")
	}
	for _, clock := range []string{p.QuietHours.Start, p.QuietHours.End} {
		if _, err := time.Parse("15:04", clock); err != nil {
			return apperr.Validation("invalid quiet hours time %q: want HH:MM", clock)
		}
	}
	return nil
}

// InQuietHours reports whether t falls inside the quiet window, bounds
// included.
func (p NotificationPreferences) InQuietHours(t time.Time) bool {
	if !p.QuietHours.Enabled {
		return false
	}
	clock := t.Format("15:04")
	start, end := p.QuietHours.Start, p.QuietHours.End
	if start <= end {
		return clock >= start && clock <= end
	}
	return clock >= start || clock <= end
}

// Service reads and writes settings for users.
type Service struct {
	kv  KV
	log *zap.Logger
}

func NewService(kv KV, log *zap.Logger) *Service {
	return &Service{kv: kv, log: log.Named("settings")}
}

func key(userID, name string) string {
	return fmt.Sprintf("settings:%s:%s", userID, name)
}

// NotificationPreferences returns the saved preferences or the defaults.
func (s *Service) NotificationPreferences(ctx context.Context, userID string) (NotificationPreferences, error) {
	raw, err := s.kv.Get(ctx, key(userID, notificationsKey))
	if errors.Is(err, ErrMiss) {
		return DefaultNotificationPreferences(), nil
	}
	if err != nil {
		return NotificationPreferences{}, fmt.Errorf("loading notification preferences: %w", err)
	}
	var p NotificationPreferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.log.Warn("corrupt notification preferences, using defaults", zap.String("user_id", userID), zap.Error(err))
		return DefaultNotificationPreferences(), nil
	}
	return p, nil
}

// SaveNotificationPreferences validates and stores p.
func (s *Service) SaveNotificationPreferences(ctx context.Context, userID string, p NotificationPreferences) (NotificationPreferences, error) {
	if err := p.Validate(); err != nil {
		return NotificationPreferences{}, err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return NotificationPreferences{}, err
	}
	if err := s.kv.Set(ctx, key(userID, notificationsKey), string(raw)); err != nil {
		return NotificationPreferences{}, fmt.Errorf("saving notification preferences: %w", err)
	}
	return p, nil
}

// Language returns the user's language tag, DefaultLanguage when unset.
func (s *Service) Language(ctx context.Context, userID string) (string, error) {
	lang, err := s.kv.Get(ctx, key(userID, languageKey))
	if errors.Is(err, ErrMiss) {
		return DefaultLanguage, nil
	}
	if err != nil {
		return "", fmt.Errorf("loading language: %w", err)
	}
	return lang, nil
}

// SetLanguage stores a canonicalised BCP 47 tag.
func (s *Service) SetLanguage(ctx context.Context, userID, lang string) (string, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return "", apperr.Validation("invalid language %q", lang)
	}
	canonical := tag.String()
	if err := s.kv.Set(ctx, key(userID, languageKey), canonical); err != nil {
		return "", fmt.Errorf("saving language: %w", err)
	}
	return canonical, nil
}

// Reset removes every setting of the user.
func (s *Service) Reset(ctx context.Context, userID string) error {
	for _, name := range []string{notificationsKey, languageKey} {
		if err := s.kv.Delete(ctx, key(userID, name)); err != nil {
			return fmt.Errorf("resetting %s: %w", name, err)
		}
	}
	return nil
}
