package stores

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/models"
	"healthbridge-server/internal/notify"

	"go.uber.org/zap"
)

const notifyTimeout = 10 * time.Second

// Sharer hands a location link to something outside the app.
type Sharer interface {
	Share(ctx context.Context, title, text, url string) error
}

// EmergencyTiming holds the emergency timers.
type EmergencyTiming struct {
	ContactDelay time.Duration
	AutoCancel   time.Duration
}

// EmergencyStore keeps emergency contacts, the medical card and the
// emergency state machine: inactive -> active on trigger, back to inactive on
// explicit cancel or after AutoCancel, whichever comes first.
type EmergencyStore struct {
	mu          sync.RWMutex
	userID      string
	contacts    []models.EmergencyContact
	info        models.MedicalInfo
	active      bool
	activatedAt *time.Time
	location    *models.Location
	gen         uint64
	contactT    *time.Timer
	cancelT     *time.Timer

	timing   EmergencyTiming
	locator  Locator
	sharer   Sharer
	notifier notify.Notifier
	now      func() time.Time
	log      *zap.Logger
}

// EmergencySeed is the initial content of an EmergencyStore.
type EmergencySeed struct {
	Contacts    []models.EmergencyContact
	MedicalInfo models.MedicalInfo
}

// EmergencyDeps are the collaborators of an EmergencyStore. Locator and Sharer
// may be nil.
type EmergencyDeps struct {
	UserID   string
	Locator  Locator
	Sharer   Sharer
	Notifier notify.Notifier
	Timing   EmergencyTiming
}

// NewEmergencyStore creates a store from seed.
func NewEmergencyStore(seed EmergencySeed, deps EmergencyDeps, opts Options) *EmergencyStore {
	opts = opts.withDefaults()
	s := &EmergencyStore{
		userID:   deps.UserID,
		info:     cloneMedicalInfo(seed.MedicalInfo),
		timing:   deps.Timing,
		locator:  deps.Locator,
		sharer:   deps.Sharer,
		notifier: deps.Notifier,
		now:      opts.Now,
		log:      opts.Log.Named("emergency"),
	}
	if s.notifier == nil {
		s.notifier = notify.LogNotifier{Log: s.log}
	}
	for _, c := range seed.Contacts {
		if c.ID == "" {
			c.ID = newID()
		}
		if c.IsPrimary {
			s.clearPrimaryLocked()
		}
		s.contacts = append(s.contacts, c)
	}
	return s
}

// Contacts returns the emergency contacts.
func (s *EmergencyStore) Contacts() []models.EmergencyContact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.EmergencyContact{}, s.contacts...)
}

// AddContact stores a contact. A primary contact demotes the previous one.
func (s *EmergencyStore) AddContact(c models.EmergencyContact) (models.EmergencyContact, error) {
	if err := validateContact(c); err != nil {
		return models.EmergencyContact{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = newID()
	if c.IsPrimary {
		s.clearPrimaryLocked()
	}
	s.contacts = append(s.contacts, c)
	s.log.Info("emergency contact added", zap.String("id", c.ID))
	return c, nil
}

// UpdateContact merges patch into the contact with the given id.
func (s *EmergencyStore) UpdateContact(id string, patch models.EmergencyContactPatch) (models.EmergencyContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.contactIndexLocked(id)
	if i < 0 {
		return models.EmergencyContact{}, apperr.NotFound("emergency contact %s not found", id)
	}
	c := s.contacts[i]
	patch.Apply(&c)
	if err := validateContact(c); err != nil {
		return models.EmergencyContact{}, err
	}
	if c.IsPrimary {
		s.clearPrimaryLocked()
	}
	s.contacts[i] = c
	return c, nil
}

// RemoveContact deletes a contact.
func (s *EmergencyStore) RemoveContact(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.contactIndexLocked(id)
	if i < 0 {
		return apperr.NotFound("emergency contact %s not found", id)
	}
	s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
	return nil
}

// MedicalInfo returns the medical card.
func (s *EmergencyStore) MedicalInfo() models.MedicalInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMedicalInfo(s.info)
}

// UpdateMedicalInfo shallow-merges patch into the medical card.
func (s *EmergencyStore) UpdateMedicalInfo(patch models.MedicalInfoPatch) models.MedicalInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	patch.Apply(&s.info)
	return cloneMedicalInfo(s.info)
}

// CurrentLocation asks the locator for a fix and remembers it.
func (s *EmergencyStore) CurrentLocation(ctx context.Context) (models.Location, error) {
	if s.locator == nil {
		return models.Location{}, apperr.Unsupported("geolocation is not available")
	}
	loc, err := s.locator.Locate(ctx)
	if err != nil {
		return models.Location{}, err
	}
	s.mu.Lock()
	s.location = &loc
	s.mu.Unlock()
	return loc, nil
}

// ShareLocation shares a map link to the current location. When sharing is
// unavailable or fails, the result carries clipboard text for the caller.
func (s *EmergencyStore) ShareLocation(ctx context.Context) (models.ShareResult, error) {
	loc, err := s.CurrentLocation(ctx)
	if err != nil {
		return models.ShareResult{}, err
	}
	url := MapsURL(loc)
	text := "I need help! Here is my current location:"
	if s.sharer != nil {
		err := s.sharer.Share(ctx, "My Emergency Location", text, url)
		if err == nil {
			return models.ShareResult{Method: models.ShareNative, URL: url, Text: text}, nil
		}
		s.log.Warn("share failed, falling back to clipboard", zap.Error(err))
	}
	return models.ShareResult{
		Method: models.ShareClipboard,
		URL:    url,
		Text:   "Emergency Location: " + url,
	}, nil
}

// MapsURL links to loc on a map.
func MapsURL(loc models.Location) string {
	return fmt.Sprintf("https://maps.google.com/?q=%g,%g", loc.Lat, loc.Lng)
}

// TriggerEmergency activates the emergency. The location lookup may fail
// without failing the trigger. After ContactDelay the primary contact is
// notified, and after AutoCancel the emergency cancels itself.
func (s *EmergencyStore) TriggerEmergency(ctx context.Context) (models.EmergencyStatus, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return models.EmergencyStatus{}, apperr.Conflict("an emergency is already active")
	}
	now := s.now()
	s.active = true
	s.activatedAt = &now
	s.gen++
	gen := s.gen
	s.contactT = time.AfterFunc(s.timing.ContactDelay, func() { s.notifyPrimary(gen) })
	s.cancelT = time.AfterFunc(s.timing.AutoCancel, func() { s.cancel(gen, true) })
	s.mu.Unlock()

	s.log.Warn("emergency activated", zap.String("user_id", s.userID))

	if _, err := s.CurrentLocation(ctx); err != nil {
		s.log.Warn("emergency location unavailable", zap.Error(err))
	}

	s.mu.RLock()
	current := s.active && s.gen == gen
	s.mu.RUnlock()
	if current {
		s.send(ctx, notify.Notification{
			Kind:  notify.KindEmergencyActivated,
			Title: "EMERGENCY ACTIVATED",
			Body:  "Emergency services have been notified. Help is on the way.",
		})
	}
	return s.Status(), nil
}

// CancelEmergency deactivates the emergency. Cancelling an inactive
// emergency is a no-op.
func (s *EmergencyStore) CancelEmergency() models.EmergencyStatus {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()
	s.cancel(gen, false)
	return s.Status()
}

// Status returns the emergency state.
func (s *EmergencyStore) Status() models.EmergencyStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := models.EmergencyStatus{Active: s.active}
	if s.activatedAt != nil {
		t := *s.activatedAt
		st.ActivatedAt = &t
	}
	if s.location != nil {
		l := *s.location
		st.Location = &l
	}
	return st
}

// Close stops pending timers.
func (s *EmergencyStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimersLocked()
	return nil
}

// cancel ends the emergency of generation gen. Only the first cancel of a
// generation notifies.
func (s *EmergencyStore) cancel(gen uint64, auto bool) {
	s.mu.Lock()
	if !s.active || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.gen++
	s.stopTimersLocked()
	s.mu.Unlock()

	n := notify.Notification{
		Kind:  notify.KindEmergencyCancelled,
		Title: "Emergency Cancelled",
		Body:  "Emergency alert has been cancelled.",
	}
	if auto {
		n.Title = "Emergency Auto-Cancelled"
		n.Body = fmt.Sprintf("Emergency alert has been automatically cancelled after %s.", s.timing.AutoCancel)
	}
	s.log.Info("emergency cancelled", zap.String("user_id", s.userID), zap.Bool("auto", auto))
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	s.send(ctx, n)
}

func (s *EmergencyStore) notifyPrimary(gen uint64) {
	s.mu.RLock()
	if !s.active || s.gen != gen {
		s.mu.RUnlock()
		return
	}
	var primary *models.EmergencyContact
	for i := range s.contacts {
		if s.contacts[i].IsPrimary {
			c := s.contacts[i]
			primary = &c
			break
		}
	}
	s.mu.RUnlock()
	if primary == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	s.send(ctx, notify.Notification{
		Kind:  notify.KindEmergencyContact,
		Title: "Emergency Contact Notified",
		Body:  fmt.Sprintf("%s has been notified of your emergency.", primary.Name),
		Data:  map[string]string{"contactId": primary.ID, "phone": primary.Phone},
	})
}

func (s *EmergencyStore) send(ctx context.Context, n notify.Notification) {
	n.UserID = s.userID
	n.SentAt = s.now()
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Warn("emergency notification failed", zap.String("kind", n.Kind), zap.Error(err))
	}
}

func (s *EmergencyStore) stopTimersLocked() {
	if s.contactT != nil {
		s.contactT.Stop()
		s.contactT = nil
	}
	if s.cancelT != nil {
		s.cancelT.Stop()
		s.cancelT = nil
	}
}

func (s *EmergencyStore) clearPrimaryLocked() {
	for i := range s.contacts {
		s.contacts[i].IsPrimary = false
	}
}

func (s *EmergencyStore) contactIndexLocked(id string) int {
	for i := range s.contacts {
		if s.contacts[i].ID == id {
			return i
		}
	}
	return -1
}

func validateContact(c models.EmergencyContact) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperr.Validation("contact name is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return apperr.Validation("contact phone is required")
	}
	return nil
}

func cloneMedicalInfo(m models.MedicalInfo) models.MedicalInfo {
	m.Allergies = cloneStrings(m.Allergies)
	m.Medications = cloneStrings(m.Medications)
	m.Conditions = cloneStrings(m.Conditions)
	return m
}

// ContactSharer shares a location by notifying the user's emergency contacts.
type ContactSharer struct {
	UserID   string
	Notifier notify.Notifier
}

func (c ContactSharer) Share(ctx context.Context, title, text, url string) error {
	return c.Notifier.Notify(ctx, notify.Notification{
		UserID: c.UserID,
		Kind:   notify.KindEmergencyShare,
		Title:  title,
		Body:   text + " " + url,
		Data:   map[string]string{"url": url},
	})
}
