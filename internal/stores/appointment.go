package stores

import (
	"sort"
	"sync"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/models"

	"go.uber.org/zap"
)

// AppointmentStore keeps a user's appointments. Appointments are never
// removed; cancelling only changes their status.
type AppointmentStore struct {
	mu      sync.RWMutex
	items   []models.Appointment
	nextID  int
	doctors *DoctorDirectory
	now     func() time.Time
	loc     *time.Location
	log     *zap.Logger
}

// NewAppointmentStore creates a store holding seed. doctors backs Book and may be nil.
func NewAppointmentStore(seed []models.Appointment, doctors *DoctorDirectory, opts Options) *AppointmentStore {
	opts = opts.withDefaults()
	s := &AppointmentStore{
		doctors: doctors,
		now:     opts.Now,
		loc:     opts.Location,
		log:     opts.Log.Named("appointments"),
		nextID:  1,
	}
	for _, a := range seed {
		if a.ID >= s.nextID {
			s.nextID = a.ID + 1
		}
		s.items = append(s.items, a)
	}
	return s
}

// Add stores an appointment. A zero id is replaced with the next free id and a
// missing status defaults to pending.
func (s *AppointmentStore) Add(a models.Appointment) (models.Appointment, error) {
	if a.ScheduledAt.IsZero() {
		return models.Appointment{}, apperr.Validation("appointment needs a scheduled time")
	}
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	if !a.Status.Valid() {
		return models.Appointment{}, apperr.Validation("unknown appointment status %q", a.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == 0 {
		a.ID = s.nextID
	} else if s.indexLocked(a.ID) >= 0 {
		return models.Appointment{}, apperr.Conflict("appointment %d already exists", a.ID)
	}
	if a.ID >= s.nextID {
		s.nextID = a.ID + 1
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.items = append(s.items, a)
	s.log.Debug("appointment added", zap.Int("id", a.ID), zap.Time("scheduled_at", a.ScheduledAt))
	return a, nil
}

// Book creates a confirmed appointment with a directory doctor.
func (s *AppointmentStore) Book(doctorID int, b models.Booking) (models.Appointment, error) {
	if s.doctors == nil {
		return models.Appointment{}, apperr.Unsupported("doctor directory is not configured")
	}
	doc, err := s.doctors.Get(doctorID)
	if err != nil {
		return models.Appointment{}, err
	}
	if b.Reason == "" {
		return models.Appointment{}, apperr.Validation("a reason for the visit is required")
	}
	at, err := models.ParseSchedule(b.Date, b.Time, s.loc)
	if err != nil {
		return models.Appointment{}, apperr.Wrap(apperr.KindValidation, err, "invalid appointment slot")
	}
	return s.Add(models.Appointment{
		Doctor:          doc.Ref(),
		ScheduledAt:     at,
		Reason:          b.Reason,
		Notes:           b.Notes,
		Status:          models.StatusConfirmed,
		Location:        doc.Location,
		ConsultationFee: doc.ConsultationFee,
		PatientName:     b.PatientName,
		PatientPhone:    b.PatientPhone,
		PatientEmail:    b.PatientEmail,
	})
}

// Update merges patch into the appointment with the given id.
func (s *AppointmentStore) Update(id int, patch models.AppointmentPatch) (models.Appointment, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return models.Appointment{}, apperr.Validation("unknown appointment status %q", *patch.Status)
	}
	if patch.ScheduledAt != nil && patch.ScheduledAt.IsZero() {
		return models.Appointment{}, apperr.Validation("appointment needs a scheduled time")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return models.Appointment{}, apperr.NotFound("appointment %d not found", id)
	}
	patch.Apply(&s.items[i])
	return s.items[i], nil
}

// Cancel marks the appointment as cancelled.
func (s *AppointmentStore) Cancel(id int) (models.Appointment, error) {
	status := models.StatusCancelled
	a, err := s.Update(id, models.AppointmentPatch{Status: &status})
	if err == nil {
		s.log.Info("appointment cancelled", zap.Int("id", id))
	}
	return a, err
}

// Get returns one appointment.
func (s *AppointmentStore) Get(id int) (models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return models.Appointment{}, apperr.NotFound("appointment %d not found", id)
	}
	return s.items[i], nil
}

// List returns all appointments in insertion order.
func (s *AppointmentStore) List() []models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Appointment{}, s.items...)
}

// Upcoming returns appointments scheduled after now that are not cancelled,
// soonest first.
func (s *AppointmentStore) Upcoming() []models.Appointment {
	now := s.now()
	out := s.filter(func(a models.Appointment) bool {
		return a.ScheduledAt.After(now) && a.Status != models.StatusCancelled
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

// Past returns appointments whose time has elapsed or that are completed,
// most recent first.
func (s *AppointmentStore) Past() []models.Appointment {
	now := s.now()
	out := s.filter(func(a models.Appointment) bool {
		return !a.ScheduledAt.After(now) || a.Status == models.StatusCompleted
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out
}

func (s *AppointmentStore) filter(keep func(models.Appointment) bool) []models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Appointment{}
	for _, a := range s.items {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s *AppointmentStore) indexLocked(id int) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
