package stores

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/models"

	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

// MedicationStore keeps medications, pharmacies, dose reminders and refill alerts.
//
// Reminders are indexed per medication and materialised one day at a time: the
// first read on a new day creates that day's doses, and every medication
// mutation resyncs only that medication's doses for today. Reminder ids are
// stable, so completion survives edits. Completed doses dropped by a pause or
// a removed clock time are parked in taken and restored if the same dose
// comes back the same day.
type MedicationStore struct {
	mu           sync.RWMutex
	meds         []models.Medication
	pharmacies   []models.Pharmacy
	reminders    map[string]models.MedicationReminder
	byMed        map[string][]string
	alerts       map[string]models.RefillAlert
	taken        map[string]models.MedicationReminder
	days         map[string]bool
	interactions []models.DrugInteraction
	now          func() time.Time
	loc          *time.Location
	log          *zap.Logger
}

// MedicationSeed is the initial content of a MedicationStore.
type MedicationSeed struct {
	Medications  []models.Medication
	Pharmacies   []models.Pharmacy
	Interactions []models.DrugInteraction
}

// NewMedicationStore creates a store from seed. Invalid seed medications are
// skipped and logged.
func NewMedicationStore(seed MedicationSeed, opts Options) *MedicationStore {
	opts = opts.withDefaults()
	s := &MedicationStore{
		reminders:    map[string]models.MedicationReminder{},
		byMed:        map[string][]string{},
		alerts:       map[string]models.RefillAlert{},
		taken:        map[string]models.MedicationReminder{},
		days:         map[string]bool{},
		interactions: append([]models.DrugInteraction(nil), seed.Interactions...),
		now:          opts.Now,
		loc:          opts.Location,
		log:          opts.Log.Named("medications"),
	}
	for _, p := range seed.Pharmacies {
		if p.ID == "" {
			p.ID = newID()
		}
		s.pharmacies = append(s.pharmacies, p)
	}
	for _, m := range seed.Medications {
		if _, err := s.AddMedication(m); err != nil {
			s.log.Warn("skipping seed medication", zap.String("name", m.Name), zap.Error(err))
		}
	}
	return s
}

// Medications returns all medications in insertion order.
func (s *MedicationStore) Medications() []models.Medication {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Medication, len(s.meds))
	for i, m := range s.meds {
		out[i] = cloneMedication(m)
	}
	return out
}

// Medication returns one medication.
func (s *MedicationStore) Medication(id string) (models.Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.medIndexLocked(id)
	if i < 0 {
		return models.Medication{}, apperr.NotFound("medication %s not found", id)
	}
	return cloneMedication(s.meds[i]), nil
}

// AddMedication validates and stores m, then materialises its doses for today.
func (s *MedicationStore) AddMedication(m models.Medication) (models.Medication, error) {
	m = cloneMedication(m)
	if m.Route == "" {
		m.Route = models.RouteOral
	}
	if m.Category == "" {
		m.Category = models.CategoryPrescription
	}
	times, err := normalizeClockTimes(m.ReminderTimes)
	if err != nil {
		return models.Medication{}, err
	}
	m.ReminderTimes = times
	if err := validateMedication(m); err != nil {
		return models.Medication{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = newID()
	} else if s.medIndexLocked(m.ID) >= 0 {
		return models.Medication{}, apperr.Conflict("medication %s already exists", m.ID)
	}
	if m.PharmacyID != "" && s.pharmacyIndexLocked(m.PharmacyID) < 0 {
		return models.Medication{}, apperr.NotFound("pharmacy %s not found", m.PharmacyID)
	}
	s.meds = append(s.meds, m)
	s.syncLocked(m)
	s.log.Info("medication added", zap.String("id", m.ID), zap.String("name", m.Name))
	return cloneMedication(m), nil
}

// UpdateMedication merges patch into the medication with the given id.
func (s *MedicationStore) UpdateMedication(id string, patch models.MedicationPatch) (models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.medIndexLocked(id)
	if i < 0 {
		return models.Medication{}, apperr.NotFound("medication %s not found", id)
	}
	m := cloneMedication(s.meds[i])
	patch.Apply(&m)
	times, err := normalizeClockTimes(m.ReminderTimes)
	if err != nil {
		return models.Medication{}, err
	}
	m.ReminderTimes = times
	if err := validateMedication(m); err != nil {
		return models.Medication{}, err
	}
	if m.PharmacyID != "" && s.pharmacyIndexLocked(m.PharmacyID) < 0 {
		return models.Medication{}, apperr.NotFound("pharmacy %s not found", m.PharmacyID)
	}
	s.meds[i] = m
	s.syncLocked(m)
	return cloneMedication(m), nil
}

// ToggleActive flips the active flag of a medication.
func (s *MedicationStore) ToggleActive(id string) (models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.medIndexLocked(id)
	if i < 0 {
		return models.Medication{}, apperr.NotFound("medication %s not found", id)
	}
	s.meds[i].IsActive = !s.meds[i].IsActive
	s.syncLocked(s.meds[i])
	return cloneMedication(s.meds[i]), nil
}

// DeleteMedication removes a medication together with its reminders and alert.
func (s *MedicationStore) DeleteMedication(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.medIndexLocked(id)
	if i < 0 {
		return apperr.NotFound("medication %s not found", id)
	}
	s.meds = append(s.meds[:i], s.meds[i+1:]...)
	for _, rid := range s.byMed[id] {
		delete(s.reminders, rid)
	}
	delete(s.byMed, id)
	delete(s.alerts, id)
	for rid, r := range s.taken {
		if r.MedicationID == id {
			delete(s.taken, rid)
		}
	}
	s.log.Info("medication deleted", zap.String("id", id))
	return nil
}

// Pharmacies returns all pharmacies.
func (s *MedicationStore) Pharmacies() []models.Pharmacy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Pharmacy{}, s.pharmacies...)
}

// AddPharmacy stores p. Adding a preferred pharmacy while another one is
// preferred is a conflict; use SetPreferredPharmacy to switch.
func (s *MedicationStore) AddPharmacy(p models.Pharmacy) (models.Pharmacy, error) {
	if strings.TrimSpace(p.Name) == "" {
		return models.Pharmacy{}, apperr.Validation("pharmacy name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = newID()
	} else if s.pharmacyIndexLocked(p.ID) >= 0 {
		return models.Pharmacy{}, apperr.Conflict("pharmacy %s already exists", p.ID)
	}
	if p.IsPreferred {
		if cur, ok := s.preferredLocked(); ok {
			return models.Pharmacy{}, apperr.Conflict("%s is already the preferred pharmacy", cur.Name)
		}
	}
	s.pharmacies = append(s.pharmacies, p)
	return p, nil
}

// UpdatePharmacy merges patch into the pharmacy with the given id.
func (s *MedicationStore) UpdatePharmacy(id string, patch models.PharmacyPatch) (models.Pharmacy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.pharmacyIndexLocked(id)
	if i < 0 {
		return models.Pharmacy{}, apperr.NotFound("pharmacy %s not found", id)
	}
	p := s.pharmacies[i]
	patch.Apply(&p)
	if strings.TrimSpace(p.Name) == "" {
		return models.Pharmacy{}, apperr.Validation("pharmacy name is required")
	}
	if p.IsPreferred {
		if cur, ok := s.preferredLocked(); ok && cur.ID != id {
			return models.Pharmacy{}, apperr.Conflict("%s is already the preferred pharmacy", cur.Name)
		}
	}
	s.pharmacies[i] = p
	return p, nil
}

// SetPreferredPharmacy makes id the only preferred pharmacy.
func (s *MedicationStore) SetPreferredPharmacy(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pharmacyIndexLocked(id) < 0 {
		return apperr.NotFound("pharmacy %s not found", id)
	}
	for i := range s.pharmacies {
		s.pharmacies[i].IsPreferred = s.pharmacies[i].ID == id
	}
	return nil
}

// MarkReminderCompleted records that a dose was taken.
func (s *MedicationStore) MarkReminderCompleted(id, notes string) (models.MedicationReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureTodayLocked()
	r, ok := s.reminders[id]
	if !ok {
		return models.MedicationReminder{}, apperr.NotFound("reminder %s not found", id)
	}
	now := s.now()
	r.IsCompleted = true
	r.CompletedAt = &now
	r.Notes = notes
	s.reminders[id] = r
	return cloneReminder(r), nil
}

// TodaysReminders returns today's doses ordered by time.
func (s *MedicationStore) TodaysReminders() []models.MedicationReminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.today().Format(dayLayout)
	s.ensureTodayLocked()
	return s.remindersLocked(func(r models.MedicationReminder) bool {
		return r.Date() == today
	})
}

// UpcomingReminders returns today's doses still ahead of now and not taken.
func (s *MedicationStore) UpcomingReminders() []models.MedicationReminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	today := s.today().Format(dayLayout)
	s.ensureTodayLocked()
	return s.remindersLocked(func(r models.MedicationReminder) bool {
		return r.Date() == today && r.DueAt.After(now) && !r.IsCompleted
	})
}

// Reminders returns every materialised dose ordered by due time.
func (s *MedicationStore) Reminders() []models.MedicationReminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureTodayLocked()
	return s.remindersLocked(func(models.MedicationReminder) bool { return true })
}

// CheckInteractions returns the known interactions between the given
// medications. Pairs match in either order and names match case-insensitively.
func (s *MedicationStore) CheckInteractions(ids []string) ([]models.DrugInteraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := map[string]bool{}
	for _, id := range ids {
		i := s.medIndexLocked(id)
		if i < 0 {
			return nil, apperr.NotFound("medication %s not found", id)
		}
		names[strings.ToLower(s.meds[i].Name)] = true
	}

	out := []models.DrugInteraction{}
	for _, in := range s.interactions {
		if names[strings.ToLower(in.Medication1)] && names[strings.ToLower(in.Medication2)] {
			out = append(out, in)
		}
	}
	return out, nil
}

// Interactions returns the reference interaction table.
func (s *MedicationStore) Interactions() []models.DrugInteraction {
	return append([]models.DrugInteraction{}, s.interactions...)
}

// RequestRefill uses one refill of a medication at a pharmacy. An empty
// pharmacyID selects the medication's own or the preferred pharmacy.
func (s *MedicationStore) RequestRefill(medicationID, pharmacyID string) (models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.medIndexLocked(medicationID)
	if i < 0 {
		return models.Medication{}, apperr.NotFound("medication %s not found", medicationID)
	}
	m := s.meds[i]
	pharmacy, err := s.refillPharmacyLocked(m, pharmacyID)
	if err != nil {
		return models.Medication{}, err
	}
	if m.RefillsRemaining <= 0 {
		return models.Medication{}, apperr.Conflict("no refills remaining for %s", m.Name)
	}

	now := s.now()
	m.RefillsRemaining--
	m.LastFilledAt = &now
	s.meds[i] = m
	s.syncLocked(m)
	s.log.Info("refill requested",
		zap.String("medication_id", m.ID),
		zap.String("pharmacy_id", pharmacy.ID),
		zap.Int("refills_remaining", m.RefillsRemaining),
	)
	return cloneMedication(m), nil
}

// RefillAlerts returns the current alerts, most urgent first.
func (s *MedicationStore) RefillAlerts() []models.RefillAlert {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureTodayLocked()
	out := make([]models.RefillAlert, 0, len(s.alerts))
	for _, a := range s.alerts {
		i := s.medIndexLocked(a.MedicationID)
		if i >= 0 {
			if p, ok := s.alertPharmacyLocked(s.meds[i]); ok {
				a.Pharmacy = &p
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank(); ri != rj {
			return ri > rj
		}
		if out[i].DaysUntilEmpty != out[j].DaysUntilEmpty {
			return out[i].DaysUntilEmpty < out[j].DaysUntilEmpty
		}
		return out[i].MedicationName < out[j].MedicationName
	})
	return out
}

// AdherenceRate is the share of materialised doses taken, in percent, for one
// medication or, when medicationID is empty, for all. It is 100 when there are
// no doses.
func (s *MedicationStore) AdherenceRate(medicationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureTodayLocked()
	if medicationID != "" && s.medIndexLocked(medicationID) < 0 {
		return 0, apperr.NotFound("medication %s not found", medicationID)
	}
	total, completed := 0, 0
	for _, r := range s.reminders {
		if medicationID != "" && r.MedicationID != medicationID {
			continue
		}
		total++
		if r.IsCompleted {
			completed++
		}
	}
	return adherence(completed, total), nil
}

// MissedDoses returns doses not taken whose day lies within the last days days.
func (s *MedicationStore) MissedDoses(days int) ([]models.MedicationReminder, error) {
	if days < 0 {
		return nil, apperr.Validation("days must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureTodayLocked()
	cutoff := s.today().AddDate(0, 0, -days)
	return s.remindersLocked(func(r models.MedicationReminder) bool {
		return !r.IsCompleted && !r.DueAt.Before(cutoff)
	}), nil
}

func adherence(completed, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

func (s *MedicationStore) today() time.Time {
	return startOfDay(s.now().In(s.loc))
}

// ensureTodayLocked materialises today's doses for every active medication
// the first time a day is seen, and refreshes alerts since supply counts
// down per day.
func (s *MedicationStore) ensureTodayLocked() {
	key := s.today().Format(dayLayout)
	if s.days[key] {
		return
	}
	s.days[key] = true
	// parked doses belong to an earlier day and can no longer come back
	clear(s.taken)
	for _, m := range s.meds {
		s.syncRemindersLocked(m)
		s.syncAlertLocked(m)
	}
}

func (s *MedicationStore) syncLocked(m models.Medication) {
	s.ensureTodayLocked()
	s.syncRemindersLocked(m)
	s.syncAlertLocked(m)
}

// syncRemindersLocked makes m's doses for today match its active flag and
// clock times. Existing doses keep their completion state.
func (s *MedicationStore) syncRemindersLocked(m models.Medication) {
	day := s.today()
	dayKey := day.Format(dayLayout)

	want := map[string]string{}
	if m.IsActive {
		for _, clock := range m.ReminderTimes {
			want[models.ReminderID(m.ID, clock, day)] = clock
		}
	}

	var kept []string
	for _, rid := range s.byMed[m.ID] {
		r, ok := s.reminders[rid]
		if !ok {
			continue
		}
		if r.Date() == dayKey {
			if _, wanted := want[rid]; !wanted {
				if r.IsCompleted {
					s.taken[rid] = r
				}
				delete(s.reminders, rid)
				continue
			}
			r.MedicationName = m.Name
			r.Dosage = m.Dosage
			s.reminders[rid] = r
			delete(want, rid)
		}
		kept = append(kept, rid)
	}

	for rid, clock := range want {
		due, _ := time.ParseInLocation(dayLayout+" 15:04", dayKey+" "+clock, s.loc)
		r := models.MedicationReminder{
			ID:             rid,
			MedicationID:   m.ID,
			MedicationName: m.Name,
			Time:           clock,
			DueAt:          due,
			Dosage:         m.Dosage,
		}
		if prev, ok := s.taken[rid]; ok {
			r.IsCompleted = true
			r.CompletedAt = prev.CompletedAt
			r.Notes = prev.Notes
			delete(s.taken, rid)
		}
		s.reminders[rid] = r
		kept = append(kept, rid)
	}

	if len(kept) == 0 {
		delete(s.byMed, m.ID)
		return
	}
	s.byMed[m.ID] = kept
}

func (s *MedicationStore) syncAlertLocked(m models.Medication) {
	if !m.IsActive || m.RefillsRemaining > 2 {
		delete(s.alerts, m.ID)
		return
	}
	days := s.daysUntilEmpty(m)
	priority := models.PriorityLow
	switch {
	case days <= 3:
		priority = models.PriorityHigh
	case days <= 7:
		priority = models.PriorityMedium
	}
	s.alerts[m.ID] = models.RefillAlert{
		ID:               "alert-" + m.ID,
		MedicationID:     m.ID,
		MedicationName:   m.Name,
		RefillsRemaining: m.RefillsRemaining,
		DaysUntilEmpty:   days,
		Priority:         priority,
	}
}

// daysUntilEmpty counts down the days supply from the last fill, or from the
// start date when the medication was never refilled here.
func (s *MedicationStore) daysUntilEmpty(m models.Medication) int {
	var from time.Time
	switch {
	case m.LastFilledAt != nil:
		from = m.LastFilledAt.In(s.loc)
	case m.StartDate != "":
		t, err := time.ParseInLocation(dayLayout, m.StartDate, s.loc)
		if err != nil {
			return m.DaysSupply
		}
		from = t
	default:
		return m.DaysSupply
	}
	elapsed := calendarDays(from, s.today())
	if elapsed < 0 {
		elapsed = 0
	}
	left := m.DaysSupply - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// calendarDays counts the date changes from a to b, ignoring the wall clock,
// so days shortened or stretched by DST still count as one.
func calendarDays(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func (s *MedicationStore) remindersLocked(keep func(models.MedicationReminder) bool) []models.MedicationReminder {
	out := []models.MedicationReminder{}
	for _, r := range s.reminders {
		if keep(r) {
			out = append(out, cloneReminder(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		return out[i].MedicationName < out[j].MedicationName
	})
	return out
}

func (s *MedicationStore) refillPharmacyLocked(m models.Medication, pharmacyID string) (models.Pharmacy, error) {
	if pharmacyID != "" {
		i := s.pharmacyIndexLocked(pharmacyID)
		if i < 0 {
			return models.Pharmacy{}, apperr.NotFound("pharmacy %s not found", pharmacyID)
		}
		return s.pharmacies[i], nil
	}
	if p, ok := s.alertPharmacyLocked(m); ok {
		return p, nil
	}
	return models.Pharmacy{}, apperr.Validation("no pharmacy given and no preferred pharmacy set")
}

func (s *MedicationStore) alertPharmacyLocked(m models.Medication) (models.Pharmacy, bool) {
	if m.PharmacyID != "" {
		if i := s.pharmacyIndexLocked(m.PharmacyID); i >= 0 {
			return s.pharmacies[i], true
		}
	}
	return s.preferredLocked()
}

func (s *MedicationStore) preferredLocked() (models.Pharmacy, bool) {
	for _, p := range s.pharmacies {
		if p.IsPreferred {
			return p, true
		}
	}
	return models.Pharmacy{}, false
}

func (s *MedicationStore) medIndexLocked(id string) int {
	for i := range s.meds {
		if s.meds[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *MedicationStore) pharmacyIndexLocked(id string) int {
	for i := range s.pharmacies {
		if s.pharmacies[i].ID == id {
			return i
		}
	}
	return -1
}

func validateMedication(m models.Medication) error {
	switch {
	case strings.TrimSpace(m.Name) == "":
		return apperr.Validation("medication name is required")
	case strings.TrimSpace(m.Dosage) == "":
		return apperr.Validation("dosage is required")
	case strings.TrimSpace(m.Frequency) == "":
		return apperr.Validation("frequency is required")
	case !m.Route.Valid():
		return apperr.Validation("unknown route %q", m.Route)
	case !m.Category.Valid():
		return apperr.Validation("unknown category %q", m.Category)
	case m.RefillsRemaining < 0 || m.TotalRefills < 0:
		return apperr.Validation("refill counts must not be negative")
	case m.Quantity < 0 || m.DaysSupply < 0:
		return apperr.Validation("quantity and days supply must not be negative")
	}
	return nil
}

// normalizeClockTimes parses HH:MM clock times, rewrites them zero-padded and
// rejects duplicates.
func normalizeClockTimes(times []string) ([]string, error) {
	out := make([]string, 0, len(times))
	seen := map[string]bool{}
	for _, raw := range times {
		t, err := time.Parse("15:04", strings.TrimSpace(raw))
		if err != nil {
			return nil, apperr.Validation("invalid reminder time %q: want HH:MM", raw)
		}
		clock := t.Format("15:04")
		if seen[clock] {
			return nil, apperr.Validation("duplicate reminder time %s", clock)
		}
		seen[clock] = true
		out = append(out, clock)
	}
	sort.Strings(out)
	return out, nil
}

func cloneMedication(m models.Medication) models.Medication {
	m.SideEffects = cloneStrings(m.SideEffects)
	m.ReminderTimes = cloneStrings(m.ReminderTimes)
	if m.LastFilledAt != nil {
		t := *m.LastFilledAt
		m.LastFilledAt = &t
	}
	return m
}

func cloneReminder(r models.MedicationReminder) models.MedicationReminder {
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		r.CompletedAt = &t
	}
	return r
}
