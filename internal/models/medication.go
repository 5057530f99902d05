package models

import (
	"fmt"
	"time"
)

// MedicationRoute is how a medication is administered.
type MedicationRoute string

const (
	RouteOral      MedicationRoute = "oral"
	RouteInjection MedicationRoute = "injection"
	RouteTopical   MedicationRoute = "topical"
	RouteInhaled   MedicationRoute = "inhaled"
	RouteOther     MedicationRoute = "other"
)

func (r MedicationRoute) Valid() bool {
	switch r {
	case RouteOral, RouteInjection, RouteTopical, RouteInhaled, RouteOther:
		return true
	}
	return false
}

// MedicationCategory separates prescriptions from OTC products and supplements.
type MedicationCategory string

const (
	CategoryPrescription MedicationCategory = "prescription"
	CategoryOTC          MedicationCategory = "over-the-counter"
	CategorySupplement   MedicationCategory = "supplement"
)

func (c MedicationCategory) Valid() bool {
	switch c {
	case CategoryPrescription, CategoryOTC, CategorySupplement:
		return true
	}
	return false
}

// Medication is a tracked medication.
type Medication struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	GenericName      string             `json:"genericName,omitempty"`
	Dosage           string             `json:"dosage"`
	Strength         string             `json:"strength"`
	Frequency        string             `json:"frequency"`
	Route            MedicationRoute    `json:"route"`
	PrescribedBy     string             `json:"prescribedBy"`
	PrescribedDate   string             `json:"prescribedDate"`
	StartDate        string             `json:"startDate"`
	EndDate          string             `json:"endDate,omitempty"`
	RefillsRemaining int                `json:"refillsRemaining"`
	TotalRefills     int                `json:"totalRefills"`
	Instructions     string             `json:"instructions"`
	SideEffects      []string           `json:"sideEffects,omitempty"`
	IsActive         bool               `json:"isActive"`
	PharmacyID       string             `json:"pharmacyId,omitempty"`
	ReminderTimes    []string           `json:"reminderTimes"`
	Category         MedicationCategory `json:"category"`
	NDC              string             `json:"ndc,omitempty"`
	Quantity         int                `json:"quantity"`
	DaysSupply       int                `json:"daysSupply"`
	LastFilledAt     *time.Time         `json:"lastFilledAt,omitempty"`
}

// MedicationPatch carries the fields to merge into a medication; nil means unchanged.
type MedicationPatch struct {
	Name             *string             `json:"name,omitempty"`
	GenericName      *string             `json:"genericName,omitempty"`
	Dosage           *string             `json:"dosage,omitempty"`
	Strength         *string             `json:"strength,omitempty"`
	Frequency        *string             `json:"frequency,omitempty"`
	Route            *MedicationRoute    `json:"route,omitempty"`
	PrescribedBy     *string             `json:"prescribedBy,omitempty"`
	EndDate          *string             `json:"endDate,omitempty"`
	RefillsRemaining *int                `json:"refillsRemaining,omitempty"`
	TotalRefills     *int                `json:"totalRefills,omitempty"`
	Instructions     *string             `json:"instructions,omitempty"`
	SideEffects      []string            `json:"sideEffects,omitempty"`
	IsActive         *bool               `json:"isActive,omitempty"`
	PharmacyID       *string             `json:"pharmacyId,omitempty"`
	ReminderTimes    []string            `json:"reminderTimes,omitempty"`
	Category         *MedicationCategory `json:"category,omitempty"`
	Quantity         *int                `json:"quantity,omitempty"`
	DaysSupply       *int                `json:"daysSupply,omitempty"`
}

// Apply merges the patch into m.
func (p MedicationPatch) Apply(m *Medication) {
	setString(&m.Name, p.Name)
	setString(&m.GenericName, p.GenericName)
	setString(&m.Dosage, p.Dosage)
	setString(&m.Strength, p.Strength)
	setString(&m.Frequency, p.Frequency)
	setString(&m.PrescribedBy, p.PrescribedBy)
	setString(&m.EndDate, p.EndDate)
	setString(&m.Instructions, p.Instructions)
	setString(&m.PharmacyID, p.PharmacyID)
	if p.Route != nil {
		m.Route = *p.Route
	}
	if p.RefillsRemaining != nil {
		m.RefillsRemaining = *p.RefillsRemaining
	}
	if p.TotalRefills != nil {
		m.TotalRefills = *p.TotalRefills
	}
	if p.SideEffects != nil {
		m.SideEffects = append([]string(nil), p.SideEffects...)
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
	}
	if p.ReminderTimes != nil {
		m.ReminderTimes = append([]string(nil), p.ReminderTimes...)
	}
	if p.Category != nil {
		m.Category = *p.Category
	}
	if p.Quantity != nil {
		m.Quantity = *p.Quantity
	}
	if p.DaysSupply != nil {
		m.DaysSupply = *p.DaysSupply
	}
}

// Pharmacy is where refills are requested.
type Pharmacy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Hours       string `json:"hours"`
	IsPreferred bool   `json:"isPreferred"`
}

// PharmacyPatch carries the fields to merge into a pharmacy; nil means unchanged.
type PharmacyPatch struct {
	Name        *string `json:"name,omitempty"`
	Address     *string `json:"address,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Hours       *string `json:"hours,omitempty"`
	IsPreferred *bool   `json:"isPreferred,omitempty"`
}

// Apply merges the patch into ph.
func (p PharmacyPatch) Apply(ph *Pharmacy) {
	setString(&ph.Name, p.Name)
	setString(&ph.Address, p.Address)
	setString(&ph.Phone, p.Phone)
	setString(&ph.Hours, p.Hours)
	if p.IsPreferred != nil {
		ph.IsPreferred = *p.IsPreferred
	}
}

// InteractionSeverity grades a drug interaction.
type InteractionSeverity string

const (
	SeverityMinor    InteractionSeverity = "minor"
	SeverityModerate InteractionSeverity = "moderate"
	SeverityMajor    InteractionSeverity = "major"
)

// DrugInteraction is one row of the static interaction table.
type DrugInteraction struct {
	Medication1    string              `json:"medication1"`
	Medication2    string              `json:"medication2"`
	Severity       InteractionSeverity `json:"severity"`
	Description    string              `json:"description"`
	Recommendation string              `json:"recommendation"`
}

// MedicationReminder is one scheduled dose of a medication on a given day.
type MedicationReminder struct {
	ID             string     `json:"id"`
	MedicationID   string     `json:"medicationId"`
	MedicationName string     `json:"medicationName"`
	Time           string     `json:"time"`
	DueAt          time.Time  `json:"dueAt"`
	Dosage         string     `json:"dosage"`
	IsCompleted    bool       `json:"isCompleted"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// Date is the calendar day of the dose.
func (r MedicationReminder) Date() string {
	return r.DueAt.Format("2006-01-02")
}

// ReminderID builds the stable id of a dose.
func ReminderID(medicationID, clock string, day time.Time) string {
	return fmt.Sprintf("%s-%s-%s", medicationID, clock, day.Format("2006-01-02"))
}

// RefillPriority buckets a refill alert.
type RefillPriority string

const (
	PriorityLow    RefillPriority = "low"
	PriorityMedium RefillPriority = "medium"
	PriorityHigh   RefillPriority = "high"
)

// Rank orders priorities, higher is more urgent.
func (p RefillPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// RefillAlert warns that a medication is running low on refills.
type RefillAlert struct {
	ID               string         `json:"id"`
	MedicationID     string         `json:"medicationId"`
	MedicationName   string         `json:"medicationName"`
	RefillsRemaining int            `json:"refillsRemaining"`
	DaysUntilEmpty   int            `json:"daysUntilEmpty"`
	Priority         RefillPriority `json:"priority"`
	Pharmacy         *Pharmacy      `json:"pharmacy,omitempty"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
