package models

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// DoctorRef is the denormalized doctor copy carried by an appointment.
type DoctorRef struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Appointment represents a booked visit.
type Appointment struct {
	ID              int               `json:"id"`
	Doctor          DoctorRef         `json:"doctor"`
	ScheduledAt     time.Time         `json:"scheduledAt"`
	Reason          string            `json:"reason"`
	Notes           string            `json:"notes"`
	Status          AppointmentStatus `json:"status"`
	Location        string            `json:"location"`
	ConsultationFee string            `json:"consultationFee"`
	PatientName     string            `json:"patientName"`
	PatientPhone    string            `json:"patientPhone"`
	PatientEmail    string            `json:"patientEmail"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// AppointmentPatch carries the fields to merge into an appointment; nil means unchanged.
type AppointmentPatch struct {
	ScheduledAt     *time.Time         `json:"scheduledAt,omitempty"`
	Reason          *string            `json:"reason,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	Status          *AppointmentStatus `json:"status,omitempty"`
	Location        *string            `json:"location,omitempty"`
	ConsultationFee *string            `json:"consultationFee,omitempty"`
	PatientName     *string            `json:"patientName,omitempty"`
	PatientPhone    *string            `json:"patientPhone,omitempty"`
	PatientEmail    *string            `json:"patientEmail,omitempty"`
}

// Apply merges the patch into a.
func (p AppointmentPatch) Apply(a *Appointment) {
	if p.ScheduledAt != nil {
		a.ScheduledAt = *p.ScheduledAt
	}
	if p.Reason != nil {
		a.Reason = *p.Reason
	}
	if p.Notes != nil {
		a.Notes = *p.Notes
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.ConsultationFee != nil {
		a.ConsultationFee = *p.ConsultationFee
	}
	if p.PatientName != nil {
		a.PatientName = *p.PatientName
	}
	if p.PatientPhone != nil {
		a.PatientPhone = *p.PatientPhone
	}
	if p.PatientEmail != nil {
		a.PatientEmail = *p.PatientEmail
	}
}

var clockLayouts = []string{"03:04 PM", "3:04 PM", "03:04PM", "3:04PM", "15:04"}

// ParseSchedule combines a YYYY-MM-DD date and a clock time ("09:00 AM", "9:00 PM"
// or "21:00") into a single timestamp in loc.
func ParseSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
	}
	clock = strings.ToUpper(strings.TrimSpace(clock))
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want hh:mm AM/PM or HH:MM", clock)
}

// Booking is the input of the booking flow for a directory doctor.
type Booking struct {
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time" binding:"required"`
	Reason       string `json:"reason" binding:"required"`
	Notes        string `json:"notes"`
	PatientName  string `json:"patientName"`
	PatientPhone string `json:"patientPhone"`
	PatientEmail string `json:"patientEmail" binding:"omitempty,email"`
}
