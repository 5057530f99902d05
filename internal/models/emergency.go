package models

import "time"

// EmergencyContact is a person to notify during an emergency.
type EmergencyContact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	IsPrimary    bool   `json:"isPrimary"`
}

// EmergencyContactPatch carries the fields to merge into a contact; nil means unchanged.
type EmergencyContactPatch struct {
	Name         *string `json:"name,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	IsPrimary    *bool   `json:"isPrimary,omitempty"`
}

func (p EmergencyContactPatch) Apply(c *EmergencyContact) {
	setString(&c.Name, p.Name)
	setString(&c.Relationship, p.Relationship)
	setString(&c.Phone, p.Phone)
	if p.IsPrimary != nil {
		c.IsPrimary = *p.IsPrimary
	}
}

// MedicalInfo is the single emergency medical card of a user.
type MedicalInfo struct {
	BloodType      string   `json:"bloodType"`
	Allergies      []string `json:"allergies"`
	Medications    []string `json:"medications"`
	Conditions     []string `json:"conditions"`
	EmergencyNotes string   `json:"emergencyNotes"`
}

// MedicalInfoPatch is a shallow merge: a non-nil list replaces the whole list.
type MedicalInfoPatch struct {
	BloodType      *string  `json:"bloodType,omitempty"`
	Allergies      []string `json:"allergies,omitempty"`
	Medications    []string `json:"medications,omitempty"`
	Conditions     []string `json:"conditions,omitempty"`
	EmergencyNotes *string  `json:"emergencyNotes,omitempty"`
}

func (p MedicalInfoPatch) Apply(m *MedicalInfo) {
	setString(&m.BloodType, p.BloodType)
	setString(&m.EmergencyNotes, p.EmergencyNotes)
	if p.Allergies != nil {
		m.Allergies = append([]string(nil), p.Allergies...)
	}
	if p.Medications != nil {
		m.Medications = append([]string(nil), p.Medications...)
	}
	if p.Conditions != nil {
		m.Conditions = append([]string(nil), p.Conditions...)
	}
}

// Location is a geographic fix.
type Location struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Accuracy   float64   `json:"accuracy,omitempty"`
	ReportedAt time.Time `json:"reportedAt"`
}

// EmergencyStatus is the observable emergency state.
type EmergencyStatus struct {
	Active      bool       `json:"active"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
	Location    *Location  `json:"location,omitempty"`
}

// ShareMethod records how a location was shared.
type ShareMethod string

const (
	ShareNative    ShareMethod = "share"
	ShareClipboard ShareMethod = "clipboard"
)

// ShareResult is what the caller shows after sharing a location.
type ShareResult struct {
	Method ShareMethod `json:"method"`
	URL    string      `json:"url"`
	Text   string      `json:"text"`
}
