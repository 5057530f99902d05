package stores

import (
	"time"

	"healthbridge-server/internal/models"
)

// Seed is the initial content of a new workspace.
type Seed struct {
	Appointments  []models.Appointment
	Medications   MedicationSeed
	Emergency     EmergencySeed
	VoiceSettings models.VoiceSettings
}

// DefaultDoctors is the bookable doctor directory.
func DefaultDoctors() []models.Doctor {
	return []models.Doctor{
		{ID: 1, Name: "Dr. Sarah Chen", Specialty: "Cardiology", Rating: 4.9, Reviews: 127, Location: "Downtown Medical Center", Distance: "0.8 miles", Availability: "Available today", ConsultationFee: "$75", Verified: true, Languages: []string{"English", "Mandarin"}, Experience: "15+ years"},
		{ID: 2, Name: "Dr. Michael Rodriguez", Specialty: "Dermatology", Rating: 4.8, Reviews: 89, Location: "Westside Clinic", Distance: "1.2 miles", Availability: "Available tomorrow", ConsultationFee: "$85", Verified: true, Languages: []string{"English", "Spanish"}, Experience: "12+ years"},
		{ID: 3, Name: "Dr. Emily Johnson", Specialty: "Pediatrics", Rating: 4.9, Reviews: 156, Location: "Children's Medical Center", Distance: "2.1 miles", Availability: "Available today", ConsultationFee: "$65", Verified: true, Languages: []string{"English"}, Experience: "18+ years"},
		{ID: 4, Name: "Dr. James Wilson", Specialty: "Ophthalmology", Rating: 4.7, Reviews: 203, Location: "Eye Care Specialists", Distance: "1.5 miles", Availability: "Available this week", ConsultationFee: "$95", Verified: true, Languages: []string{"English"}, Experience: "20+ years"},
		{ID: 5, Name: "Dr. Lisa Thompson", Specialty: "Neurology", Rating: 4.8, Reviews: 98, Location: "Brain & Spine Institute", Distance: "2.3 miles", Availability: "Next week", ConsultationFee: "$120", Verified: true, Languages: []string{"English", "French"}, Experience: "20+ years"},
	}
}

// DefaultInteractions is the reference drug interaction table.
func DefaultInteractions() []models.DrugInteraction {
	return []models.DrugInteraction{
		{
			Medication1:    "Warfarin",
			Medication2:    "Aspirin",
			Severity:       models.SeverityMajor,
			Description:    "Increased risk of bleeding when taken together",
			Recommendation: "Monitor closely for signs of bleeding. Consider alternative medications.",
		},
		{
			Medication1:    "Lisinopril",
			Medication2:    "Potassium",
			Severity:       models.SeverityModerate,
			Description:    "May cause elevated potassium levels",
			Recommendation: "Monitor potassium levels regularly",
		},
		{
			Medication1:    "Metformin",
			Medication2:    "Alcohol",
			Severity:       models.SeverityModerate,
			Description:    "Increased risk of lactic acidosis",
			Recommendation: "Limit alcohol consumption while taking metformin",
		},
	}
}

// DefaultSeed is the demo content of a new workspace, with fill dates and the
// sample visit placed relative to now.
func DefaultSeed(now time.Time) Seed {
	lisinoprilFill := now.AddDate(0, 0, -10)
	metforminFill := now.AddDate(0, 0, -25)
	y, m, d := now.Date()
	lastVisit := time.Date(y, m, d-14, 10, 0, 0, 0, now.Location())

	return Seed{
		Appointments: []models.Appointment{{
			ID:              1,
			Doctor:          models.DoctorRef{ID: 1, Name: "Dr. Sarah Chen", Specialty: "Cardiology"},
			ScheduledAt:     lastVisit,
			Reason:          "Blood pressure follow-up",
			Status:          models.StatusCompleted,
			Location:        "Downtown Medical Center",
			ConsultationFee: "$75",
			CreatedAt:       lastVisit.AddDate(0, 0, -7),
		}},
		Medications: MedicationSeed{
			Pharmacies: []models.Pharmacy{
				{ID: "1", Name: "CVS Pharmacy", Address: "123 Main St, Downtown", Phone: "(555) 123-4567", Hours: "8 AM - 10 PM", IsPreferred: true},
				{ID: "2", Name: "Walgreens", Address: "456 Oak Ave, Midtown", Phone: "(555) 987-6543", Hours: "7 AM - 11 PM"},
			},
			Medications: []models.Medication{
				{
					ID:               "1",
					Name:             "Lisinopril",
					GenericName:      "Lisinopril",
					Dosage:           "10mg",
					Strength:         "10mg",
					Frequency:        "Once daily",
					Route:            models.RouteOral,
					PrescribedBy:     "Dr. Sarah Chen",
					PrescribedDate:   "2024-01-15",
					StartDate:        "2024-01-16",
					RefillsRemaining: 3,
					TotalRefills:     5,
					Instructions:     "Take with or without food",
					SideEffects:      []string{"Dizziness", "Dry cough", "Fatigue"},
					IsActive:         true,
					PharmacyID:       "1",
					ReminderTimes:    []string{"08:00"},
					Category:         models.CategoryPrescription,
					Quantity:         30,
					DaysSupply:       30,
					LastFilledAt:     &lisinoprilFill,
				},
				{
					ID:               "2",
					Name:             "Metformin",
					GenericName:      "Metformin HCl",
					Dosage:           "500mg",
					Strength:         "500mg",
					Frequency:        "Twice daily",
					Route:            models.RouteOral,
					PrescribedBy:     "Dr. Michael Rodriguez",
					PrescribedDate:   "2024-02-01",
					StartDate:        "2024-02-01",
					RefillsRemaining: 1,
					TotalRefills:     5,
					Instructions:     "Take with meals to reduce stomach upset",
					SideEffects:      []string{"Nausea", "Diarrhea", "Metallic taste"},
					IsActive:         true,
					PharmacyID:       "1",
					ReminderTimes:    []string{"08:00", "20:00"},
					Category:         models.CategoryPrescription,
					Quantity:         60,
					DaysSupply:       30,
					LastFilledAt:     &metforminFill,
				},
			},
			Interactions: DefaultInteractions(),
		},
		Emergency: EmergencySeed{
			Contacts: []models.EmergencyContact{
				{ID: "1", Name: "Jane Doe", Relationship: "Spouse", Phone: "+1 (555) 987-6543", IsPrimary: true},
				{ID: "2", Name: "Dr. Smith", Relationship: "Primary Care Doctor", Phone: "+1 (555) 123-4567"},
			},
			MedicalInfo: models.MedicalInfo{
				BloodType:      "O+",
				Allergies:      []string{"Penicillin", "Shellfish"},
				Medications:    []string{"Lisinopril 10mg", "Metformin 500mg"},
				Conditions:     []string{"Hypertension", "Type 2 Diabetes"},
				EmergencyNotes: "Patient has history of heart palpitations. Prefers local hospital.",
			},
		},
		VoiceSettings: models.DefaultVoiceSettings(),
	}
}
