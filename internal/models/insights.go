package models

import "time"

// SymptomSeverity is how bad a reported symptom is.
type SymptomSeverity string

const (
	SymptomMild     SymptomSeverity = "mild"
	SymptomModerate SymptomSeverity = "moderate"
	SymptomSevere   SymptomSeverity = "severe"
)

// Score maps severity to 1..3; unknown values count as mild.
func (s SymptomSeverity) Score() int {
	switch s {
	case SymptomModerate:
		return 2
	case SymptomSevere:
		return 3
	}
	return 1
}

// Symptom is one entry of a symptom check.
type Symptom struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name" binding:"required"`
	Severity           SymptomSeverity `json:"severity"`
	Duration           string          `json:"duration"`
	Frequency          string          `json:"frequency"`
	Location           string          `json:"location,omitempty"`
	Description        string          `json:"description,omitempty"`
	AssociatedSymptoms []string        `json:"associatedSymptoms,omitempty"`
}

// Urgency grades how soon a user should seek care.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

// PossibleCondition is a scored condition match.
type PossibleCondition struct {
	Name            string   `json:"name"`
	Probability     float64  `json:"probability"`
	Description     string   `json:"description"`
	CommonSymptoms  []string `json:"commonSymptoms"`
	WhenToSeeDoctor string   `json:"whenToSeeDoctor"`
	SelfCareOptions []string `json:"selfCareOptions,omitempty"`
}

// Assessment is the classifier output for a set of symptoms.
type Assessment struct {
	PossibleConditions []PossibleCondition `json:"possibleConditions"`
	UrgencyLevel       Urgency             `json:"urgencyLevel"`
	Recommendations    []string            `json:"recommendations"`
	NextSteps          []string            `json:"nextSteps"`
	RedFlags           []string            `json:"redFlags"`
}

// SymptomAnalysis is a stored symptom check.
type SymptomAnalysis struct {
	ID         string     `json:"id"`
	Symptoms   []Symptom  `json:"symptoms"`
	Analysis   Assessment `json:"analysis"`
	Confidence float64    `json:"confidence"`
	Timestamp  time.Time  `json:"timestamp"`
}

// HealthRisk is one predicted risk.
type HealthRisk struct {
	ID              string   `json:"id"`
	RiskType        string   `json:"riskType"`
	RiskLevel       string   `json:"riskLevel"`
	Probability     int      `json:"probability"`
	Description     string   `json:"description"`
	Factors         []string `json:"factors"`
	Recommendations []string `json:"recommendations"`
	Timeframe       string   `json:"timeframe"`
	BasedOn         []string `json:"basedOn"`
}

// PersonalizedRecommendation is a suggested lifestyle or preventive action.
type PersonalizedRecommendation struct {
	ID               string   `json:"id"`
	Category         string   `json:"category"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Priority         string   `json:"priority"`
	ActionItems      []string `json:"actionItems"`
	ExpectedBenefit  string   `json:"expectedBenefit"`
	TimeToSeeResults string   `json:"timeToSeeResults"`
	BasedOn          []string `json:"basedOn"`
}

// SchedulingSuggestion is a suggested appointment slot.
type SchedulingSuggestion struct {
	ID                      string    `json:"id"`
	DoctorName              string    `json:"doctorName"`
	Specialty               string    `json:"specialty"`
	AppointmentType         string    `json:"appointmentType"`
	RecommendedAt           time.Time `json:"recommendedAt"`
	Location                string    `json:"location"`
	Urgency                 string    `json:"urgency"`
	MatchScore              int       `json:"matchScore"`
	Rating                  float64   `json:"rating"`
	EstimatedWaitTime       string    `json:"estimatedWaitTime"`
	ReasonForRecommendation string    `json:"reasonForRecommendation"`
	AvailableSlots          int       `json:"availableSlots"`
	InsuranceAccepted       bool      `json:"insuranceAccepted"`
	SuggestedTiming         string    `json:"suggestedTiming"`
	Priority                string    `json:"priority"`
	EstimatedDuration       string    `json:"estimatedDuration"`
}
