package stores

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/models"

	"go.uber.org/zap"
)

// InsightsDeps are the collaborators of a HealthInsightsStore.
type InsightsDeps struct {
	Classifier SymptomClassifier
	// Delay simulates analysis latency.
	Delay time.Duration
}

// HealthInsightsStore produces symptom analyses, risk predictions,
// recommendations, scheduling suggestions and answers to health questions.
// A result whose call was overtaken by a newer call of the same kind is
// returned to its caller but not cached.
type HealthInsightsStore struct {
	mu sync.RWMutex

	analyzing    int
	analysisGen  uint64
	lastAnalysis *models.SymptomAnalysis
	history      []models.SymptomAnalysis

	risks           []models.HealthRisk
	recommendations []models.PersonalizedRecommendation
	suggestions     []models.SchedulingSuggestion

	classifier SymptomClassifier
	delay      time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// NewHealthInsightsStore creates an empty store.
func NewHealthInsightsStore(deps InsightsDeps, opts Options) *HealthInsightsStore {
	opts = opts.withDefaults()
	if deps.Classifier == nil {
		deps.Classifier = NewKeywordClassifier()
	}
	return &HealthInsightsStore{
		classifier: deps.Classifier,
		delay:      deps.Delay,
		now:        opts.Now,
		log:        opts.Log.Named("insights"),
	}
}

// IsAnalyzing reports whether a symptom analysis is running.
func (s *HealthInsightsStore) IsAnalyzing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analyzing > 0
}

// AnalyzeSymptoms classifies symptoms and records the analysis.
func (s *HealthInsightsStore) AnalyzeSymptoms(ctx context.Context, symptoms []models.Symptom) (models.SymptomAnalysis, error) {
	if len(symptoms) == 0 {
		return models.SymptomAnalysis{}, apperr.Validation("at least one symptom is required")
	}
	input := make([]models.Symptom, len(symptoms))
	for i, sym := range symptoms {
		if strings.TrimSpace(sym.Name) == "" {
			return models.SymptomAnalysis{}, apperr.Validation("symptom %d has no name", i+1)
		}
		if sym.ID == "" {
			sym.ID = newID()
		}
		if sym.Severity == "" {
			sym.Severity = models.SymptomMild
		}
		sym.AssociatedSymptoms = cloneStrings(sym.AssociatedSymptoms)
		input[i] = sym
	}

	s.mu.Lock()
	s.analyzing++
	s.analysisGen++
	gen := s.analysisGen
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.analyzing--
		s.mu.Unlock()
	}()

	if err := sleep(ctx, s.delay); err != nil {
		return models.SymptomAnalysis{}, err
	}
	assessment, err := s.classifier.Classify(ctx, input)
	if err != nil {
		return models.SymptomAnalysis{}, apperr.Wrap(apperr.KindInternal, err, "classifying symptoms")
	}

	assessment.Recommendations = []string{
		"Monitor your symptoms closely",
		"Stay hydrated and get plenty of rest",
		"Consider over-the-counter medications for symptom relief",
	}
	if assessment.UrgencyLevel == models.UrgencyHigh || assessment.UrgencyLevel == models.UrgencyEmergency {
		assessment.Recommendations = append([]string{"Seek medical attention promptly"}, assessment.Recommendations...)
	}

	top := 60.0
	if len(assessment.PossibleConditions) > 0 {
		top = assessment.PossibleConditions[0].Probability
	}
	analysis := models.SymptomAnalysis{
		ID:         newID(),
		Symptoms:   input,
		Analysis:   assessment,
		Confidence: math.Min(95, math.Max(60, top)),
		Timestamp:  s.now(),
	}

	s.mu.Lock()
	if gen == s.analysisGen {
		a := analysis
		s.lastAnalysis = &a
		s.history = append([]models.SymptomAnalysis{analysis}, s.history...)
	} else {
		s.log.Debug("discarding stale symptom analysis", zap.String("analysis_id", analysis.ID))
	}
	s.mu.Unlock()

	s.log.Info("symptoms analyzed",
		zap.Int("symptoms", len(input)),
		zap.String("urgency", string(assessment.UrgencyLevel)),
		zap.Int("conditions", len(assessment.PossibleConditions)),
	)
	return analysis, nil
}

// LastAnalysis returns the most recent cached analysis.
func (s *HealthInsightsStore) LastAnalysis() (models.SymptomAnalysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastAnalysis == nil {
		return models.SymptomAnalysis{}, false
	}
	return *s.lastAnalysis, true
}

// SymptomHistory returns cached analyses, newest first.
func (s *HealthInsightsStore) SymptomHistory() []models.SymptomAnalysis {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SymptomAnalysis{}, s.history...)
}

// AssessHealthRisks computes and caches the risk predictions.
func (s *HealthInsightsStore) AssessHealthRisks(ctx context.Context) ([]models.HealthRisk, error) {
	if err := sleep(ctx, s.delay); err != nil {
		return nil, err
	}
	risks := defaultHealthRisks()
	s.mu.Lock()
	s.risks = risks
	s.mu.Unlock()
	return append([]models.HealthRisk{}, risks...), nil
}

// HealthRisks returns the cached risk predictions.
func (s *HealthInsightsStore) HealthRisks() []models.HealthRisk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.HealthRisk{}, s.risks...)
}

// PersonalizedRecommendations computes and caches recommendations.
func (s *HealthInsightsStore) PersonalizedRecommendations(ctx context.Context) ([]models.PersonalizedRecommendation, error) {
	if err := sleep(ctx, s.delay); err != nil {
		return nil, err
	}
	recs := defaultRecommendations()
	s.mu.Lock()
	s.recommendations = recs
	s.mu.Unlock()
	return append([]models.PersonalizedRecommendation{}, recs...), nil
}

// Recommendations returns the cached recommendations.
func (s *HealthInsightsStore) Recommendations() []models.PersonalizedRecommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.PersonalizedRecommendation{}, s.recommendations...)
}

// MarkRecommendationCompleted removes a recommendation from the cache.
func (s *HealthInsightsStore) MarkRecommendationCompleted(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.recommendations {
		if r.ID == id {
			s.recommendations = append(s.recommendations[:i], s.recommendations[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("recommendation %s not found", id)
}

// SchedulingSuggestions computes and caches appointment suggestions relative
// to now.
func (s *HealthInsightsStore) SchedulingSuggestions(ctx context.Context) ([]models.SchedulingSuggestion, error) {
	if err := sleep(ctx, s.delay); err != nil {
		return nil, err
	}
	suggestions := defaultSchedulingSuggestions(s.now())
	s.mu.Lock()
	s.suggestions = suggestions
	s.mu.Unlock()
	return append([]models.SchedulingSuggestion{}, suggestions...), nil
}

// CachedSchedulingSuggestions returns the cached suggestions.
func (s *HealthInsightsStore) CachedSchedulingSuggestions() []models.SchedulingSuggestion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SchedulingSuggestion{}, s.suggestions...)
}

var healthAnswers = []struct {
	keyword string
	answer  string
}{
	{"headache", "Headaches can have many causes including stress, dehydration, lack of sleep, or underlying medical conditions. If headaches are frequent or severe, consider consulting a healthcare provider."},
	{"fever", "A fever is your body's natural response to infection. Stay hydrated, rest, and monitor your temperature. Seek medical attention if fever exceeds 103°F (39.4°C) or persists for more than 3 days."},
	{"fatigue", "Fatigue can result from poor sleep, stress, medical conditions, or lifestyle factors. Ensure adequate sleep, regular exercise, and a balanced diet. Persistent fatigue warrants medical evaluation."},
}

const defaultHealthAnswer = "I understand your concern about your health. While I can provide general information, it's important to consult with a healthcare professional for personalized medical advice, especially if symptoms persist or worsen."

// AskHealthQuestion answers a free-text question from the first matching topic.
func (s *HealthInsightsStore) AskHealthQuestion(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", apperr.Validation("question is empty")
	}
	if err := sleep(ctx, s.delay); err != nil {
		return "", err
	}
	lower := strings.ToLower(question)
	for _, a := range healthAnswers {
		if strings.Contains(lower, a.keyword) {
			return a.answer, nil
		}
	}
	return defaultHealthAnswer, nil
}

func defaultHealthRisks() []models.HealthRisk {
	return []models.HealthRisk{
		{
			ID:          "1",
			RiskType:    "Cardiovascular Disease",
			RiskLevel:   "moderate",
			Probability: 25,
			Description: "Based on your health profile, you have a moderate risk of developing cardiovascular disease",
			Factors:     []string{"Family history", "Sedentary lifestyle", "Stress levels"},
			Recommendations: []string{
				"Increase physical activity to 150 minutes per week",
				"Adopt a heart-healthy diet",
				"Manage stress through relaxation techniques",
				"Regular blood pressure monitoring",
			},
			Timeframe: "Next 10 years",
			BasedOn:   []string{"Health records", "Lifestyle data", "Family history"},
		},
		{
			ID:          "2",
			RiskType:    "Type 2 Diabetes",
			RiskLevel:   "low",
			Probability: 15,
			Description: "Your current lifestyle and health indicators suggest a low risk for Type 2 diabetes",
			Factors:     []string{"BMI within normal range", "Active lifestyle", "No family history"},
			Recommendations: []string{
				"Maintain current healthy lifestyle",
				"Continue regular exercise routine",
				"Annual blood glucose screening",
			},
			Timeframe: "Next 10 years",
			BasedOn:   []string{"BMI data", "Exercise tracking", "Lab results"},
		},
	}
}

func defaultRecommendations() []models.PersonalizedRecommendation {
	return []models.PersonalizedRecommendation{
		{
			ID:          "1",
			Category:    "exercise",
			Title:       "Increase Daily Steps",
			Description: "Based on your activity data, increasing daily steps could improve your cardiovascular health",
			Priority:    "high",
			ActionItems: []string{
				"Set a goal of 8,000 steps per day",
				"Take stairs instead of elevators",
				"Go for a 15-minute walk after meals",
			},
			ExpectedBenefit:  "Improved cardiovascular health and energy levels",
			TimeToSeeResults: "2-4 weeks",
			BasedOn:          []string{"Activity tracking", "Health goals", "Risk assessment"},
		},
		{
			ID:          "2",
			Category:    "diet",
			Title:       "Increase Omega-3 Intake",
			Description: "Your diet analysis suggests you could benefit from more omega-3 fatty acids",
			Priority:    "medium",
			ActionItems: []string{
				"Include fish in your diet 2-3 times per week",
				"Add walnuts or flaxseeds to your breakfast",
				"Consider an omega-3 supplement after consulting your doctor",
			},
			ExpectedBenefit:  "Better heart health and reduced inflammation",
			TimeToSeeResults: "4-6 weeks",
			BasedOn:          []string{"Dietary analysis", "Health records", "Lab results"},
		},
		{
			ID:          "3",
			Category:    "preventive",
			Title:       "Schedule Annual Eye Exam",
			Description: "It's been over a year since your last eye examination",
			Priority:    "medium",
			ActionItems: []string{
				"Schedule appointment with ophthalmologist",
				"Prepare list of any vision changes",
				"Bring current glasses/contacts for evaluation",
			},
			ExpectedBenefit:  "Early detection of vision problems",
			TimeToSeeResults: "Immediate",
			BasedOn:          []string{"Appointment history", "Age-based recommendations"},
		},
	}
}

func defaultSchedulingSuggestions(now time.Time) []models.SchedulingSuggestion {
	at := func(days, hour, minute int) time.Time {
		y, m, d := now.Date()
		return time.Date(y, m, d+days, hour, minute, 0, 0, now.Location())
	}
	return []models.SchedulingSuggestion{
		{
			ID:                      "1",
			DoctorName:              "Dr. Sarah Johnson",
			Specialty:               "Primary Care",
			AppointmentType:         "in-person",
			RecommendedAt:           at(10, 10, 0),
			Location:                "Main Medical Center",
			Urgency:                 "medium",
			MatchScore:              95,
			Rating:                  4.8,
			EstimatedWaitTime:       "5-10 minutes",
			ReasonForRecommendation: "It's been 11 months since your last physical exam",
			AvailableSlots:          3,
			InsuranceAccepted:       true,
			SuggestedTiming:         "Next 2 weeks",
			Priority:                "recommended",
			EstimatedDuration:       "45 minutes",
		},
		{
			ID:                      "2",
			DoctorName:              "Dr. Michael Chen",
			Specialty:               "Primary Care",
			AppointmentType:         "in-person",
			RecommendedAt:           at(3, 14, 0),
			Location:                "Downtown Clinic",
			Urgency:                 "high",
			MatchScore:              88,
			Rating:                  4.6,
			EstimatedWaitTime:       "10-15 minutes",
			ReasonForRecommendation: "Your recent symptoms and medication changes warrant blood work monitoring",
			AvailableSlots:          2,
			InsuranceAccepted:       true,
			SuggestedTiming:         "This week",
			Priority:                "urgent",
			EstimatedDuration:       "15 minutes",
		},
		{
			ID:                      "3",
			DoctorName:              "Dr. Emily Rodriguez",
			Specialty:               "Dermatology",
			AppointmentType:         "in-person",
			RecommendedAt:           at(30, 11, 30),
			Location:                "Skin Care Specialists",
			Urgency:                 "low",
			MatchScore:              82,
			Rating:                  4.9,
			EstimatedWaitTime:       "15-20 minutes",
			ReasonForRecommendation: "Annual skin cancer screening recommended for your age group",
			AvailableSlots:          5,
			InsuranceAccepted:       true,
			SuggestedTiming:         "Next month",
			Priority:                "routine",
			EstimatedDuration:       "30 minutes",
		},
	}
}
