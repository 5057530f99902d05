package stores

import (
	"context"
	"sort"
	"strings"

	"healthbridge-server/internal/models"
)

// SymptomClassifier turns reported symptoms into an assessment.
type SymptomClassifier interface {
	Classify(ctx context.Context, symptoms []models.Symptom) (models.Assessment, error)
}

// Condition is a reference condition with its canonical symptoms.
type Condition struct {
	Name        string
	Symptoms    []string
	Description string
}

// KeywordClassifier scores conditions by the share of their canonical
// symptoms found inside the reported symptom names.
type KeywordClassifier struct {
	Conditions []Condition
	// Threshold is the probability a condition must exceed to be reported.
	Threshold float64
}

// DefaultConditions is the built-in condition table.
func DefaultConditions() []Condition {
	return []Condition{
		{
			Name:        "Common Cold",
			Symptoms:    []string{"runny nose", "sore throat", "cough", "sneezing", "fatigue"},
			Description: "Viral infection of the upper respiratory tract",
		},
		{
			Name:        "Influenza",
			Symptoms:    []string{"fever", "body aches", "fatigue", "cough", "headache"},
			Description: "Viral infection affecting the respiratory system",
		},
		{
			Name:        "Migraine",
			Symptoms:    []string{"severe headache", "nausea", "light sensitivity", "sound sensitivity"},
			Description: "Neurological condition causing severe headaches",
		},
		{
			Name:        "Gastroenteritis",
			Symptoms:    []string{"nausea", "vomiting", "diarrhea", "abdominal pain", "fever"},
			Description: "Inflammation of the stomach and intestines",
		},
	}
}

// NewKeywordClassifier returns a classifier over the default conditions.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{Conditions: DefaultConditions(), Threshold: 20}
}

var redFlagSymptoms = []struct {
	name    string
	warning string
}{
	{"chest pain", "Chest pain can indicate serious conditions - seek immediate medical attention"},
	{"difficulty breathing", "Breathing difficulties require immediate medical evaluation"},
}

func (k *KeywordClassifier) Classify(ctx context.Context, symptoms []models.Symptom) (models.Assessment, error) {
	if err := ctx.Err(); err != nil {
		return models.Assessment{}, err
	}
	names := make([]string, len(symptoms))
	for i, s := range symptoms {
		names[i] = strings.ToLower(strings.TrimSpace(s.Name))
	}

	return models.Assessment{
		PossibleConditions: k.matchConditions(names),
		UrgencyLevel:       urgency(symptoms, names),
		RedFlags:           redFlags(names),
		NextSteps: []string{
			"Continue monitoring symptoms",
			"Schedule appointment if symptoms worsen",
			"Keep a symptom diary",
		},
	}, nil
}

func (k *KeywordClassifier) matchConditions(names []string) []models.PossibleCondition {
	out := []models.PossibleCondition{}
	for _, c := range k.Conditions {
		if len(c.Symptoms) == 0 {
			continue
		}
		matched := 0
		for _, canonical := range c.Symptoms {
			if anyContains(names, canonical) {
				matched++
			}
		}
		p := float64(matched) / float64(len(c.Symptoms)) * 100
		if p <= k.Threshold {
			continue
		}
		when := "Monitor symptoms"
		if p > 60 {
			when = "Consider seeing a doctor if symptoms persist"
		}
		out = append(out, models.PossibleCondition{
			Name:            c.Name,
			Probability:     p,
			Description:     c.Description,
			CommonSymptoms:  cloneStrings(c.Symptoms),
			WhenToSeeDoctor: when,
			SelfCareOptions: []string{"Rest", "Stay hydrated", "Over-the-counter pain relief if needed"},
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	return out
}

// urgency is emergency for red-flag symptoms, otherwise graded on the mean
// severity score.
func urgency(symptoms []models.Symptom, names []string) models.Urgency {
	for _, rf := range redFlagSymptoms {
		if anyContains(names, rf.name) {
			return models.UrgencyEmergency
		}
	}
	if len(symptoms) == 0 {
		return models.UrgencyLow
	}
	total := 0
	for _, s := range symptoms {
		total += s.Severity.Score()
	}
	mean := float64(total) / float64(len(symptoms))
	switch {
	case mean > 2.5:
		return models.UrgencyHigh
	case mean > 1.5:
		return models.UrgencyMedium
	}
	return models.UrgencyLow
}

func redFlags(names []string) []string {
	out := []string{}
	for _, rf := range redFlagSymptoms {
		if anyContains(names, rf.name) {
			out = append(out, rf.warning)
		}
	}
	return out
}

func anyContains(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}
