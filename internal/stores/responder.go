package stores

import (
	"context"
	"strings"

	"healthbridge-server/internal/models"
)

// Responder produces the assistant's reply to a user turn.
type Responder interface {
	Respond(ctx context.Context, category models.VoiceCategory, message string) (string, error)
}

// ResponseRule answers with Reply when the message contains any of Keywords.
type ResponseRule struct {
	Keywords []string
	Reply    string
}

// KeywordResponder is a rule table of category x keyword -> reply. Rules are
// tried in order; the category default answers everything else.
type KeywordResponder struct {
	Rules    map[models.VoiceCategory][]ResponseRule
	Defaults map[models.VoiceCategory]string
	Fallback string
}

func (r *KeywordResponder) Respond(ctx context.Context, category models.VoiceCategory, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	lower := strings.ToLower(message)
	for _, rule := range r.Rules[category] {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Reply, nil
			}
		}
	}
	if reply, ok := r.Defaults[category]; ok {
		return reply, nil
	}
	return r.Fallback, nil
}

// DefaultResponder returns the built-in health companion rules.
func DefaultResponder() *KeywordResponder {
	return &KeywordResponder{
		Rules: map[models.VoiceCategory][]ResponseRule{
			models.VoiceSymptomCheck: {
				{Keywords: []string{"headache"}, Reply: "I understand you're experiencing a headache. Can you tell me how severe it is on a scale of 1 to 10, and how long you've had it?"},
				{Keywords: []string{"fever"}, Reply: "A fever can indicate your body is fighting an infection. Have you taken your temperature? Any other symptoms like chills or body aches?"},
				{Keywords: []string{"pain"}, Reply: "I'm sorry you're in pain. Can you describe where the pain is located and what type of pain it is - sharp, dull, throbbing?"},
			},
			models.VoiceMedication: {
				{Keywords: []string{"reminder"}, Reply: "I can help set up medication reminders for you. What medication do you need reminders for, and what time should I remind you?"},
				{Keywords: []string{"side effect"}, Reply: "Side effects can be concerning. What medication are you taking, and what symptoms are you experiencing? I recommend consulting your doctor about this."},
			},
			models.VoiceCoaching: {
				{Keywords: []string{"exercise", "fitness"}, Reply: "Great choice! Regular exercise is key to good health. What's your current activity level, and what are your fitness goals?"},
				{Keywords: []string{"diet", "nutrition"}, Reply: "Nutrition plays a huge role in health. What specific dietary goals do you have? Are you looking to lose weight, eat healthier, or manage a condition?"},
				{Keywords: []string{"sleep"}, Reply: "Sleep is crucial for health and recovery. Are you having trouble falling asleep, staying asleep, or feeling rested when you wake up?"},
			},
		},
		Defaults: map[models.VoiceCategory]string{
			models.VoiceSymptomCheck: "Thank you for sharing that information. Can you provide more details about when these symptoms started and their severity?",
			models.VoiceMedication:   "I'm here to help with your medication questions. What would you like to know about your medications?",
			models.VoiceCoaching:     "I'm excited to help you on your health journey! What specific area would you like to focus on improving?",
		},
		Fallback: "I'm here to help with your health questions. You can ask me about symptoms, medications, or get health coaching. What would you like to discuss?",
	}
}

var welcomeMessages = map[models.VoiceCategory]string{
	models.VoiceSymptomCheck: "Hello! I'm here to help you report your symptoms. Please describe how you're feeling.",
	models.VoiceMedication:   "Hi! I can help you with medication reminders and questions. What would you like to know?",
	models.VoiceCoaching:     "Welcome to your health coaching session! What health goal would you like to work on today?",
	models.VoiceGeneral:      "Hello! I'm your AI health companion. How can I help you today?",
}

var spokenSymptoms = []string{"headache", "fever", "cough", "pain", "nausea", "fatigue", "dizziness"}

// extractSymptomReport pulls known symptom words, a severity and a duration
// out of a free-text transcript.
func extractSymptomReport(transcript string) (symptoms []string, severity, duration string) {
	lower := strings.ToLower(transcript)
	symptoms = []string{}
	for _, s := range spokenSymptoms {
		if strings.Contains(lower, s) {
			symptoms = append(symptoms, s)
		}
	}

	severity = "mild"
	switch {
	case strings.Contains(lower, "severe") || strings.Contains(lower, "terrible"):
		severity = "severe"
	case strings.Contains(lower, "moderate") || strings.Contains(lower, "bad"):
		severity = "moderate"
	}

	duration = "recent"
	switch {
	case strings.Contains(lower, "days"):
		duration = "few days"
	case strings.Contains(lower, "week"):
		duration = "about a week"
	}
	return symptoms, severity, duration
}

type coachingContent struct {
	insights        []string
	recommendations []string
}

var coachingTopics = map[string]coachingContent{
	"exercise": {
		insights: []string{
			"Regular exercise improves cardiovascular health",
			"Strength training helps maintain bone density",
			"Even 30 minutes daily can make a significant difference",
		},
		recommendations: []string{
			"Start with 150 minutes of moderate exercise per week",
			"Include both cardio and strength training",
			"Find activities you enjoy to stay consistent",
		},
	},
	"nutrition": {
		insights: []string{
			"A balanced diet provides essential nutrients",
			"Processed foods can increase health risks",
			"Hydration is crucial for all body functions",
		},
		recommendations: []string{
			"Eat 5-7 servings of fruits and vegetables daily",
			"Choose whole grains over refined grains",
			"Limit added sugars and sodium",
		},
	},
}

var defaultCoaching = coachingContent{
	insights:        []string{"Consistency is key to health improvements"},
	recommendations: []string{"Set small, achievable goals"},
}
