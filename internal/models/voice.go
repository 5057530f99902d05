package models

import "time"

// VoiceCategory scopes a conversation.
type VoiceCategory string

const (
	VoiceSymptomCheck VoiceCategory = "symptom-check"
	VoiceMedication   VoiceCategory = "medication"
	VoiceCoaching     VoiceCategory = "coaching"
	VoiceGeneral      VoiceCategory = "general"
)

func (c VoiceCategory) Valid() bool {
	switch c {
	case VoiceSymptomCheck, VoiceMedication, VoiceCoaching, VoiceGeneral:
		return true
	}
	return false
}

// MessageRole is the speaker of a turn.
type MessageRole string

const (
	RoleUserTurn      MessageRole = "user"
	RoleAssistantTurn MessageRole = "assistant"
)

// VoiceMessage is one turn of a session.
type VoiceMessage struct {
	ID         string      `json:"id"`
	Role       MessageRole `json:"type"`
	Content    string      `json:"content"`
	Timestamp  time.Time   `json:"timestamp"`
	Confidence *float64    `json:"confidence,omitempty"`
}

// VoiceSession is an ordered conversation in one category.
type VoiceSession struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Category  VoiceCategory  `json:"category"`
	Messages  []VoiceMessage `json:"messages"`
	StartTime time.Time      `json:"startTime"`
	EndTime   *time.Time     `json:"endTime,omitempty"`
}

// VoiceSymptomReport is extracted from a spoken symptom description.
type VoiceSymptomReport struct {
	ID         string    `json:"id"`
	Symptoms   []string  `json:"symptoms"`
	Severity   string    `json:"severity"`
	Duration   string    `json:"duration"`
	Transcript string    `json:"transcript"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// VoiceMedicationReminder is a spoken reminder for a medication.
type VoiceMedicationReminder struct {
	ID             string     `json:"id"`
	MedicationName string     `json:"medicationName"`
	Dosage         string     `json:"dosage"`
	Time           string     `json:"time"`
	Frequency      string     `json:"frequency"`
	VoiceEnabled   bool       `json:"voiceEnabled"`
	LastReminded   *time.Time `json:"lastReminded,omitempty"`
	Acknowledged   bool       `json:"acknowledged"`
}

// VoiceCoachingSession is the canned coaching content for a topic.
type VoiceCoachingSession struct {
	ID              string    `json:"id"`
	Topic           string    `json:"topic"`
	Duration        int       `json:"duration"`
	Insights        []string  `json:"insights"`
	Recommendations []string  `json:"recommendations"`
	Transcript      string    `json:"transcript"`
	Timestamp       time.Time `json:"timestamp"`
}

// VoiceSettings configures recognition and synthesis.
type VoiceSettings struct {
	Language    string  `json:"language"`
	VoiceSpeed  float64 `json:"voiceSpeed"`
	AutoSpeak   bool    `json:"autoSpeak"`
	WakeWord    string  `json:"wakeWord"`
	PrivacyMode bool    `json:"privacyMode"`
}

// DefaultVoiceSettings mirrors the assistant's out-of-the-box behaviour.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Language:   "en-US",
		VoiceSpeed: 1.0,
		AutoSpeak:  true,
		WakeWord:   "Hey Health",
	}
}

// VoiceSettingsPatch carries the settings to change; nil means unchanged.
type VoiceSettingsPatch struct {
	Language    *string  `json:"language,omitempty"`
	VoiceSpeed  *float64 `json:"voiceSpeed,omitempty"`
	AutoSpeak   *bool    `json:"autoSpeak,omitempty"`
	WakeWord    *string  `json:"wakeWord,omitempty"`
	PrivacyMode *bool    `json:"privacyMode,omitempty"`
}

func (p VoiceSettingsPatch) Apply(s *VoiceSettings) {
	setString(&s.Language, p.Language)
	setString(&s.WakeWord, p.WakeWord)
	if p.VoiceSpeed != nil {
		s.VoiceSpeed = *p.VoiceSpeed
	}
	if p.AutoSpeak != nil {
		s.AutoSpeak = *p.AutoSpeak
	}
	if p.PrivacyMode != nil {
		s.PrivacyMode = *p.PrivacyMode
	}
}

// RecognitionResult is one fragment delivered by the device recognizer.
type RecognitionResult struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	IsFinal    bool    `json:"isFinal"`
}

// RecognitionOutcome is the tagged result of the latest recognition run.
// Err is nil on success and carries an apperr kind otherwise.
type RecognitionOutcome struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Err        error   `json:"-"`
}

// Utterance is a request to speak text.
type Utterance struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Rate     float64 `json:"rate"`
	Language string  `json:"language"`
}

// VoiceState is the observable recognition/synthesis state.
type VoiceState struct {
	IsListening  bool    `json:"isListening"`
	IsProcessing bool    `json:"isProcessing"`
	IsSpeaking   bool    `json:"isSpeaking"`
	Transcript   string  `json:"transcript"`
	Confidence   float64 `json:"confidence"`
	LastError    string  `json:"lastError,omitempty"`
}
