package stores

import (
	"context"
	"strings"
	"sync"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/models"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Recognizer controls the device speech recognizer. Results come back through
// the VoiceStore's OnRecognition* methods.
type Recognizer interface {
	Start(ctx context.Context, lang string) error
	Stop(ctx context.Context) error
}

// Synthesizer controls the device speech synthesizer. Progress comes back
// through the VoiceStore's OnSpeech* methods.
type Synthesizer interface {
	Speak(ctx context.Context, u models.Utterance) error
	Cancel(ctx context.Context) error
}

// Device speech recognition error codes.
const (
	RecognitionNotAllowed        = "not-allowed"
	RecognitionNoSpeech          = "no-speech"
	RecognitionNetwork           = "network"
	RecognitionAudioCapture      = "audio-capture"
	RecognitionServiceNotAllowed = "service-not-allowed"
	RecognitionAborted           = "aborted"
)

const defaultRecognitionConfidence = 0.8

// VoiceDeps are the collaborators of a VoiceStore. Recognizer and Synthesizer
// may be nil when the device lacks the capability.
type VoiceDeps struct {
	Recognizer    Recognizer
	Synthesizer   Synthesizer
	Responder     Responder
	ResponseDelay time.Duration
}

// VoiceStore runs speech recognition, speech synthesis and voice
// conversations for one user. At most one session is active and at most one
// utterance is spoken at a time.
type VoiceStore struct {
	mu sync.RWMutex

	settings models.VoiceSettings

	listening  bool
	transcript string
	confidence float64
	outcome    models.RecognitionOutcome
	listenDone chan struct{}

	speaking  bool
	utterance string

	session    *models.VoiceSession
	history    []models.VoiceSession
	sessionGen uint64
	inflight   int

	symptomReports []models.VoiceSymptomReport
	reminders      []models.VoiceMedicationReminder
	coaching       []models.VoiceCoachingSession

	recognizer Recognizer
	synth      Synthesizer
	responder  Responder
	delay      time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// NewVoiceStore creates a store with the given settings.
func NewVoiceStore(settings models.VoiceSettings, deps VoiceDeps, opts Options) *VoiceStore {
	opts = opts.withDefaults()
	if deps.Responder == nil {
		deps.Responder = DefaultResponder()
	}
	return &VoiceStore{
		settings:   settings,
		recognizer: deps.Recognizer,
		synth:      deps.Synthesizer,
		responder:  deps.Responder,
		delay:      deps.ResponseDelay,
		now:        opts.Now,
		log:        opts.Log.Named("voice"),
	}
}

// State returns the recognition and synthesis flags.
func (s *VoiceStore) State() models.VoiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := models.VoiceState{
		IsListening:  s.listening,
		IsProcessing: s.inflight > 0,
		IsSpeaking:   s.speaking,
		Transcript:   s.transcript,
		Confidence:   s.confidence,
	}
	if s.outcome.Err != nil {
		st.LastError = s.outcome.Err.Error()
	}
	return st
}

// StartListening starts the recognizer. It is a no-op while already listening.
func (s *VoiceStore) StartListening(ctx context.Context) error {
	if s.recognizer == nil {
		return apperr.Unsupported("speech recognition is not supported")
	}
	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = true
	s.transcript = ""
	s.confidence = 0
	s.outcome = models.RecognitionOutcome{}
	s.listenDone = make(chan struct{})
	lang := s.settings.Language
	s.mu.Unlock()

	if err := s.recognizer.Start(ctx, lang); err != nil {
		s.mu.Lock()
		s.listening = false
		s.finishListenLocked()
		s.mu.Unlock()
		return apperr.Wrap(apperr.KindUnsupported, err, "starting speech recognition")
	}
	return nil
}

// StopListening asks the recognizer to stop. The listening flag drops when
// the device reports the end of recognition.
func (s *VoiceStore) StopListening(ctx context.Context) error {
	s.mu.RLock()
	listening := s.listening
	s.mu.RUnlock()
	if !listening || s.recognizer == nil {
		return nil
	}
	if err := s.recognizer.Stop(ctx); err != nil {
		s.mu.Lock()
		s.listening = false
		s.finishListenLocked()
		s.mu.Unlock()
		return apperr.Wrap(apperr.KindUnsupported, err, "stopping speech recognition")
	}
	return nil
}

// Listen starts recognition and waits for it to end.
func (s *VoiceStore) Listen(ctx context.Context) (models.RecognitionOutcome, error) {
	if err := s.StartListening(ctx); err != nil {
		return models.RecognitionOutcome{Err: err}, err
	}
	s.mu.RLock()
	done := s.listenDone
	s.mu.RUnlock()
	if done != nil {
		select {
		case <-ctx.Done():
			return models.RecognitionOutcome{}, ctx.Err()
		case <-done:
		}
	}
	out := s.LastOutcome()
	return out, out.Err
}

// OnRecognitionStart records that the device started listening.
func (s *VoiceStore) OnRecognitionStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = true
}

// OnRecognitionResult folds recognizer results from resultIndex on into the
// transcript. Final text wins over interim text.
func (s *VoiceStore) OnRecognitionResult(results []models.RecognitionResult, resultIndex int) error {
	if resultIndex < 0 || resultIndex > len(results) {
		return apperr.Validation("result index %d out of range", resultIndex)
	}
	var final, interim strings.Builder
	confidence := -1.0
	for _, r := range results[resultIndex:] {
		if r.IsFinal {
			final.WriteString(r.Transcript)
			confidence = r.Confidence
			if confidence == 0 {
				confidence = defaultRecognitionConfidence
			}
		} else {
			interim.WriteString(r.Transcript)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if final.Len() > 0 {
		s.transcript = final.String()
	} else {
		s.transcript = interim.String()
	}
	if confidence >= 0 {
		s.confidence = confidence
	}
	return nil
}

// OnRecognitionError records a recognizer failure and returns it classified.
func (s *VoiceStore) OnRecognitionError(code string) error {
	err := classifyRecognitionError(code)
	s.log.Warn("speech recognition error", zap.String("code", code))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = false
	s.outcome = models.RecognitionOutcome{Err: err}
	s.finishListenLocked()
	return err
}

// OnRecognitionEnd records that the device stopped listening.
func (s *VoiceStore) OnRecognitionEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = false
	if s.outcome.Err == nil {
		s.outcome = models.RecognitionOutcome{Transcript: s.transcript, Confidence: s.confidence}
	}
	s.finishListenLocked()
}

// LastOutcome returns the result of the latest recognition run.
func (s *VoiceStore) LastOutcome() models.RecognitionOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

func (s *VoiceStore) finishListenLocked() {
	if s.listenDone != nil {
		close(s.listenDone)
		s.listenDone = nil
	}
}

func classifyRecognitionError(code string) error {
	switch code {
	case RecognitionNotAllowed:
		return apperr.PermissionDenied("microphone access denied")
	case RecognitionNoSpeech:
		return apperr.New(apperr.KindNoSpeech, "no speech detected")
	case RecognitionNetwork:
		return apperr.New(apperr.KindNetwork, "speech recognition network error")
	default:
		return apperr.Unsupported("speech recognition failed: %s", code)
	}
}

// Speak says text, cancelling whatever is being spoken.
func (s *VoiceStore) Speak(ctx context.Context, text string) (models.Utterance, error) {
	if s.synth == nil {
		return models.Utterance{}, apperr.Unsupported("speech synthesis is not supported")
	}
	if strings.TrimSpace(text) == "" {
		return models.Utterance{}, apperr.Validation("nothing to say")
	}

	s.mu.Lock()
	u := models.Utterance{
		ID:       newID(),
		Text:     text,
		Rate:     s.settings.VoiceSpeed,
		Language: s.settings.Language,
	}
	s.utterance = u.ID
	s.speaking = false
	s.mu.Unlock()

	if err := s.synth.Cancel(ctx); err != nil {
		s.log.Warn("cancelling previous utterance failed", zap.Error(err))
	}
	if err := s.synth.Speak(ctx, u); err != nil {
		s.mu.Lock()
		if s.utterance == u.ID {
			s.speaking = false
		}
		s.mu.Unlock()
		return models.Utterance{}, apperr.Wrap(apperr.KindUnsupported, err, "speaking")
	}
	return u, nil
}

// StopSpeaking cancels the current utterance.
func (s *VoiceStore) StopSpeaking(ctx context.Context) error {
	s.mu.Lock()
	s.utterance = ""
	s.speaking = false
	s.mu.Unlock()
	if s.synth == nil {
		return nil
	}
	return s.synth.Cancel(ctx)
}

// OnSpeechStart marks utterance id as speaking if it is still current.
func (s *VoiceStore) OnSpeechStart(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && id == s.utterance {
		s.speaking = true
	}
}

// OnSpeechEnd clears the speaking flag if id is the current utterance.
func (s *VoiceStore) OnSpeechEnd(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.utterance {
		s.speaking = false
	}
}

// OnSpeechError is OnSpeechEnd for failed utterances.
func (s *VoiceStore) OnSpeechError(id, reason string) {
	s.log.Warn("speech synthesis error", zap.String("utterance_id", id), zap.String("reason", reason))
	s.OnSpeechEnd(id)
}

// StartNewSession ends any active session and opens a new one with a
// welcome message.
func (s *VoiceStore) StartNewSession(ctx context.Context, category models.VoiceCategory) (models.VoiceSession, error) {
	if !category.Valid() {
		return models.VoiceSession{}, apperr.Validation("unknown session category %q", category)
	}
	now := s.now()

	s.mu.Lock()
	s.endSessionLocked(now)
	s.sessionGen++
	welcome := welcomeMessages[category]
	s.session = &models.VoiceSession{
		ID:        newID(),
		Title:     string(category) + " session",
		Category:  category,
		StartTime: now,
		Messages: []models.VoiceMessage{{
			ID:        newID(),
			Role:      models.RoleAssistantTurn,
			Content:   welcome,
			Timestamp: now,
		}},
	}
	session := cloneSession(*s.session)
	autoSpeak := s.settings.AutoSpeak
	s.mu.Unlock()

	s.log.Info("voice session started", zap.String("session_id", session.ID), zap.String("category", string(category)))
	if autoSpeak {
		s.speakBestEffort(ctx, welcome)
	}
	return session, nil
}

// SendVoiceMessage appends a user turn, waits for the reply and appends it.
// A reply is dropped if the session ended or was replaced in the meantime.
func (s *VoiceStore) SendVoiceMessage(ctx context.Context, text string) (models.VoiceSession, error) {
	if strings.TrimSpace(text) == "" {
		return models.VoiceSession{}, apperr.Validation("message is empty")
	}

	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return models.VoiceSession{}, apperr.NotFound("no active voice session")
	}
	confidence := s.confidence
	s.session.Messages = append(s.session.Messages, models.VoiceMessage{
		ID:         newID(),
		Role:       models.RoleUserTurn,
		Content:    text,
		Timestamp:  s.now(),
		Confidence: &confidence,
	})
	gen := s.sessionGen
	category := s.session.Category
	s.inflight++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	if err := sleep(ctx, s.delay); err != nil {
		return models.VoiceSession{}, err
	}
	reply, err := s.responder.Respond(ctx, category, text)
	if err != nil {
		return models.VoiceSession{}, apperr.Wrap(apperr.KindInternal, err, "generating reply")
	}

	s.mu.Lock()
	if s.session == nil || s.sessionGen != gen {
		s.mu.Unlock()
		return models.VoiceSession{}, apperr.Conflict("voice session changed before the reply was ready")
	}
	s.session.Messages = append(s.session.Messages, models.VoiceMessage{
		ID:        newID(),
		Role:      models.RoleAssistantTurn,
		Content:   reply,
		Timestamp: s.now(),
	})
	session := cloneSession(*s.session)
	autoSpeak := s.settings.AutoSpeak
	s.mu.Unlock()

	if autoSpeak {
		s.speakBestEffort(ctx, reply)
	}
	return session, nil
}

// EndCurrentSession stamps the end time and moves the session to history.
func (s *VoiceStore) EndCurrentSession() (models.VoiceSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return models.VoiceSession{}, apperr.NotFound("no active voice session")
	}
	ended := s.endSessionLocked(s.now())
	s.sessionGen++
	return ended, nil
}

// CurrentSession returns the active session, if any.
func (s *VoiceStore) CurrentSession() (models.VoiceSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return models.VoiceSession{}, false
	}
	return cloneSession(*s.session), true
}

// History returns ended sessions, newest first.
func (s *VoiceStore) History() []models.VoiceSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.VoiceSession, len(s.history))
	for i, sess := range s.history {
		out[i] = cloneSession(sess)
	}
	return out
}

func (s *VoiceStore) endSessionLocked(now time.Time) models.VoiceSession {
	if s.session == nil {
		return models.VoiceSession{}
	}
	ended := *s.session
	ended.EndTime = &now
	s.history = append([]models.VoiceSession{ended}, s.history...)
	s.session = nil
	return cloneSession(ended)
}

func (s *VoiceStore) speakBestEffort(ctx context.Context, text string) {
	if s.synth == nil {
		return
	}
	if _, err := s.Speak(ctx, text); err != nil {
		s.log.Warn("auto-speak failed", zap.Error(err))
	}
}

// ReportSymptoms extracts a symptom report from a spoken transcript.
func (s *VoiceStore) ReportSymptoms(transcript string) (models.VoiceSymptomReport, error) {
	if strings.TrimSpace(transcript) == "" {
		return models.VoiceSymptomReport{}, apperr.Validation("transcript is empty")
	}
	symptoms, severity, duration := extractSymptomReport(transcript)

	s.mu.Lock()
	defer s.mu.Unlock()
	r := models.VoiceSymptomReport{
		ID:         newID(),
		Symptoms:   symptoms,
		Severity:   severity,
		Duration:   duration,
		Transcript: transcript,
		Confidence: s.confidence,
		Timestamp:  s.now(),
	}
	s.symptomReports = append([]models.VoiceSymptomReport{r}, s.symptomReports...)
	return r, nil
}

// SymptomReports returns spoken symptom reports, newest first.
func (s *VoiceStore) SymptomReports() []models.VoiceSymptomReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.VoiceSymptomReport{}, s.symptomReports...)
}

// SetVoiceMedicationReminder stores a spoken medication reminder.
func (s *VoiceStore) SetVoiceMedicationReminder(r models.VoiceMedicationReminder) (models.VoiceMedicationReminder, error) {
	if strings.TrimSpace(r.MedicationName) == "" {
		return models.VoiceMedicationReminder{}, apperr.Validation("medication name is required")
	}
	times, err := normalizeClockTimes([]string{r.Time})
	if err != nil {
		return models.VoiceMedicationReminder{}, err
	}
	r.Time = times[0]
	r.ID = newID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders = append(s.reminders, r)
	return r, nil
}

// AcknowledgeVoiceReminder marks a spoken reminder as heard.
func (s *VoiceStore) AcknowledgeVoiceReminder(id string) (models.VoiceMedicationReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reminders {
		if s.reminders[i].ID == id {
			now := s.now()
			s.reminders[i].Acknowledged = true
			s.reminders[i].LastReminded = &now
			return s.reminders[i], nil
		}
	}
	return models.VoiceMedicationReminder{}, apperr.NotFound("voice reminder %s not found", id)
}

// VoiceReminders returns spoken medication reminders.
func (s *VoiceStore) VoiceReminders() []models.VoiceMedicationReminder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.VoiceMedicationReminder{}, s.reminders...)
}

// StartVoiceCoaching creates a coaching session for topic.
func (s *VoiceStore) StartVoiceCoaching(topic string) (models.VoiceCoachingSession, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return models.VoiceCoachingSession{}, apperr.Validation("coaching topic is required")
	}
	content, ok := coachingTopics[strings.ToLower(topic)]
	if !ok {
		content = defaultCoaching
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.VoiceCoachingSession{
		ID:              newID(),
		Topic:           topic,
		Insights:        cloneStrings(content.insights),
		Recommendations: cloneStrings(content.recommendations),
		Timestamp:       s.now(),
	}
	s.coaching = append([]models.VoiceCoachingSession{c}, s.coaching...)
	return c, nil
}

// CoachingSessions returns coaching sessions, newest first.
func (s *VoiceStore) CoachingSessions() []models.VoiceCoachingSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.VoiceCoachingSession{}, s.coaching...)
}

// Settings returns the voice settings.
func (s *VoiceStore) Settings() models.VoiceSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings merges patch into the settings. The language must be a
// valid BCP 47 tag and the speed within 0.1 and 10.
func (s *VoiceStore) UpdateSettings(patch models.VoiceSettingsPatch) (models.VoiceSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	patch.Apply(&next)
	tag, err := language.Parse(next.Language)
	if err != nil {
		return models.VoiceSettings{}, apperr.Validation("invalid language %q", next.Language)
	}
	next.Language = tag.String()
	if next.VoiceSpeed < 0.1 || next.VoiceSpeed > 10 {
		return models.VoiceSettings{}, apperr.Validation("voice speed must be between 0.1 and 10")
	}
	s.settings = next
	return next, nil
}

func cloneSession(s models.VoiceSession) models.VoiceSession {
	s.Messages = append([]models.VoiceMessage(nil), s.Messages...)
	if s.EndTime != nil {
		t := *s.EndTime
		s.EndTime = &t
	}
	return s
}
