package handlers

import (
	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/models"
	"healthbridge-server/internal/stores"
	"healthbridge-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// VoiceHandler handles the voice assistant: recognition and synthesis
// relayed from the device, conversations and voice-driven features.
type VoiceHandler struct {
	Registry *stores.Registry
}

// NewVoiceHandler creates a new VoiceHandler.
func NewVoiceHandler(reg *stores.Registry) *VoiceHandler {
	return &VoiceHandler{Registry: reg}
}

// GetState returns the listening and speaking flags with the live transcript.
func (h *VoiceHandler) GetState(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Voice state fetched successfully", ws.Voice.State())
}

// StartListening asks the device to start recognition.
func (h *VoiceHandler) StartListening(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	if err := ws.Voice.StartListening(c.Request.Context()); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Listening started", ws.Voice.State())
}

// StopListening asks the device to stop recognition.
func (h *VoiceHandler) StopListening(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	if err := ws.Voice.StopListening(c.Request.Context()); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Listening stopped", ws.Voice.State())
}

// Listen starts recognition and answers once the device reports the end of
// the run, or when the request is abandoned.
func (h *VoiceHandler) Listen(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	out, err := ws.Voice.Listen(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Recognition finished", out)
}

// GetOutcome returns the result of the latest recognition run.
func (h *VoiceHandler) GetOutcome(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	out := ws.Voice.LastOutcome()
	if out.Err != nil {
		utils.FromError(c, out.Err)
		return
	}
	utils.Success(c, "Recognition outcome fetched successfully", out)
}

// RecognitionEvent is a recognizer callback relayed by the device.
type RecognitionEvent struct {
	Type        string                     `json:"type" binding:"required,oneof=start result error end"`
	Results     []models.RecognitionResult `json:"results"`
	ResultIndex int                        `json:"resultIndex"`
	Error       string                     `json:"error"`
}

// RecognitionEvent feeds a device recognizer callback into the store.
// A relayed error is acknowledged; its classification is in the response.
func (h *VoiceHandler) RecognitionEvent(c *gin.Context) {
	var req RecognitionEvent
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}

	switch req.Type {
	case "start":
		ws.Voice.OnRecognitionStart()
	case "result":
		if err := ws.Voice.OnRecognitionResult(req.Results, req.ResultIndex); err != nil {
			utils.FromError(c, err)
			return
		}
	case "error":
		err := ws.Voice.OnRecognitionError(req.Error)
		utils.Success(c, "Recognition error recorded", gin.H{
			"kind":  apperr.KindOf(err),
			"error": err.Error(),
			"state": ws.Voice.State(),
		})
		return
	case "end":
		ws.Voice.OnRecognitionEnd()
	}
	utils.Success(c, "Recognition event recorded", ws.Voice.State())
}

// SpeechEvent is a synthesizer callback relayed by the device.
type SpeechEvent struct {
	Type        string `json:"type" binding:"required,oneof=start end error"`
	UtteranceID string `json:"utteranceId" binding:"required"`
	Error       string `json:"error"`
}

// SpeechEvent feeds a device synthesizer callback into the store. Events of
// superseded utterances are ignored by the store.
func (h *VoiceHandler) SpeechEvent(c *gin.Context) {
	var req SpeechEvent
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	switch req.Type {
	case "start":
		ws.Voice.OnSpeechStart(req.UtteranceID)
	case "end":
		ws.Voice.OnSpeechEnd(req.UtteranceID)
	case "error":
		ws.Voice.OnSpeechError(req.UtteranceID, req.Error)
	}
	utils.Success(c, "Speech event recorded", ws.Voice.State())
}

// SpeakRequest is text to speak on the device.
type SpeakRequest struct {
	Text string `json:"text" binding:"required"`
}

// Speak relays an utterance to the device, cancelling any in flight.
func (h *VoiceHandler) Speak(c *gin.Context) {
	var req SpeakRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	u, err := ws.Voice.Speak(c.Request.Context(), req.Text)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Utterance sent", u)
}

// StopSpeaking cancels the current utterance.
func (h *VoiceHandler) StopSpeaking(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	if err := ws.Voice.StopSpeaking(c.Request.Context()); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Speech stopped", ws.Voice.State())
}

// StartSessionRequest selects the conversation category.
type StartSessionRequest struct {
	Category models.VoiceCategory `json:"category" binding:"required"`
}

// StartSession ends any active conversation and opens a new one.
func (h *VoiceHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	s, err := ws.Voice.StartNewSession(c.Request.Context(), req.Category)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "Session started", s)
}

// GetCurrentSession returns the active conversation.
func (h *VoiceHandler) GetCurrentSession(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	s, active := ws.Voice.CurrentSession()
	if !active {
		utils.NotFound(c, "No active session")
		return
	}
	utils.Success(c, "Session fetched successfully", s)
}

// EndSession closes the active conversation.
func (h *VoiceHandler) EndSession(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	s, err := ws.Voice.EndCurrentSession()
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Session ended", s)
}

// GetSessionHistory lists ended conversations, newest first.
func (h *VoiceHandler) GetSessionHistory(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Sessions fetched successfully", ws.Voice.History())
}

// SendMessageRequest is a user turn.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage adds a user turn and waits for the assistant's reply.
func (h *VoiceHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	s, err := ws.Voice.SendVoiceMessage(c.Request.Context(), req.Text)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Message sent", s)
}

// SymptomReportRequest is a spoken symptom description.
type SymptomReportRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

// ReportSymptoms extracts a symptom report from a transcript.
func (h *VoiceHandler) ReportSymptoms(c *gin.Context) {
	var req SymptomReportRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	r, err := ws.Voice.ReportSymptoms(req.Transcript)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "Symptom report recorded", r)
}

// GetSymptomReports lists symptom reports.
func (h *VoiceHandler) GetSymptomReports(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Symptom reports fetched successfully", ws.Voice.SymptomReports())
}

// CreateVoiceReminder adds a spoken medication reminder.
func (h *VoiceHandler) CreateVoiceReminder(c *gin.Context) {
	var req models.VoiceMedicationReminder
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	r, err := ws.Voice.SetVoiceMedicationReminder(req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "Voice reminder created", r)
}

// GetVoiceReminders lists spoken medication reminders.
func (h *VoiceHandler) GetVoiceReminders(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Voice reminders fetched successfully", ws.Voice.VoiceReminders())
}

// AcknowledgeVoiceReminder marks a spoken reminder as heard.
func (h *VoiceHandler) AcknowledgeVoiceReminder(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	r, err := ws.Voice.AcknowledgeVoiceReminder(c.Param("id"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Voice reminder acknowledged", r)
}

// CoachingRequest names the coaching topic.
type CoachingRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// StartCoaching starts a coaching session on a topic.
func (h *VoiceHandler) StartCoaching(c *gin.Context) {
	var req CoachingRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	s, err := ws.Voice.StartVoiceCoaching(req.Topic)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "Coaching session started", s)
}

// GetCoachingSessions lists coaching sessions.
func (h *VoiceHandler) GetCoachingSessions(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Coaching sessions fetched successfully", ws.Voice.CoachingSessions())
}

// GetSettings returns the voice settings.
func (h *VoiceHandler) GetSettings(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Voice settings fetched successfully", ws.Voice.Settings())
}

// UpdateSettings merges a partial update into the voice settings.
func (h *VoiceHandler) UpdateSettings(c *gin.Context) {
	var req models.VoiceSettingsPatch
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	s, err := ws.Voice.UpdateSettings(req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Voice settings updated", s)
}
