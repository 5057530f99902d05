package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/config"
	"healthbridge-server/internal/handlers"
	"healthbridge-server/internal/identity"
	"healthbridge-server/internal/models"
	"healthbridge-server/internal/notify"
	"healthbridge-server/internal/scheduler"
	"healthbridge-server/internal/settings"
	"healthbridge-server/internal/stores"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	mu        sync.Mutex
	signedOut [][2]string
}

var testUsers = map[string]models.UserSanitized{
	"token-u1": {ID: "u1", Email: "alex@example.com", FullName: "Alex Doe", Role: models.RolePatient},
	"token-u2": {ID: "u2", Email: "sam@example.com", FullName: "Sam Roe", Role: models.RolePatient},
}

func (f *fakeProvider) SignUp(_ context.Context, in identity.SignUpInput) (*models.UserSanitized, error) {
	if in.Email == "alex@example.com" {
		return nil, apperr.Conflict("user with this email already exists")
	}
	return &models.UserSanitized{ID: "u3", Email: in.Email, FullName: in.FullName}, nil
}

func (f *fakeProvider) SignIn(_ context.Context, email, password string) (*identity.Session, error) {
	if email != "alex@example.com" || password != "supersecret" {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return &identity.Session{AccessToken: "token-u1", RefreshToken: "refresh-u1", User: testUsers["token-u1"]}, nil
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (*identity.Session, error) {
	if refreshToken != "refresh-u1" {
		return nil, apperr.Unauthorized("refresh token not found, expired, or revoked")
	}
	return &identity.Session{AccessToken: "token-u1", RefreshToken: "refresh-u1b", User: testUsers["token-u1"]}, nil
}

func (f *fakeProvider) SignOut(_ context.Context, accessToken, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signedOut = append(f.signedOut, [2]string{accessToken, refreshToken})
	return nil
}

func (f *fakeProvider) CurrentUser(_ context.Context, accessToken string) (*models.UserSanitized, error) {
	u, ok := testUsers[accessToken]
	if !ok {
		return nil, apperr.Unauthorized("invalid access token")
	}
	return &u, nil
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

type testServer struct {
	router    *gin.Engine
	provider  *fakeProvider
	notes     *notify.Recorder
	scheduler *scheduler.ReminderScheduler
	reminders *handlers.ReminderSync
	registry  *stores.Registry
	redis     *miniredis.Miniredis
}

func setupServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	notes := &notify.Recorder{}
	registry := stores.NewRegistry(stores.RegistryConfig{
		Timing: stores.Timing{
			Emergency:       stores.EmergencyTiming{ContactDelay: time.Hour, AutoCancel: time.Hour},
			LocationTimeout: 20 * time.Millisecond,
			LocationMaxAge:  time.Minute,
		},
		Notifier: notes,
		Options:  stores.Options{Log: zap.NewNop(), Location: time.UTC},
	})
	sched := scheduler.New(notes, time.Second, nil, zap.NewNop())
	t.Cleanup(func() {
		_ = sched.Close()
		_ = registry.Close()
	})

	settingsService := settings.NewService(settings.NewRedisKV(client), zap.NewNop())
	reminders := &handlers.ReminderSync{Settings: settingsService, Scheduler: sched, Log: zap.NewNop()}

	provider := &fakeProvider{}
	router := gin.New()
	SetupRoutes(router, Deps{
		Config: &config.Config{
			Environment: "development",
			Location:    time.UTC,
			Identity:    config.IdentityConfig{JWTRefreshExpirationHours: 1},
		},
		Provider:  provider,
		Registry:  registry,
		Settings:  settingsService,
		Scheduler: sched,
		Reminders: reminders,
		Log:       zap.NewNop(),
	})
	return &testServer{
		router:    router,
		provider:  provider,
		notes:     notes,
		scheduler: sched,
		reminders: reminders,
		registry:  registry,
		redis:     mr,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())
}

func TestAuth_RequiresBearerToken(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/appointments", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode(t, w, nil).Code)
}

func TestAuth_LoginRefreshLogout(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alex@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alex@example.com", "password": "supersecret"})
	require.Equal(t, http.StatusOK, w.Code)
	var session identity.Session
	decode(t, w, &session)
	assert.Equal(t, "token-u1", session.AccessToken)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "refresh_token=refresh-u1")

	w = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refreshToken": "refresh-u1"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &session)
	assert.Equal(t, "refresh-u1b", session.RefreshToken)

	w = s.do(t, http.MethodPost, "/api/v1/auth/refresh", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/auth/me", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.UserSanitized
	decode(t, w, &me)
	assert.Equal(t, "Alex Doe", me.FullName)

	w = s.do(t, http.MethodPost, "/api/v1/auth/logout", "token-u1", gin.H{"refreshToken": "refresh-u1b"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][2]string{{"token-u1", "refresh-u1b"}}, s.provider.signedOut)
	assert.Zero(t, s.scheduler.Pending("u1"))
}

func TestAuth_Signup(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "new@example.com", "password": "short", "fullName": "New"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "alex@example.com", "password": "supersecret", "fullName": "Alex"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "new@example.com", "password": "supersecret", "fullName": "New"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDoctors(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/doctors?specialty=cardiology", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doctors []models.Doctor
	decode(t, w, &doctors)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. Sarah Chen", doctors[0].Name)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/doctors/99", "token-u1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/doctors/abc", "token-u1", nil).Code)
}

func TestAppointments_BookAndCancel(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/appointments", "token-u1", gin.H{
		"doctorId": 1, "date": "2099-01-01", "time": "09:00 AM", "reason": "Checkup",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var booked models.Appointment
	decode(t, w, &booked)
	assert.Equal(t, models.StatusConfirmed, booked.Status)
	assert.Equal(t, time.Date(2099, 1, 1, 9, 0, 0, 0, time.UTC), booked.ScheduledAt.UTC())

	var upcoming []models.Appointment
	decode(t, s.do(t, http.MethodGet, "/api/v1/appointments/upcoming", "token-u1", nil), &upcoming)
	require.Len(t, upcoming, 1)
	assert.Equal(t, booked.ID, upcoming[0].ID)

	// another user's workspace does not see it
	path := "/api/v1/appointments/" + strconv.Itoa(booked.ID)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, "token-u2", nil).Code)

	w = s.do(t, http.MethodPatch, path+"/cancel", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, s.do(t, http.MethodGet, "/api/v1/appointments/upcoming", "token-u1", nil), &upcoming)
	assert.Empty(t, upcoming)

	w = s.do(t, http.MethodPost, "/api/v1/appointments", "token-u1", gin.H{
		"doctorId": 1, "date": "01/02/2099", "time": "09:00 AM", "reason": "Checkup",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decode(t, w, nil).Code)

	w = s.do(t, http.MethodPost, "/api/v1/appointments", "token-u1", gin.H{
		"doctorId": 42, "date": "2099-01-01", "time": "09:00 AM", "reason": "Checkup",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppointments_Reschedule(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPut, "/api/v1/appointments/1", "token-u1", gin.H{"date": "2099-02-03", "time": "14:30"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var a models.Appointment
	decode(t, w, &a)
	assert.Equal(t, time.Date(2099, 2, 3, 14, 30, 0, 0, time.UTC), a.ScheduledAt.UTC())

	w = s.do(t, http.MethodPut, "/api/v1/appointments/1", "token-u1", gin.H{"date": "2099-02-03"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMedications_Flow(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/medications", "token-u1", gin.H{
		"name": "Atorvastatin", "dosage": "20mg", "frequency": "Once daily",
		"reminderTimes": []string{"21:00"}, "isActive": true, "refillsRemaining": 1, "daysSupply": 30,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m models.Medication
	decode(t, w, &m)

	w = s.do(t, http.MethodPost, "/api/v1/medications/"+m.ID+"/refill", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &m)
	assert.Equal(t, 0, m.RefillsRemaining)

	w = s.do(t, http.MethodPost, "/api/v1/medications/"+m.ID+"/refill", "token-u1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var reminders []models.MedicationReminder
	decode(t, s.do(t, http.MethodGet, "/api/v1/medications/reminders?scope=all", "token-u1", nil), &reminders)
	var ids []string
	for _, r := range reminders {
		if r.MedicationID == m.ID {
			ids = append(ids, r.ID)
		}
	}
	require.Len(t, ids, 1)

	w = s.do(t, http.MethodPatch, "/api/v1/medications/reminders/"+ids[0]+"/complete", "token-u1", gin.H{"notes": "with dinner"})
	require.Equal(t, http.StatusOK, w.Code)

	var adherence struct{ Rate int }
	decode(t, s.do(t, http.MethodGet, "/api/v1/medications/adherence?medicationId="+m.ID, "token-u1", nil), &adherence)
	assert.Equal(t, 100, adherence.Rate)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/medications/reminders?scope=weekly", "token-u1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/medications/interactions", "token-u1", gin.H{"medicationIds": []string{}}).Code)

	w = s.do(t, http.MethodDelete, "/api/v1/medications/"+m.ID, "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/medications/"+m.ID, "token-u1", nil).Code)
}

func TestMedications_RefillAlertIsAnnounced(t *testing.T) {
	s := setupServer(t)

	var alerts []models.RefillAlert
	decode(t, s.do(t, http.MethodGet, "/api/v1/medications/alerts", "token-u1", nil), &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Metformin", alerts[0].MedicationName)
	assert.Equal(t, 5, alerts[0].DaysUntilEmpty)
	assert.Equal(t, models.PriorityMedium, alerts[0].Priority)

	// the default window of 3 days does not cover it yet
	prefs := settings.DefaultNotificationPreferences()
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/v1/settings/notifications", "token-u1", prefs).Code)
	assert.Zero(t, s.notes.Count(notify.KindRefillAlert))

	prefs.Timing.RefillReminder = 7
	for i := 0; i < 2; i++ {
		w := s.do(t, http.MethodPut, "/api/v1/settings/notifications", "token-u1", prefs)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	require.Equal(t, 1, s.notes.Count(notify.KindRefillAlert))
	for _, n := range s.notes.Sent() {
		if n.Kind == notify.KindRefillAlert {
			assert.Equal(t, "u1", n.UserID)
			assert.Equal(t, "2", n.Data["medicationId"])
		}
	}
}

func TestReminders_DailyReplan(t *testing.T) {
	s := setupServer(t)

	prefs := settings.DefaultNotificationPreferences()
	prefs.Timing.RefillReminder = 7
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/api/v1/settings/notifications", "token-u1", prefs).Code)
	require.Equal(t, 1, s.notes.Count(notify.KindRefillAlert))

	armed := s.reminders.SyncAll(context.Background(), s.registry)
	assert.Equal(t, s.scheduler.Pending("u1"), armed)
	assert.Zero(t, s.scheduler.Pending("u2"), "users without a workspace are not planned")
	assert.Equal(t, 1, s.notes.Count(notify.KindRefillAlert), "replanning does not repeat the day's refill alert")
}

func TestMedications_Export(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/medications/export", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "medications.xlsx")
	// xlsx files are zip archives
	assert.Equal(t, []byte("PK"), w.Body.Bytes()[:2])
}

func TestPharmacies_Preferred(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPatch, "/api/v1/pharmacies/2/preferred", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pharmacies []models.Pharmacy
	decode(t, w, &pharmacies)
	for _, p := range pharmacies {
		assert.Equal(t, p.ID == "2", p.IsPreferred, p.Name)
	}

	w = s.do(t, http.MethodPost, "/api/v1/pharmacies", "token-u1", gin.H{"name": "Rite Aid", "isPreferred": true})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEmergency_TriggerAndCancel(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/emergency/location", "token-u1", gin.H{"lat": 91, "lng": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/emergency/location", "token-u1", gin.H{"lat": 40.7128, "lng": -74.006, "accuracy": 12})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/emergency/trigger", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st models.EmergencyStatus
	decode(t, w, &st)
	assert.True(t, st.Active)
	require.NotNil(t, st.Location)
	assert.Equal(t, 40.7128, st.Location.Lat)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/v1/emergency/trigger", "token-u1", nil).Code)

	for i := 0; i < 2; i++ {
		w = s.do(t, http.MethodPost, "/api/v1/emergency/cancel", "token-u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, []string{notify.KindEmergencyActivated, notify.KindEmergencyCancelled}, s.notes.Kinds())
}

func TestEmergency_LocationPermissionDenied(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/emergency/location/error", "token-u1", gin.H{"code": "permission-denied"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/emergency/location", "token-u1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission_denied", decode(t, w, nil).Code)

	w = s.do(t, http.MethodPost, "/api/v1/emergency/share", "token-u1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestVoice_Conversation(t *testing.T) {
	s := setupServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/v1/voice/sessions/current/messages", "token-u1", gin.H{"text": "hi"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/voice/sessions", "token-u1", gin.H{"category": "smalltalk"}).Code)

	w := s.do(t, http.MethodPost, "/api/v1/voice/sessions", "token-u1", gin.H{"category": "symptom-check"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/voice/sessions/current/messages", "token-u1", gin.H{"text": "I have a headache"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session models.VoiceSession
	decode(t, w, &session)
	assert.Len(t, session.Messages, 3)
	assert.Equal(t, 2, s.notes.Count(notify.KindSpeechSpeak))

	w = s.do(t, http.MethodDelete, "/api/v1/voice/sessions/current", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/voice/sessions/current", "token-u1", nil).Code)
}

func TestVoice_RecognitionEvents(t *testing.T) {
	s := setupServer(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/voice/listening", "token-u1", nil).Code)

	w := s.do(t, http.MethodPost, "/api/v1/voice/recognition/events", "token-u1", gin.H{
		"type": "result", "resultIndex": 0,
		"results": []gin.H{{"transcript": "take my pills", "isFinal": true}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var state models.VoiceState
	decode(t, w, &state)
	assert.Equal(t, "take my pills", state.Transcript)
	assert.Equal(t, 0.8, state.Confidence)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/voice/recognition/events", "token-u1", gin.H{"type": "end"}).Code)
	w = s.do(t, http.MethodGet, "/api/v1/voice/recognition", "token-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/voice/recognition/events", "token-u1", gin.H{"type": "error", "error": "not-allowed"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/v1/voice/recognition", "token-u1", nil).Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/voice/recognition/events", "token-u1", gin.H{"type": "pause"}).Code)
}

func TestAI_AnalyzeAndAsk(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/ai/symptoms", "token-u1", gin.H{"symptoms": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/ai/symptoms", "token-u1", gin.H{"symptoms": []gin.H{
		{"name": "chest pain", "severity": "severe"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var analysis models.SymptomAnalysis
	decode(t, w, &analysis)
	assert.Equal(t, models.Urgency("emergency"), analysis.Analysis.UrgencyLevel)

	w = s.do(t, http.MethodPost, "/api/v1/ai/ask", "token-u1", gin.H{"question": "Why do I get a headache?"})
	require.Equal(t, http.StatusOK, w.Code)
	var answer struct{ Answer string }
	decode(t, w, &answer)
	assert.Contains(t, answer.Answer, "Headaches can have many causes")
}

func TestSettings(t *testing.T) {
	s := setupServer(t)

	var lang struct{ Language string }
	decode(t, s.do(t, http.MethodGet, "/api/v1/settings/language", "token-u1", nil), &lang)
	assert.Equal(t, "en", lang.Language)

	w := s.do(t, http.MethodPut, "/api/v1/settings/language", "token-u1", gin.H{"language": "es-mx"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &lang)
	assert.Equal(t, "es-MX", lang.Language)

	prefs := settings.DefaultNotificationPreferences()
	prefs.QuietHours.Start = "late"
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/v1/settings/notifications", "token-u1", prefs).Code)

	prefs = settings.DefaultNotificationPreferences()
	prefs.Enabled = false
	w = s.do(t, http.MethodPut, "/api/v1/settings/notifications", "token-u1", prefs)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, s.scheduler.Pending("u1"))

	var saved settings.NotificationPreferences
	decode(t, s.do(t, http.MethodGet, "/api/v1/settings/notifications", "token-u1", nil), &saved)
	assert.False(t, saved.Enabled)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodDelete, "/api/v1/settings", "token-u1", nil).Code)
	decode(t, s.do(t, http.MethodGet, "/api/v1/settings/notifications", "token-u1", nil), &saved)
	assert.True(t, saved.Enabled)

	s.redis.SetError("redis down")
	assert.Equal(t, http.StatusInternalServerError, s.do(t, http.MethodGet, "/api/v1/settings/language", "token-u1", nil).Code)
}
