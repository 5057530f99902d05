package routes

import (
	"net/http"
	"time"

	"healthbridge-server/internal/config"
	"healthbridge-server/internal/handlers"
	"healthbridge-server/internal/identity"
	"healthbridge-server/internal/middleware"
	"healthbridge-server/internal/scheduler"
	"healthbridge-server/internal/settings"
	"healthbridge-server/internal/stores"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the long-lived services the handlers are built from.
type Deps struct {
	Config    *config.Config
	Provider  identity.Provider
	Registry  *stores.Registry
	Settings  *settings.Service
	Scheduler *scheduler.ReminderScheduler
	Reminders *handlers.ReminderSync
	Log       *zap.Logger
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, d Deps) {
	reminders := d.Reminders
	if reminders == nil {
		reminders = &handlers.ReminderSync{
			Settings:  d.Settings,
			Scheduler: d.Scheduler,
			Now:       time.Now,
			Log:       d.Log.Named("reminders"),
		}
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(d.Provider, d.Scheduler, d.Config, d.Log)
	doctorHandler := handlers.NewDoctorHandler(d.Registry.Doctors())
	appointmentHandler := handlers.NewAppointmentHandler(d.Registry, d.Config.Location)
	medicationHandler := handlers.NewMedicationHandler(d.Registry, reminders, d.Log)
	emergencyHandler := handlers.NewEmergencyHandler(d.Registry)
	voiceHandler := handlers.NewVoiceHandler(d.Registry)
	aiHandler := handlers.NewAIHandler(d.Registry)
	settingsHandler := handlers.NewSettingsHandler(d.Settings, d.Registry, reminders)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(d.Provider))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/me", authHandler.GetProfile)
		}

		doctorRoutes := private.Group("/doctors")
		{
			doctorRoutes.GET("", doctorHandler.GetDoctors)
			doctorRoutes.GET("/specialties", doctorHandler.GetSpecialties)
			doctorRoutes.GET("/:id", doctorHandler.GetDoctorByID)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.GET("/upcoming", appointmentHandler.GetUpcomingAppointments)
			appointmentRoutes.GET("/past", appointmentHandler.GetPastAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PUT("/:id", appointmentHandler.UpdateAppointment)
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.CancelAppointment)
		}

		medicationRoutes := private.Group("/medications")
		{
			medicationRoutes.GET("", medicationHandler.GetMedications)
			medicationRoutes.POST("", medicationHandler.CreateMedication)
			medicationRoutes.GET("/reminders", medicationHandler.GetReminders)
			medicationRoutes.PATCH("/reminders/:id/complete", medicationHandler.CompleteReminder)
			medicationRoutes.GET("/interactions", medicationHandler.GetInteractionTable)
			medicationRoutes.POST("/interactions", medicationHandler.CheckInteractions)
			medicationRoutes.GET("/adherence", medicationHandler.GetAdherence)
			medicationRoutes.GET("/missed", medicationHandler.GetMissedDoses)
			medicationRoutes.GET("/alerts", medicationHandler.GetRefillAlerts)
			medicationRoutes.GET("/export", medicationHandler.ExportMedications)
			medicationRoutes.GET("/:id", medicationHandler.GetMedicationByID)
			medicationRoutes.PUT("/:id", medicationHandler.UpdateMedication)
			medicationRoutes.DELETE("/:id", medicationHandler.DeleteMedication)
			medicationRoutes.PATCH("/:id/toggle", medicationHandler.ToggleMedication)
			medicationRoutes.POST("/:id/refill", medicationHandler.RequestRefill)
		}

		pharmacyRoutes := private.Group("/pharmacies")
		{
			pharmacyRoutes.GET("", medicationHandler.GetPharmacies)
			pharmacyRoutes.POST("", medicationHandler.CreatePharmacy)
			pharmacyRoutes.PUT("/:id", medicationHandler.UpdatePharmacy)
			pharmacyRoutes.PATCH("/:id/preferred", medicationHandler.SetPreferredPharmacy)
		}

		emergencyRoutes := private.Group("/emergency")
		{
			emergencyRoutes.GET("/contacts", emergencyHandler.GetContacts)
			emergencyRoutes.POST("/contacts", emergencyHandler.CreateContact)
			emergencyRoutes.PUT("/contacts/:id", emergencyHandler.UpdateContact)
			emergencyRoutes.DELETE("/contacts/:id", emergencyHandler.DeleteContact)
			emergencyRoutes.GET("/medical-info", emergencyHandler.GetMedicalInfo)
			emergencyRoutes.PUT("/medical-info", emergencyHandler.UpdateMedicalInfo)
			emergencyRoutes.GET("/location", emergencyHandler.GetLocation)
			emergencyRoutes.POST("/location", emergencyHandler.ReportLocation)
			emergencyRoutes.POST("/location/error", emergencyHandler.ReportLocationError)
			emergencyRoutes.POST("/share", emergencyHandler.ShareLocation)
			emergencyRoutes.POST("/trigger", emergencyHandler.TriggerEmergency)
			emergencyRoutes.POST("/cancel", emergencyHandler.CancelEmergency)
			emergencyRoutes.GET("/status", emergencyHandler.GetStatus)
		}

		voiceRoutes := private.Group("/voice")
		{
			voiceRoutes.GET("/state", voiceHandler.GetState)
			voiceRoutes.POST("/listening", voiceHandler.StartListening)
			voiceRoutes.DELETE("/listening", voiceHandler.StopListening)
			voiceRoutes.POST("/listen", voiceHandler.Listen)
			voiceRoutes.GET("/recognition", voiceHandler.GetOutcome)
			voiceRoutes.POST("/recognition/events", voiceHandler.RecognitionEvent)
			voiceRoutes.POST("/speech", voiceHandler.Speak)
			voiceRoutes.DELETE("/speech", voiceHandler.StopSpeaking)
			voiceRoutes.POST("/speech/events", voiceHandler.SpeechEvent)
			voiceRoutes.POST("/sessions", voiceHandler.StartSession)
			voiceRoutes.GET("/sessions", voiceHandler.GetSessionHistory)
			voiceRoutes.GET("/sessions/current", voiceHandler.GetCurrentSession)
			voiceRoutes.DELETE("/sessions/current", voiceHandler.EndSession)
			voiceRoutes.POST("/sessions/current/messages", voiceHandler.SendMessage)
			voiceRoutes.GET("/symptom-reports", voiceHandler.GetSymptomReports)
			voiceRoutes.POST("/symptom-reports", voiceHandler.ReportSymptoms)
			voiceRoutes.GET("/reminders", voiceHandler.GetVoiceReminders)
			voiceRoutes.POST("/reminders", voiceHandler.CreateVoiceReminder)
			voiceRoutes.PATCH("/reminders/:id/acknowledge", voiceHandler.AcknowledgeVoiceReminder)
			voiceRoutes.GET("/coaching", voiceHandler.GetCoachingSessions)
			voiceRoutes.POST("/coaching", voiceHandler.StartCoaching)
			voiceRoutes.GET("/settings", voiceHandler.GetSettings)
			voiceRoutes.PUT("/settings", voiceHandler.UpdateSettings)
		}

		aiRoutes := private.Group("/ai")
		{
			aiRoutes.POST("/symptoms", aiHandler.AnalyzeSymptoms)
			aiRoutes.GET("/symptoms", aiHandler.GetSymptomHistory)
			aiRoutes.POST("/risks", aiHandler.AssessRisks)
			aiRoutes.GET("/risks", aiHandler.GetRisks)
			aiRoutes.POST("/recommendations", aiHandler.GenerateRecommendations)
			aiRoutes.GET("/recommendations", aiHandler.GetRecommendations)
			aiRoutes.PATCH("/recommendations/:id/complete", aiHandler.CompleteRecommendation)
			aiRoutes.POST("/scheduling", aiHandler.GenerateScheduling)
			aiRoutes.GET("/scheduling", aiHandler.GetScheduling)
			aiRoutes.POST("/ask", aiHandler.Ask)
		}

		settingsRoutes := private.Group("/settings")
		{
			settingsRoutes.GET("/notifications", settingsHandler.GetNotificationPreferences)
			settingsRoutes.PUT("/notifications", settingsHandler.UpdateNotificationPreferences)
			settingsRoutes.GET("/language", settingsHandler.GetLanguage)
			settingsRoutes.PUT("/language", settingsHandler.UpdateLanguage)
			settingsRoutes.DELETE("", settingsHandler.ResetSettings)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
