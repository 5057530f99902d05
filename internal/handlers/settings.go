package handlers

import (
	"healthbridge-server/internal/middleware"
	"healthbridge-server/internal/settings"
	"healthbridge-server/internal/stores"
	"healthbridge-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// SettingsHandler handles notification preferences and the display language.
type SettingsHandler struct {
	Settings  *settings.Service
	Registry  *stores.Registry
	Reminders *ReminderSync
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(svc *settings.Service, reg *stores.Registry, reminders *ReminderSync) *SettingsHandler {
	return &SettingsHandler{Settings: svc, Registry: reg, Reminders: reminders}
}

// GetNotificationPreferences returns the saved preferences or the defaults.
func (h *SettingsHandler) GetNotificationPreferences(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	p, err := h.Settings.NotificationPreferences(c.Request.Context(), userID)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Notification preferences fetched successfully", p)
}

// UpdateNotificationPreferences saves the preferences and re-arms today's reminders.
func (h *SettingsHandler) UpdateNotificationPreferences(c *gin.Context) {
	var req settings.NotificationPreferences
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	p, err := h.Settings.SaveNotificationPreferences(c.Request.Context(), ws.UserID, req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	scheduled := h.Reminders.Sync(c.Request.Context(), ws)
	utils.Success(c, "Notification preferences updated", gin.H{"preferences": p, "scheduledReminders": scheduled})
}

// GetLanguage returns the display language.
func (h *SettingsHandler) GetLanguage(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)
	lang, err := h.Settings.Language(c.Request.Context(), userID)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Language fetched successfully", gin.H{"language": lang})
}

// LanguageRequest is a BCP 47 language tag.
type LanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

// UpdateLanguage stores the display language.
func (h *SettingsHandler) UpdateLanguage(c *gin.Context) {
	var req LanguageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID, _ := middleware.GetUserIDFromContext(c)
	lang, err := h.Settings.SetLanguage(c.Request.Context(), userID, req.Language)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Language updated", gin.H{"language": lang})
}

// ResetSettings drops every stored setting of the user.
func (h *SettingsHandler) ResetSettings(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	if err := h.Settings.Reset(c.Request.Context(), ws.UserID); err != nil {
		utils.FromError(c, err)
		return
	}
	h.Reminders.Sync(c.Request.Context(), ws)
	utils.Success(c, "Settings reset", nil)
}
