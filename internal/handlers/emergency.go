package handlers

import (
	"healthbridge-server/internal/models"
	"healthbridge-server/internal/stores"
	"healthbridge-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// EmergencyHandler handles emergency contacts, the medical card, location
// relay and the SOS state machine.
type EmergencyHandler struct {
	Registry *stores.Registry
}

// NewEmergencyHandler creates a new EmergencyHandler.
func NewEmergencyHandler(reg *stores.Registry) *EmergencyHandler {
	return &EmergencyHandler{Registry: reg}
}

// GetContacts lists emergency contacts.
func (h *EmergencyHandler) GetContacts(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Contacts fetched successfully", ws.Emergency.Contacts())
}

// CreateContact adds an emergency contact.
func (h *EmergencyHandler) CreateContact(c *gin.Context) {
	var req models.EmergencyContact
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	added, err := ws.Emergency.AddContact(req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "Contact added successfully", added)
}

// UpdateContact merges a partial update into a contact.
func (h *EmergencyHandler) UpdateContact(c *gin.Context) {
	var req models.EmergencyContactPatch
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	updated, err := ws.Emergency.UpdateContact(c.Param("id"), req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Contact updated successfully", updated)
}

// DeleteContact removes a contact.
func (h *EmergencyHandler) DeleteContact(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	if err := ws.Emergency.RemoveContact(c.Param("id")); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Contact removed successfully", nil)
}

// GetMedicalInfo returns the emergency medical card.
func (h *EmergencyHandler) GetMedicalInfo(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Medical info fetched successfully", ws.Emergency.MedicalInfo())
}

// UpdateMedicalInfo merges into the medical card; lists are replaced whole.
func (h *EmergencyHandler) UpdateMedicalInfo(c *gin.Context) {
	var req models.MedicalInfoPatch
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Medical info updated successfully", ws.Emergency.UpdateMedicalInfo(req))
}

// LocationReport is a fix relayed by the device.
type LocationReport struct {
	Lat      *float64 `json:"lat" binding:"required"`
	Lng      *float64 `json:"lng" binding:"required"`
	Accuracy float64  `json:"accuracy"`
}

// ReportLocation records a device fix and wakes anyone waiting for one.
func (h *EmergencyHandler) ReportLocation(c *gin.Context) {
	var req LocationReport
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	loc, err := ws.Location.Report(*req.Lat, *req.Lng, req.Accuracy)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Location recorded", loc)
}

// LocationErrorReport is a geolocation failure relayed by the device.
type LocationErrorReport struct {
	Code string `json:"code" binding:"required"`
}

// ReportLocationError records a device geolocation failure.
func (h *EmergencyHandler) ReportLocationError(c *gin.Context) {
	var req LocationErrorReport
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	classified := ws.Location.ReportError(req.Code)
	utils.Success(c, "Location error recorded", gin.H{"code": req.Code, "error": classified.Error()})
}

// GetLocation returns a fresh fix, waiting for the device when needed.
func (h *EmergencyHandler) GetLocation(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	loc, err := ws.Emergency.CurrentLocation(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Location fetched successfully", gin.H{"location": loc, "mapsUrl": stores.MapsURL(loc)})
}

// ShareLocation shares the current location with the contacts, or returns
// the clipboard text when sharing is not possible.
func (h *EmergencyHandler) ShareLocation(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	res, err := ws.Emergency.ShareLocation(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Location shared", res)
}

// TriggerEmergency activates the SOS flow.
func (h *EmergencyHandler) TriggerEmergency(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	st, err := ws.Emergency.TriggerEmergency(c.Request.Context())
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Emergency activated", st)
}

// CancelEmergency deactivates the SOS flow. Cancelling twice is harmless.
func (h *EmergencyHandler) CancelEmergency(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Emergency cancelled", ws.Emergency.CancelEmergency())
}

// GetStatus returns the emergency state.
func (h *EmergencyHandler) GetStatus(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Emergency status fetched successfully", ws.Emergency.Status())
}
