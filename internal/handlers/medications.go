package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"healthbridge-server/internal/export"
	"healthbridge-server/internal/models"
	"healthbridge-server/internal/stores"
	"healthbridge-server/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// MedicationHandler handles medications, their doses and pharmacies.
type MedicationHandler struct {
	Registry  *stores.Registry
	Reminders *ReminderSync
	Log       *zap.Logger
}

// NewMedicationHandler creates a new MedicationHandler.
func NewMedicationHandler(reg *stores.Registry, reminders *ReminderSync, log *zap.Logger) *MedicationHandler {
	return &MedicationHandler{Registry: reg, Reminders: reminders, Log: log.Named("medications")}
}

// GetMedications lists the user's medications.
func (h *MedicationHandler) GetMedications(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Medications fetched successfully", ws.Medications.Medications())
}

// GetMedicationByID fetches a single medication.
func (h *MedicationHandler) GetMedicationByID(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	m, err := ws.Medications.Medication(c.Param("id"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Medication fetched successfully", m)
}

// CreateMedication adds a medication and materialises its doses for today.
func (h *MedicationHandler) CreateMedication(c *gin.Context) {
	var req models.Medication
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	m, err := ws.Medications.AddMedication(req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	h.Reminders.Sync(c.Request.Context(), ws)
	utils.Created(c, "Medication added successfully", m)
}

// UpdateMedication merges a partial update into a medication.
func (h *MedicationHandler) UpdateMedication(c *gin.Context) {
	var req models.MedicationPatch
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	m, err := ws.Medications.UpdateMedication(c.Param("id"), req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	h.Reminders.Sync(c.Request.Context(), ws)
	utils.Success(c, "Medication updated successfully", m)
}

// ToggleMedication flips a medication between active and paused.
func (h *MedicationHandler) ToggleMedication(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	m, err := ws.Medications.ToggleActive(c.Param("id"))
	if err != nil {
		utils.FromError(c, err)
		return
	}
	h.Reminders.Sync(c.Request.Context(), ws)
	utils.Success(c, "Medication status updated", m)
}

// DeleteMedication removes a medication with its doses and refill alert.
func (h *MedicationHandler) DeleteMedication(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	if err := ws.Medications.DeleteMedication(c.Param("id")); err != nil {
		utils.FromError(c, err)
		return
	}
	h.Reminders.Sync(c.Request.Context(), ws)
	utils.Success(c, "Medication deleted successfully", nil)
}

// RefillRequest optionally names the pharmacy to refill at.
type RefillRequest struct {
	PharmacyID string `json:"pharmacyId"`
}

// RequestRefill uses one refill of a medication.
func (h *MedicationHandler) RequestRefill(c *gin.Context) {
	var req RefillRequest
	if !bindOptional(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	m, err := ws.Medications.RequestRefill(c.Param("id"), req.PharmacyID)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	h.Reminders.Sync(c.Request.Context(), ws)
	utils.Success(c, "Refill requested successfully", m)
}

// InteractionsRequest lists the medications to check against each other.
type InteractionsRequest struct {
	MedicationIDs []string `json:"medicationIds" binding:"required,min=1"`
}

// CheckInteractions returns the known interactions among the given medications.
func (h *MedicationHandler) CheckInteractions(c *gin.Context) {
	var req InteractionsRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	found, err := ws.Medications.CheckInteractions(req.MedicationIDs)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Interactions checked successfully", found)
}

// GetReminders lists doses. ?scope=upcoming limits to today's open doses
// still ahead, ?scope=all returns every materialised dose; the default is today.
func (h *MedicationHandler) GetReminders(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	switch scope := c.DefaultQuery("scope", "today"); scope {
	case "today":
		utils.Success(c, "Reminders fetched successfully", ws.Medications.TodaysReminders())
	case "upcoming":
		utils.Success(c, "Reminders fetched successfully", ws.Medications.UpcomingReminders())
	case "all":
		utils.Success(c, "Reminders fetched successfully", ws.Medications.Reminders())
	default:
		utils.BadRequest(c, fmt.Sprintf("Invalid scope %q: want today, upcoming or all", scope))
	}
}

// CompleteReminderRequest carries an optional note on a taken dose.
type CompleteReminderRequest struct {
	Notes string `json:"notes"`
}

// CompleteReminder marks a dose as taken.
func (h *MedicationHandler) CompleteReminder(c *gin.Context) {
	var req CompleteReminderRequest
	if !bindOptional(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	r, err := ws.Medications.MarkReminderCompleted(c.Param("id"), req.Notes)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	h.Reminders.Sync(c.Request.Context(), ws)
	utils.Success(c, "Reminder marked as completed", r)
}

// GetAdherence returns the adherence rate of one medication (?medicationId=)
// or of all of them.
func (h *MedicationHandler) GetAdherence(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	id := c.Query("medicationId")
	rate, err := ws.Medications.AdherenceRate(id)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Adherence fetched successfully", gin.H{"medicationId": id, "rate": rate})
}

// GetMissedDoses lists open doses of the last ?days= days (default 7).
func (h *MedicationHandler) GetMissedDoses(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil {
		utils.BadRequest(c, "Invalid days: must be a number")
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	missed, err := ws.Medications.MissedDoses(days)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Missed doses fetched successfully", missed)
}

// GetRefillAlerts lists refill alerts, most urgent first.
func (h *MedicationHandler) GetRefillAlerts(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Refill alerts fetched successfully", ws.Medications.RefillAlerts())
}

// GetInteractionTable returns the reference interaction table.
func (h *MedicationHandler) GetInteractionTable(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Interactions fetched successfully", ws.Medications.Interactions())
}

// ExportMedications downloads medications, doses and adherence as xlsx.
func (h *MedicationHandler) ExportMedications(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	overall, err := ws.Medications.AdherenceRate("")
	if err != nil {
		utils.FromError(c, err)
		return
	}
	f, err := export.MedicationWorkbook(ws.Medications.Medications(), ws.Medications.Reminders(), overall)
	if err != nil {
		h.Log.Error("building medication workbook failed", zap.Error(err))
		utils.InternalServerError(c, "Failed to build export")
		return
	}
	data, err := export.Bytes(f)
	if err != nil {
		h.Log.Error("writing medication workbook failed", zap.Error(err))
		utils.InternalServerError(c, "Failed to build export")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="medications.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetPharmacies lists the user's pharmacies.
func (h *MedicationHandler) GetPharmacies(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Pharmacies fetched successfully", ws.Medications.Pharmacies())
}

// CreatePharmacy adds a pharmacy.
func (h *MedicationHandler) CreatePharmacy(c *gin.Context) {
	var req models.Pharmacy
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	p, err := ws.Medications.AddPharmacy(req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "Pharmacy added successfully", p)
}

// UpdatePharmacy merges a partial update into a pharmacy.
func (h *MedicationHandler) UpdatePharmacy(c *gin.Context) {
	var req models.PharmacyPatch
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	p, err := ws.Medications.UpdatePharmacy(c.Param("id"), req)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Pharmacy updated successfully", p)
}

// SetPreferredPharmacy makes one pharmacy the only preferred one.
func (h *MedicationHandler) SetPreferredPharmacy(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	if err := ws.Medications.SetPreferredPharmacy(c.Param("id")); err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Preferred pharmacy updated", ws.Medications.Pharmacies())
}
