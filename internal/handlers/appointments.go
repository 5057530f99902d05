package handlers

import (
	"time"

	"healthbridge-server/internal/models"
	"healthbridge-server/internal/stores"
	"healthbridge-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Registry *stores.Registry
	Location *time.Location
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(reg *stores.Registry, loc *time.Location) *AppointmentHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AppointmentHandler{Registry: reg, Location: loc}
}

// CreateAppointmentRequest books a visit with a directory doctor.
type CreateAppointmentRequest struct {
	DoctorID int `json:"doctorId" binding:"required"`
	models.Booking
}

// CreateAppointment books an appointment with a directory doctor.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}

	a, err := ws.Appointments.Book(req.DoctorID, req.Booking)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", a)
}

// GetAppointments lists every appointment of the user.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Appointments fetched successfully", ws.Appointments.List())
}

// GetUpcomingAppointments lists future, non-cancelled appointments, soonest first.
func (h *AppointmentHandler) GetUpcomingAppointments(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Upcoming appointments fetched successfully", ws.Appointments.Upcoming())
}

// GetPastAppointments lists elapsed or completed appointments, latest first.
func (h *AppointmentHandler) GetPastAppointments(c *gin.Context) {
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	utils.Success(c, "Past appointments fetched successfully", ws.Appointments.Past())
}

// GetAppointmentByID fetches a single appointment.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	a, err := ws.Appointments.Get(id)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", a)
}

// UpdateAppointmentRequest is a partial update. Date and Time, when both set,
// reschedule the appointment.
type UpdateAppointmentRequest struct {
	models.AppointmentPatch
	Date string `json:"date"`
	Time string `json:"time"`
}

// UpdateAppointment merges the request into an appointment.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req UpdateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.Date != "" || req.Time != "" {
		at, err := models.ParseSchedule(req.Date, req.Time, h.Location)
		if err != nil {
			utils.BadRequest(c, err.Error())
			return
		}
		req.ScheduledAt = &at
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}

	a, err := ws.Appointments.Update(id, req.AppointmentPatch)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", a)
}

// CancelAppointment marks an appointment cancelled. The record is kept.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	ws, ok := workspace(c, h.Registry)
	if !ok {
		return
	}
	a, err := ws.Appointments.Cancel(id)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Appointment cancelled successfully", a)
}
