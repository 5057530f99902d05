package handlers

import (
	"healthbridge-server/internal/stores"
	"healthbridge-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// DoctorHandler serves the shared doctor directory.
type DoctorHandler struct {
	Directory *stores.DoctorDirectory
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(dir *stores.DoctorDirectory) *DoctorHandler {
	return &DoctorHandler{Directory: dir}
}

// GetDoctors searches the directory by ?q= and ?specialty=.
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	doctors := h.Directory.Search(c.Query("q"), c.Query("specialty"))
	utils.Success(c, "Doctors fetched successfully", doctors)
}

// GetSpecialties lists the specialties present in the directory.
func (h *DoctorHandler) GetSpecialties(c *gin.Context) {
	utils.Success(c, "Specialties fetched successfully", h.Directory.Specialties())
}

// GetDoctorByID fetches a single doctor.
func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	d, err := h.Directory.Get(id)
	if err != nil {
		utils.FromError(c, err)
		return
	}
	utils.Success(c, "Doctor fetched successfully", d)
}
