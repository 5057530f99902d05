package stores

import (
	"sort"
	"strings"

	"healthbridge-server/internal/apperr"
	"healthbridge-server/internal/models"
)

// DoctorDirectory is the read-only list of bookable doctors.
type DoctorDirectory struct {
	doctors []models.Doctor
}

// NewDoctorDirectory creates a directory over a copy of doctors.
func NewDoctorDirectory(doctors []models.Doctor) *DoctorDirectory {
	d := &DoctorDirectory{doctors: make([]models.Doctor, len(doctors))}
	for i, doc := range doctors {
		d.doctors[i] = cloneDoctor(doc)
	}
	return d
}

// Search returns doctors whose name or specialty contains query and, when
// specialty is set, whose specialty equals it. Both are case-insensitive.
func (d *DoctorDirectory) Search(query, specialty string) []models.Doctor {
	query = strings.ToLower(strings.TrimSpace(query))
	specialty = strings.TrimSpace(specialty)

	result := []models.Doctor{}
	for _, doc := range d.doctors {
		if specialty != "" && !strings.EqualFold(doc.Specialty, specialty) {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(doc.Name), query) &&
			!strings.Contains(strings.ToLower(doc.Specialty), query) {
			continue
		}
		result = append(result, cloneDoctor(doc))
	}
	return result
}

// Get returns the doctor with the given id.
func (d *DoctorDirectory) Get(id int) (models.Doctor, error) {
	for _, doc := range d.doctors {
		if doc.ID == id {
			return cloneDoctor(doc), nil
		}
	}
	return models.Doctor{}, apperr.NotFound("doctor %d not found", id)
}

// Specialties lists the distinct specialties in alphabetical order.
func (d *DoctorDirectory) Specialties() []string {
	seen := map[string]bool{}
	var out []string
	for _, doc := range d.doctors {
		if !seen[doc.Specialty] {
			seen[doc.Specialty] = true
			out = append(out, doc.Specialty)
		}
	}
	sort.Strings(out)
	return out
}

func cloneDoctor(d models.Doctor) models.Doctor {
	d.Languages = cloneStrings(d.Languages)
	return d
}
