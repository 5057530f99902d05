package models

// Doctor is an entry of the searchable doctor directory.
type Doctor struct {
	ID              int      `json:"id"`
	Name            string   `json:"name"`
	Specialty       string   `json:"specialty"`
	Rating          float64  `json:"rating"`
	Reviews         int      `json:"reviews"`
	Location        string   `json:"location"`
	Distance        string   `json:"distance"`
	Availability    string   `json:"availability"`
	ConsultationFee string   `json:"consultationFee"`
	Verified        bool     `json:"verified"`
	Languages       []string `json:"languages"`
	Experience      string   `json:"experience"`
}

// Ref returns the denormalized copy stored on appointments.
func (d Doctor) Ref() DoctorRef {
	return DoctorRef{ID: d.ID, Name: d.Name, Specialty: d.Specialty}
}
