package appointment

import (
	"github.com/jwalitptl/patient-portal/internal/model"
	"github.com/jwalitptl/patient-portal/internal/table"
)

// Details is the read-only summary shown for one appointment.
type Details struct {
	ID                   string            `json:"appointment_id"`
	PatientID            string            `json:"patient_id"`
	PatientName          string            `json:"patient_name"`
	PatientContact       string            `json:"patient_contact"`
	ContactEmail         string            `json:"contact_email"`
	DoctorName           string            `json:"doctor_name"`
	DoctorSpecialization string            `json:"doctor_specialization"`
	ReasonForVisit       string            `json:"reason_for_visit"`
	Date                 string            `json:"date"`
	Time                 string            `json:"time"`
	Status               string            `json:"status"`
	StatusColor          model.StatusColor `json:"status_color"`
}

func NewDetails(a model.Appointment) *Details {
	status := table.StatusCell(a.Status)
	return &Details{
		ID:                   a.ID.String(),
		PatientID:            a.PatientID.String(),
		PatientName:          a.PatientName,
		PatientContact:       a.PatientContact,
		ContactEmail:         a.ContactEmail,
		DoctorName:           a.DoctorName,
		DoctorSpecialization: a.DoctorSpecialization,
		ReasonForVisit:       a.ReasonForVisit,
		Date:                 table.DateCell(a.DateTime).Text,
		Time:                 table.TimeCell(a.DateTime).Text,
		Status:               status.Text,
		StatusColor:          status.Color,
	}
}
