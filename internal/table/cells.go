package table

import (
	"github.com/jwalitptl/patient-portal/internal/model"
)

const (
	DateLayout = "Jan 02, 2006"
	TimeLayout = "03:04 PM"

	InvalidDate = "Invalid Date"
	InvalidTime = "Invalid Time"
)

// Cell is a rendered table cell.
type Cell struct {
	Text  string            `json:"text"`
	Color model.StatusColor `json:"color,omitempty"`
	Valid bool              `json:"valid"`
}

func TextCell(s string) Cell {
	return Cell{Text: s, Valid: true}
}

// DateCell renders the calendar date of ts, or the invalid marker.
func DateCell(ts model.Timestamp) Cell {
	if !ts.Valid() {
		return Cell{Text: InvalidDate}
	}
	return Cell{Text: ts.Format(DateLayout), Valid: true}
}

// TimeCell renders the time of day of ts, or the invalid marker.
func TimeCell(ts model.Timestamp) Cell {
	if !ts.Valid() {
		return Cell{Text: InvalidTime}
	}
	return Cell{Text: ts.Format(TimeLayout), Valid: true}
}

// StatusCell renders the label and background color of a status. Statuses
// outside the known set fall back to the neutral color.
func StatusCell(s model.AppointmentStatus) Cell {
	if !s.Valid() {
		return Cell{Text: s.Label(), Color: model.ColorNeutral}
	}
	return Cell{Text: s.Label(), Color: s.Color(), Valid: true}
}
