package table

import (
	"github.com/jwalitptl/patient-portal/internal/model"
)

// Row is one rendered table row. Cells holds visible columns only.
type Row struct {
	ID       string             `json:"id"`
	Selected bool               `json:"selected"`
	Cells    map[ColumnKey]Cell `json:"cells"`
	Actions  []string           `json:"actions"`
}

// View is the table as served to the admin portal.
type View struct {
	Columns   []Column   `json:"columns"`
	Rows      []Row      `json:"rows"`
	SelectAll CheckState `json:"select_all"`
	Selected  int        `json:"selected"`
	Page      Page       `json:"page"`
	Query     Query      `json:"query"`
	Statuses  []Cell     `json:"statuses"`
}

// RowActions are offered on every row regardless of status.
var RowActions = []string{"copy-id", "view", "confirm", "cancel", "reject", "complete", "reschedule"}

// Render applies q and renders the resulting page. sel may be nil.
func (t *Table) Render(rows []model.Appointment, q Query, sel *Selection) View {
	if sel == nil {
		sel = NewSelection()
	}
	page := t.Apply(rows, q)
	cols := Columns(q.Hidden)

	view := View{
		Columns:   cols,
		Rows:      make([]Row, 0, len(page.Rows)),
		SelectAll: sel.PageState(page.Rows),
		Selected:  sel.Len(),
		Page:      page,
		Query:     q,
		Statuses:  make([]Cell, 0, len(model.AppointmentStatuses)),
	}
	for _, s := range model.AppointmentStatuses {
		view.Statuses = append(view.Statuses, StatusCell(s))
	}

	for _, a := range page.Rows {
		id := a.ID.String()
		row := Row{
			ID:       id,
			Selected: sel.IsSelected(id),
			Cells:    make(map[ColumnKey]Cell, len(cols)),
			Actions:  RowActions,
		}
		for _, c := range cols {
			if c.Visible {
				row.Cells[c.Key] = RenderCell(c.Key, a)
			}
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// RenderCell renders one column of an appointment.
func RenderCell(key ColumnKey, a model.Appointment) Cell {
	switch key {
	case ColumnPatientName:
		return TextCell(a.PatientName)
	case ColumnDate:
		return DateCell(a.DateTime)
	case ColumnTime:
		return TimeCell(a.DateTime)
	case ColumnDoctor:
		return TextCell(a.DoctorName)
	case ColumnSpecialization:
		return TextCell(a.DoctorSpecialization)
	case ColumnReason:
		return TextCell(a.ReasonForVisit)
	case ColumnContact:
		return TextCell(a.PatientContact)
	case ColumnStatus:
		return StatusCell(a.Status)
	}
	return Cell{}
}
