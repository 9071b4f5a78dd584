package table

type ColumnKey string

const (
	ColumnPatientName    ColumnKey = "patient_name"
	ColumnDate           ColumnKey = "date"
	ColumnTime           ColumnKey = "time"
	ColumnDoctor         ColumnKey = "doctor_name"
	ColumnSpecialization ColumnKey = "doctor_specialization"
	ColumnReason         ColumnKey = "reason_for_visit"
	ColumnContact        ColumnKey = "patient_contact"
	ColumnStatus         ColumnKey = "status"
)

type Column struct {
	Key      ColumnKey `json:"key"`
	Header   string    `json:"header"`
	Sort     SortKey   `json:"sort,omitempty"`
	Hideable bool      `json:"hideable"`
	Visible  bool      `json:"visible"`
}

var defaultColumns = []Column{
	{Key: ColumnPatientName, Header: "Patient Name", Sort: SortName},
	{Key: ColumnDate, Header: "Date", Sort: SortDate},
	{Key: ColumnTime, Header: "Time", Sort: SortTime, Hideable: true},
	{Key: ColumnDoctor, Header: "Doctor", Hideable: true},
	{Key: ColumnSpecialization, Header: "Specialization", Hideable: true},
	{Key: ColumnReason, Header: "Reason", Hideable: true},
	{Key: ColumnContact, Header: "Contact", Hideable: true},
	{Key: ColumnStatus, Header: "Status", Sort: SortStatus, Hideable: true},
}

// Columns returns the column set with visibility applied. Only hideable
// columns can be hidden; unknown keys are ignored.
func Columns(hidden []ColumnKey) []Column {
	hide := make(map[ColumnKey]bool, len(hidden))
	for _, k := range hidden {
		hide[k] = true
	}

	cols := make([]Column, len(defaultColumns))
	for i, c := range defaultColumns {
		c.Visible = !(c.Hideable && hide[c.Key])
		cols[i] = c
	}
	return cols
}
