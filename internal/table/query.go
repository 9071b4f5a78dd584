package table

import (
	"strings"

	"github.com/jwalitptl/patient-portal/internal/model"
)

// DefaultPageSize is the number of rows per page when none is requested.
const DefaultPageSize = 5

type SortKey string

const (
	SortNone   SortKey = ""
	SortName   SortKey = "name"
	SortDate   SortKey = "date"
	SortTime   SortKey = "time"
	SortStatus SortKey = "status"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Query is the view state of the appointment table. Filtering, sorting and
// paging are independent of each other and of row selection.
type Query struct {
	Sort   SortKey                 `form:"sort" json:"sort,omitempty" binding:"omitempty,oneof=name date time status"`
	Dir    Direction               `form:"dir" json:"dir,omitempty" binding:"omitempty,oneof=asc desc"`
	Name   string                  `form:"q" json:"q,omitempty"`
	Status model.AppointmentStatus `form:"status" json:"status,omitempty" binding:"omitempty,oneof=pending confirmed rejected cancelled completed"`
	Hidden []ColumnKey             `form:"hide" json:"hide,omitempty"`
	Page   int                     `form:"page" json:"page" binding:"min=0"`
	Size   int                     `form:"size" json:"size" binding:"omitempty,min=1,max=100"`
}

// WithStatus returns q filtered to a single status, replacing any earlier
// status filter. An empty status clears it.
func (q Query) WithStatus(s model.AppointmentStatus) Query {
	q.Status = s
	q.Page = 0
	return q
}

// WithName returns q filtered on patient name.
func (q Query) WithName(name string) Query {
	q.Name = name
	q.Page = 0
	return q
}

func (q Query) matches(a model.Appointment) bool {
	if q.Status != "" && a.Status != q.Status {
		return false
	}
	if name := strings.TrimSpace(q.Name); name != "" {
		return strings.Contains(strings.ToLower(a.PatientName), strings.ToLower(name))
	}
	return true
}
