package table

import (
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/patient-portal/internal/model"
)

// Page is one page of filtered and sorted rows.
type Page struct {
	Rows      []model.Appointment `json:"-"`
	Index     int                 `json:"index"`
	Size      int                 `json:"size"`
	Total     int                 `json:"total"`
	PageCount int                 `json:"page_count"`
	HasPrev   bool                `json:"has_prev"`
	HasNext   bool                `json:"has_next"`
}

type Table struct {
	PageSize int
}

func New() *Table {
	return &Table{PageSize: DefaultPageSize}
}

// Apply filters, sorts and paginates rows. rows is not modified. A page index
// past the end is clamped to the last page.
func (t *Table) Apply(rows []model.Appointment, q Query) Page {
	filtered := make([]model.Appointment, 0, len(rows))
	for _, r := range rows {
		if q.matches(r) {
			filtered = append(filtered, r)
		}
	}

	if q.Sort != SortNone {
		cmp := comparator(q.Sort)
		desc := q.Dir == Desc
		sort.SliceStable(filtered, func(i, j int) bool {
			c, ok := cmp(filtered[i], filtered[j])
			if desc && ok {
				c = -c
			}
			return c < 0
		})
	}

	size := q.Size
	if size <= 0 {
		size = t.PageSize
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(filtered)
	pageCount := (total + size - 1) / size
	if pageCount == 0 {
		pageCount = 1
	}
	index := q.Page
	if index < 0 {
		index = 0
	}
	if index >= pageCount {
		index = pageCount - 1
	}

	start := index * size
	end := start + size
	if end > total {
		end = total
	}

	return Page{
		Rows:      filtered[start:end],
		Index:     index,
		Size:      size,
		Total:     total,
		PageCount: pageCount,
		HasPrev:   index > 0,
		HasNext:   index < pageCount-1,
	}
}

// comparator returns a three-way compare for key. The bool is false when the
// result must not be reversed for descending order: rows with an invalid
// timestamp always sort last.
func comparator(key SortKey) func(a, b model.Appointment) (int, bool) {
	switch key {
	case SortName:
		return func(a, b model.Appointment) (int, bool) {
			return strings.Compare(strings.ToLower(a.PatientName), strings.ToLower(b.PatientName)), true
		}
	case SortStatus:
		return func(a, b model.Appointment) (int, bool) {
			return strings.Compare(string(a.Status), string(b.Status)), true
		}
	case SortDate:
		return timestampCompare(func(t time.Time) int64 { return t.UnixNano() })
	case SortTime:
		return timestampCompare(func(t time.Time) int64 {
			h, m, s := t.Clock()
			return int64(h*3600+m*60+s)*int64(time.Second) + int64(t.Nanosecond())
		})
	}
	return func(model.Appointment, model.Appointment) (int, bool) { return 0, true }
}

func timestampCompare(key func(time.Time) int64) func(a, b model.Appointment) (int, bool) {
	return func(a, b model.Appointment) (int, bool) {
		av, bv := a.DateTime.Valid(), b.DateTime.Valid()
		switch {
		case !av && !bv:
			return 0, false
		case !av:
			return 1, false
		case !bv:
			return -1, false
		}
		ka, kb := key(a.DateTime.Time), key(b.DateTime.Time)
		switch {
		case ka < kb:
			return -1, true
		case ka > kb:
			return 1, true
		}
		return 0, true
	}
}
