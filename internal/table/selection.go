package table

import (
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/patient-portal/internal/model"
)

// CheckState is the tri-state of the select-all checkbox.
type CheckState string

const (
	Unchecked     CheckState = "unchecked"
	Indeterminate CheckState = "indeterminate"
	Checked       CheckState = "checked"
)

// Selection is a set of selected appointment ids. It survives filtering,
// sorting and paging.
type Selection struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

func (s *Selection) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// Toggle flips id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Selection) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// IDs returns the selected ids in sorted order.
func (s *Selection) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}

// PageState is Checked when every row of page is selected, Indeterminate
// when some are and Unchecked otherwise. An empty page is Unchecked.
func (s *Selection) PageState(rows []model.Appointment) CheckState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	selected := 0
	for _, r := range rows {
		if _, ok := s.ids[r.ID.String()]; ok {
			selected++
		}
	}
	switch {
	case len(rows) == 0 || selected == 0:
		return Unchecked
	case selected == len(rows):
		return Checked
	}
	return Indeterminate
}

// ToggleAll selects every row of page, or clears them when all were already
// selected. Rows on other pages are untouched.
func (s *Selection) ToggleAll(rows []model.Appointment) CheckState {
	deselect := s.PageState(rows) == Checked

	s.mu.Lock()
	for _, r := range rows {
		if deselect {
			delete(s.ids, r.ID.String())
		} else {
			s.ids[r.ID.String()] = struct{}{}
		}
	}
	s.mu.Unlock()

	return s.PageState(rows)
}

// SelectionStore keeps one Selection per session.
type SelectionStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewSelectionStore(ttl time.Duration) *SelectionStore {
	return &SelectionStore{cache: cache.New(ttl, ttl)}
}

// For returns the session's selection, creating it on first use.
func (st *SelectionStore) For(sessionID string) *Selection {
	st.mu.Lock()
	defer st.mu.Unlock()

	if v, ok := st.cache.Get(sessionID); ok {
		return v.(*Selection)
	}
	sel := NewSelection()
	st.cache.SetDefault(sessionID, sel)
	return sel
}

func (st *SelectionStore) Drop(sessionID string) {
	st.cache.Delete(sessionID)
}
