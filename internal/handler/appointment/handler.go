package appointment

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-portal/internal/event"
	"github.com/jwalitptl/patient-portal/internal/handler"
	"github.com/jwalitptl/patient-portal/internal/model"
	"github.com/jwalitptl/patient-portal/internal/service/appointment"
	"github.com/jwalitptl/patient-portal/internal/table"
	"github.com/jwalitptl/patient-portal/pkg/httputil"
)

// datetimeLocal is the value format of an HTML datetime-local input.
const datetimeLocal = "2006-01-02T15:04"

const eventBuffer = 16

// Subscriber hands out event streams.
type Subscriber interface {
	Subscribe(buffer int) (<-chan event.Event, func())
}

type Handler struct {
	service    *appointment.Service
	table      *table.Table
	selections *table.SelectionStore
	events     Subscriber
}

func NewHandler(service *appointment.Service, t *table.Table, selections *table.SelectionStore, events Subscriber) *Handler {
	if t == nil {
		t = table.New()
	}
	return &Handler{
		service:    service,
		table:      t,
		selections: selections,
		events:     events,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	{
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/events", h.Events)

		appointments := admin.Group("/appointments")
		appointments.GET("", h.ListAppointments)
		appointments.POST("/selection", h.UpdateSelection)
		appointments.GET("/:id", h.GetAppointment)
		appointments.GET("/:id/copy-id", h.CopyID)
		appointments.GET("/:id/reschedule", h.GetReschedule)
		appointments.POST("/:id/reschedule", h.Reschedule)
		for _, action := range model.StatusActions {
			appointments.POST("/:id/"+string(action), h.Act(action))
		}
	}
}

// Dashboard summarizes appointments by status.
func (h *Handler) Dashboard(c *gin.Context) {
	rows, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	counts := make(map[model.AppointmentStatus]int, len(model.AppointmentStatuses))
	for _, s := range model.AppointmentStatuses {
		counts[s] = 0
	}
	other := 0
	for _, a := range rows {
		if a.Status.Valid() {
			counts[a.Status]++
		} else {
			other++
		}
	}

	summary := make([]gin.H, 0, len(model.AppointmentStatuses))
	for _, s := range model.AppointmentStatuses {
		cell := table.StatusCell(s)
		summary = append(summary, gin.H{"status": s, "label": cell.Text, "color": cell.Color, "count": counts[s]})
	}
	httputil.RespondWithSuccess(c, gin.H{
		"total":    len(rows),
		"statuses": summary,
		"other":    other,
	})
}

// ListAppointments serves one page of the appointment table.
func (h *Handler) ListAppointments(c *gin.Context) {
	var q table.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithError(c, handler.BindError(err))
		return
	}

	rows, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, h.table.Render(rows, q, h.selections.For(handler.SessionID(c))))
}

type selectionRequest struct {
	ID    string `json:"id" form:"id"`
	All   bool   `json:"all" form:"all"`
	Clear bool   `json:"clear" form:"clear"`
}

// UpdateSelection toggles one row, toggles every row of the current page, or
// clears the selection. The page is the one described by the query string.
func (h *Handler) UpdateSelection(c *gin.Context) {
	var q table.Query
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithError(c, handler.BindError(err))
		return
	}
	var req selectionRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondWithError(c, handler.BindError(err))
		return
	}

	rows, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	page := h.table.Apply(rows, q)

	sel := h.selections.For(handler.SessionID(c))
	switch {
	case req.Clear:
		sel.Clear()
	case req.ID != "":
		sel.Toggle(req.ID)
	case req.All:
		sel.ToggleAll(page.Rows)
	}

	httputil.RespondWithSuccess(c, gin.H{
		"select_all": sel.PageState(page.Rows),
		"selected":   sel.IDs(),
	})
}

func (h *Handler) GetAppointment(c *gin.Context) {
	details, err := h.service.ViewDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, details)
}

func (h *Handler) CopyID(c *gin.Context) {
	id, err := h.service.CopyID(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"appointment_id": id})
}

// Act returns the handler for one status-changing action.
func (h *Handler) Act(action model.AppointmentAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		outcome, err := h.service.Act(c.Request.Context(), handler.Session(c), action, c.Param("id"))
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithMessage(c, outcome.Message, outcome)
	}
}

// GetReschedule returns what the reschedule dialog is prefilled with.
func (h *Handler) GetReschedule(c *gin.Context) {
	target, err := h.service.RescheduleTarget(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	current := ""
	if target.DateTime.Valid() {
		current = target.DateTime.Format(datetimeLocal)
	}
	httputil.RespondWithSuccess(c, gin.H{
		"appointment":   appointment.NewDetails(target),
		"new_date_time": current,
	})
}

type rescheduleRequest struct {
	NewDateTime string `json:"new_date_time" form:"new_date_time" binding:"required"`
}

func (h *Handler) Reschedule(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBind(&req); err != nil {
		httputil.RespondWithError(c, handler.BindError(err))
		return
	}

	outcome, err := h.service.Reschedule(c.Request.Context(), handler.Session(c), c.Param("id"), req.NewDateTime)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, outcome.Message, outcome)
}

// Events streams appointment updates as server-sent events until the client
// goes away.
func (h *Handler) Events(c *gin.Context) {
	if h.events == nil {
		c.Status(http.StatusNoContent)
		return
	}
	events, cancel := h.events.Subscribe(eventBuffer)
	defer cancel()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case evt, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(evt.Type, evt)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", gin.H{"time": time.Now().UTC()})
			return true
		}
	})
}
