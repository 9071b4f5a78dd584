package patient

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-portal/internal/handler"
	"github.com/jwalitptl/patient-portal/internal/service/appointment"
	"github.com/jwalitptl/patient-portal/pkg/httputil"
)

type Handler struct {
	appointments *appointment.Service
}

func NewHandler(appointments *appointment.Service) *Handler {
	return &Handler{appointments: appointments}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patient")
	{
		patients.GET("/dashboard", h.Dashboard)
	}
}

// Dashboard lists the signed-in patient's upcoming appointments.
func (h *Handler) Dashboard(c *gin.Context) {
	sess := handler.Session(c)
	rows, err := h.appointments.Upcoming(c.Request.Context(), sess)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	upcoming := make([]*appointment.Details, 0, len(rows))
	for _, a := range rows {
		upcoming = append(upcoming, appointment.NewDetails(a))
	}
	httputil.RespondWithSuccess(c, gin.H{
		"user":                  sess.Profile,
		"upcoming_appointments": upcoming,
	})
}
