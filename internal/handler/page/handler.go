package page

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-portal/internal/middleware"
	"github.com/jwalitptl/patient-portal/pkg/httputil"
)

type page struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

var pages = []page{
	{middleware.PathHome, "Home"},
	{middleware.PathDataUsage, "How We Use Your Data"},
	{middleware.PathContact, "Contact Us"},
	{middleware.PathPatientLogin, "Patient Login"},
	{middleware.PathPatientRegister, "Patient Registration"},
	{middleware.PathAdminLogin, "Staff Login"},
}

// Handler serves the public pages. The portal front end renders them; the
// server only describes them.
type Handler struct {
	hospitalName string
}

func NewHandler(hospitalName string) *Handler {
	return &Handler{hospitalName: hospitalName}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	for _, p := range pages {
		p := p
		r.GET(p.Path, func(c *gin.Context) {
			httputil.RespondWithSuccess(c, gin.H{
				"page":     p,
				"hospital": h.hospitalName,
			})
		})
	}
}
