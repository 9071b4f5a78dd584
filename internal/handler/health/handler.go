package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Checker reports whether a dependency can currently serve requests.
type Checker interface {
	Ready() bool
}

type Handler struct {
	backend Checker
}

func NewHandler(backend Checker) *Handler {
	return &Handler{
		backend: backend,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.backend != nil && !h.backend.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "DOWN",
			"reason": "Hospital backend circuit open",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
