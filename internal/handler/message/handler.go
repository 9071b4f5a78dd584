package message

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-portal/internal/flash"
	"github.com/jwalitptl/patient-portal/internal/handler"
	apperrors "github.com/jwalitptl/patient-portal/pkg/errors"
	"github.com/jwalitptl/patient-portal/pkg/httputil"
)

// Board is the per-session flash board.
type Board interface {
	Messages(sessionID string) []flash.Message
	Dismiss(sessionID, id string) bool
}

// Handler serves the flash banner: the messages currently shown to a
// session and their dismissal.
type Handler struct {
	board Board
}

func NewHandler(board Board) *Handler {
	return &Handler{board: board}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	for _, portal := range []string{"/patient", "/admin"} {
		g := r.Group(portal + "/messages")
		g.GET("", h.List)
		g.DELETE("/:id", h.Dismiss)
	}
}

func (h *Handler) List(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.board.Messages(handler.SessionID(c)))
}

func (h *Handler) Dismiss(c *gin.Context) {
	if !h.board.Dismiss(handler.SessionID(c), c.Param("id")) {
		httputil.RespondWithError(c, apperrors.NotFound("message", nil))
		return
	}
	c.Status(http.StatusNoContent)
}
