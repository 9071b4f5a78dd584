package bills

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-portal/internal/backend"
	"github.com/jwalitptl/patient-portal/internal/billing"
	"github.com/jwalitptl/patient-portal/internal/handler"
	"github.com/jwalitptl/patient-portal/internal/model"
	"github.com/jwalitptl/patient-portal/internal/session"
	apperrors "github.com/jwalitptl/patient-portal/pkg/errors"
	"github.com/jwalitptl/patient-portal/pkg/httputil"
)

// Source fetches bills from the hospital backend.
type Source interface {
	Invoice(ctx context.Context, id string) (*model.Invoice, error)
	Receipt(ctx context.Context, id string) (*model.Receipt, error)
}

type Handler struct {
	source   Source
	renderer *billing.Renderer
	logo     string
}

// NewHandler serves bill PDFs. logo is a file path or URL drawn on each
// document; it may be empty.
func NewHandler(source Source, renderer *billing.Renderer, logo string) *Handler {
	return &Handler{source: source, renderer: renderer, logo: logo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	for _, portal := range []string{"/patient", "/admin"} {
		g := r.Group(portal + "/bills")
		g.GET("/invoices/:file", h.Invoice)
		g.GET("/receipts/:file", h.Receipt)
	}
}

func (h *Handler) Invoice(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id string) (model.BillDocument, error) {
		inv, err := h.source.Invoice(ctx, id)
		if err != nil {
			return model.BillDocument{}, err
		}
		return inv.Document(), nil
	})
}

func (h *Handler) Receipt(c *gin.Context) {
	h.serve(c, func(ctx context.Context, id string) (model.BillDocument, error) {
		r, err := h.source.Receipt(ctx, id)
		if err != nil {
			return model.BillDocument{}, err
		}
		return r.Document(), nil
	})
}

func (h *Handler) serve(c *gin.Context, fetch func(context.Context, string) (model.BillDocument, error)) {
	id, ok := strings.CutSuffix(c.Param("file"), ".pdf")
	if !ok || id == "" {
		httputil.RespondWithError(c, apperrors.NotFound("bill", nil))
		return
	}

	doc, err := fetch(c.Request.Context(), id)
	if err != nil {
		var missing *backend.BillNotFound
		if errors.As(err, &missing) {
			httputil.RespondWithError(c, apperrors.NotFound(string(missing.Kind), err))
			return
		}
		httputil.RespondWithError(c, apperrors.Network(err))
		return
	}

	if !visible(handler.Session(c), doc) {
		httputil.RespondWithError(c, apperrors.Forbidden(string(doc.Kind)))
		return
	}

	pdf, err := h.renderer.Render(c.Request.Context(), doc, h.logo)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	disposition := "attachment"
	if c.Query("preview") != "" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, pdf.Filename()))
	c.Data(http.StatusOK, pdf.ContentType(), pdf.Bytes())
}

// visible reports whether the session may download doc. Staff see every
// bill; a patient only bills issued to them.
func visible(sess *session.Session, doc model.BillDocument) bool {
	if sess == nil {
		return false
	}
	if sess.Role.IsAdmin() {
		return true
	}
	patientID := sess.PatientID
	if patientID == "" {
		patientID = sess.UserID
	}
	return patientID != "" && doc.PatientID == patientID
}
