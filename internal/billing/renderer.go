package billing

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwalitptl/patient-portal/internal/model"
	"github.com/jwalitptl/patient-portal/pkg/metrics"
)

const (
	logoName     = "logo"
	bottomMargin = 20.0
	lineHeight   = 7.0

	colIndex  = 15.0
	colDesc   = 125.0
	colAmount = 50.0
)

// Renderer draws invoices and receipts as A4 PDF documents.
type Renderer struct {
	hospitalName string
	http         *http.Client
	compress     bool
	validate     *validator.Validate
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

type Option func(*Renderer)

// WithHTTPClient sets the client used for http(s) logo sources.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Renderer) {
		r.http = hc
	}
}

// WithCompression toggles PDF stream compression. It is on by default.
func WithCompression(on bool) Option {
	return func(r *Renderer) {
		r.compress = on
	}
}

func NewRenderer(hospitalName string, m *metrics.Metrics, logger zerolog.Logger, opts ...Option) *Renderer {
	if m == nil {
		m = metrics.NewNop()
	}
	r := &Renderer{
		hospitalName: hospitalName,
		http:         http.DefaultClient,
		compress:     true,
		validate:     validator.New(),
		metrics:      m,
		logger:       logger.With().Str("component", "billing").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// titleCase capitalizes each word for display. Underscores separate words.
func titleCase(s string) string {
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
	return cases.Title(language.English, cases.NoLower).String(s)
}

// Render draws doc. The logo at logoSrc (file path or http(s) URL) loads
// while the document is prepared; if it cannot be loaded or decoded the
// failure is logged and the document is produced without it.
func (r *Renderer) Render(ctx context.Context, doc model.BillDocument, logoSrc string) (*Document, error) {
	if err := r.validate.StructCtx(ctx, doc); err != nil {
		return nil, fmt.Errorf("invalid bill document: %w", err)
	}
	logoCh := r.loadLogo(ctx, logoSrc)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.AliasNbPages("")
	pdf.SetCreator(r.hospitalName, true)
	pdf.SetTitle(fmt.Sprintf("%s %s", titleCase(string(doc.Kind)), doc.Number), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	total := doc.Total()

	var lg *logo
	select {
	case res := <-logoCh:
		if res.err != nil {
			r.logoFailed(doc, res.err)
		}
		lg = res.logo
	case <-ctx.Done():
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lg != nil {
		pdf.RegisterImageOptionsReader(logoName, gofpdf.ImageOptions{ImageType: lg.imageType}, bytes.NewReader(lg.data))
		if err := pdf.Error(); err != nil {
			pdf.ClearError()
			r.logoFailed(doc, err)
			lg = nil
		}
	}

	inTable := false
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() == 1 {
			r.letterhead(pdf, tr, doc, lg != nil)
		}
		if inTable {
			tableHeader(pdf)
		}
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	r.details(pdf, tr, doc)

	inTable = true
	tableHeader(pdf)
	_, pageHeight := pdf.GetPageSize()
	pdf.SetFont("Arial", "", 10)
	for i, item := range doc.Items {
		lines := pdf.SplitText(tr(item.Description), colDesc-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		h := lineHeight * float64(len(lines))
		if pdf.GetY()+h > pageHeight-bottomMargin {
			pdf.AddPage()
		}

		x, y := pdf.GetXY()
		pdf.CellFormat(colIndex, h, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
		pdf.MultiCell(colDesc, lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		pdf.SetXY(x+colIndex+colDesc, y)
		pdf.CellFormat(colAmount, h, pdfAmount(item.Amount), "1", 1, "R", false, 0, "")
	}
	inTable = false

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(colIndex+colDesc, 9, "Total", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colAmount, 9, pdfAmount(total), "1", 1, "R", true, 0, "")
	if doc.Balance != nil {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(colIndex+colDesc, 8, "Balance", "1", 0, "R", false, 0, "")
		pdf.CellFormat(colAmount, 8, pdfAmount(*doc.Balance), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, 5, tr(fmt.Sprintf("Thank you for choosing %s. This is a computer generated %s.", r.hospitalName, doc.Kind)), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render %s %s: %w", doc.Kind, doc.Number, err)
	}

	r.metrics.BillsRendered.WithLabelValues(string(doc.Kind)).Inc()
	return &Document{
		Kind:    doc.Kind,
		Number:  doc.Number,
		Total:   total.String(),
		HasLogo: lg != nil,
		Pages:   pdf.PageNo(),
		data:    buf.Bytes(),
	}, nil
}

func (r *Renderer) logoFailed(doc model.BillDocument, err error) {
	r.metrics.LogoLoadFailures.Inc()
	r.logger.Warn().Err(err).Str("kind", string(doc.Kind)).Str("number", doc.Number).Msg("Rendering bill without logo")
}

func (r *Renderer) letterhead(pdf *gofpdf.Fpdf, tr func(string) string, doc model.BillDocument, withLogo bool) {
	top := pdf.GetY()
	if withLogo {
		pdf.ImageOptions(logoName, 10, top, 30, 0, false, gofpdf.ImageOptions{}, 0, "")
	}

	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, tr(r.hospitalName), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 13)
	pdf.SetTextColor(64, 64, 64)
	pdf.CellFormat(0, 8, strings.ToUpper(string(doc.Kind)), "", 1, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	if withLogo && pdf.GetY() < top+32 {
		pdf.SetY(top + 32)
	}
	pdf.Ln(4)
}

func (r *Renderer) details(pdf *gofpdf.Fpdf, tr func(string) string, doc model.BillDocument) {
	number := "Invoice No."
	if doc.Kind == model.BillKindReceipt {
		number = "Receipt No."
	}
	detail(pdf, number, tr(doc.Number))
	detail(pdf, "Date", tr(doc.Date))
	detail(pdf, "Status", tr(titleCase(doc.Status)))
	if doc.PaymentMethod != "" {
		detail(pdf, "Payment Method", tr(titleCase(doc.PaymentMethod)))
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{
		titleCase(doc.Customer.Name),
		titleCase(doc.Customer.Address),
		doc.Customer.Email,
		doc.Customer.Phone,
	} {
		if line != "" {
			pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)
}

func detail(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 7, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(220, 230, 241)
	pdf.CellFormat(colIndex, 8, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colDesc, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colAmount, 8, "Amount", "1", 1, "R", true, 0, "")
	pdf.SetFont("Arial", "", 10)
}
