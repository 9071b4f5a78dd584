package billing

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jwalitptl/patient-portal/internal/model"
)

// pdfCurrency stands in for the naira sign, which the core PDF fonts cannot
// draw.
const pdfCurrency = "NGN "

func pdfAmount(a model.Amount) string {
	return pdfCurrency + a.String()
}

// Document is a rendered bill. The caller decides whether to download,
// preview or print it.
type Document struct {
	Kind   model.BillKind
	Number string
	// Total is the amount on the total row, with two decimals.
	Total   string
	HasLogo bool
	Pages   int
	data    []byte
}

func (d *Document) Bytes() []byte {
	return d.data
}

func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewReader(d.data).WriteTo(w)
}

func (d *Document) ContentType() string {
	return "application/pdf"
}

// Filename is a download name such as "invoice-INV-001.pdf".
func (d *Document) Filename() string {
	number := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, d.Number)
	return fmt.Sprintf("%s-%s.pdf", d.Kind, number)
}
