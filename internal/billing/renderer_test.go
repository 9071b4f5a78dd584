package billing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-portal/internal/model"
	"github.com/jwalitptl/patient-portal/pkg/metrics"
)

func mustAmount(t *testing.T, s string) model.Amount {
	t.Helper()
	a, err := model.ParseAmount(s)
	require.NoError(t, err)
	return a
}

func sampleInvoice(t *testing.T) model.BillDocument {
	return model.BillDocument{
		Kind:   model.BillKindInvoice,
		Number: "INV/2024/001",
		Date:   "2024-03-05",
		Status: "partially paid",
		Customer: model.Customer{
			Name:    "ada lovelace",
			Address: "12 analytical   engine way",
			Email:   "ada@example.com",
		},
		Items: []model.BillItem{
			{Description: "Consultation", Amount: mustAmount(t, "5000.00")},
			{Description: "Lab Test", Amount: mustAmount(t, "2500.5")},
		},
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newRenderer(m *metrics.Metrics) *Renderer {
	return NewRenderer("General Hospital", m, zerolog.Nop(), WithCompression(false))
}

func TestRenderTotalRow(t *testing.T) {
	doc := sampleInvoice(t)

	out, err := newRenderer(nil).Render(context.Background(), doc, "")
	require.NoError(t, err)

	assert.Equal(t, "7500.50", out.Total)
	assert.Equal(t, model.Amount(750050), doc.Total())
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF-")))

	body := string(out.Bytes())
	assert.Contains(t, body, "(NGN 7500.50)")
	assert.Contains(t, body, "(NGN 5000.00)")
	assert.Contains(t, body, "(NGN 2500.50)")
	assert.Contains(t, body, "(Partially Paid)")
	assert.Contains(t, body, "(Ada Lovelace)")
	assert.Contains(t, body, "(12 Analytical Engine Way)")
	assert.Contains(t, body, "Page 1/1")

	assert.Equal(t, "partially paid", doc.Status, "stored values are not altered")
	assert.Equal(t, "invoice-INV-2024-001.pdf", out.Filename())
	assert.Equal(t, "application/pdf", out.ContentType())
}

func TestRenderReceipt(t *testing.T) {
	receipt := model.Receipt{
		ReceiptNumber: "RCP-9",
		Date:          "2024-03-06",
		Status:        model.ReceiptStatusPartiallyPaid,
		PaymentMethod: model.PaymentMethodBankTransfer,
		BalanceAmount: mustAmount(t, "1200"),
		Customer:      model.Customer{Name: "grace hopper"},
		Items:         []model.BillItem{{Description: "Pharmacy", Amount: mustAmount(t, "800")}},
	}

	out, err := newRenderer(nil).Render(context.Background(), receipt.Document(), "")
	require.NoError(t, err)

	body := string(out.Bytes())
	assert.Equal(t, "800.00", out.Total)
	assert.Contains(t, body, "(Partially Paid)")
	assert.Contains(t, body, "(NGN 1200.00)")
	assert.Contains(t, body, "(Receipt No.)")
}

func TestRenderWithoutLogoOnFailure(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o600))

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	for name, src := range map[string]string{
		"missing file": filepath.Join(dir, "nope.png"),
		"not an image": garbage,
		"http 404":     srv.URL + "/logo.png",
		"bad url":      "http://%zz",
	} {
		t.Run(name, func(t *testing.T) {
			m := metrics.NewNop()
			out, err := newRenderer(m).Render(context.Background(), sampleInvoice(t), src)
			require.NoError(t, err)
			assert.False(t, out.HasLogo)
			assert.Equal(t, "7500.50", out.Total)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.LogoLoadFailures))
		})
	}
}

func TestRenderWithLogo(t *testing.T) {
	logo := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(logo)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "logo.png")
	require.NoError(t, os.WriteFile(path, logo, 0o600))

	for _, src := range []string{srv.URL + "/logo.png", path} {
		m := metrics.NewNop()
		out, err := newRenderer(m).Render(context.Background(), sampleInvoice(t), src)
		require.NoError(t, err)
		assert.True(t, out.HasLogo, src)
		assert.Zero(t, testutil.ToFloat64(m.LogoLoadFailures))
		assert.Equal(t, float64(1), testutil.ToFloat64(m.BillsRendered.WithLabelValues("invoice")))
	}
}

func TestRenderPaginates(t *testing.T) {
	doc := sampleInvoice(t)
	doc.Items = nil
	for i := 0; i < 60; i++ {
		doc.Items = append(doc.Items, model.BillItem{
			Description: fmt.Sprintf("Ward service day %d", i+1),
			Amount:      mustAmount(t, "100.25"),
		})
	}

	out, err := newRenderer(nil).Render(context.Background(), doc, "")
	require.NoError(t, err)

	body := string(out.Bytes())
	assert.GreaterOrEqual(t, out.Pages, 2)
	assert.GreaterOrEqual(t, strings.Count(body, "(Description)"), 2, "item header repeats on continuation pages")
	assert.Contains(t, body, fmt.Sprintf("Page %d/%d", out.Pages, out.Pages))
	assert.Equal(t, "6015.00", out.Total)
}

func TestRenderRejectsInvalidDocument(t *testing.T) {
	doc := sampleInvoice(t)
	doc.Number = ""
	_, err := newRenderer(nil).Render(context.Background(), doc, "")
	assert.Error(t, err)
}

func TestRenderCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRenderer(nil).Render(ctx, sampleInvoice(t), srv.URL+"/slow.png")
	assert.Error(t, err)
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"paid":           "Paid",
		"partially_paid": "Partially Paid",
		"partially paid": "Partially Paid",
		"cash":           "Cash",
		"ada  lovelace":  "Ada Lovelace",
		"McDonald":       "McDonald",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, titleCase(in), in)
	}
}
