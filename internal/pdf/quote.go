// Package pdf renders customer-facing quote documents.
package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var chilean = message.NewPrinter(language.MustParse("es-CL"))

// FormatMoney renders an amount as whole pesos with Chilean digit grouping, e.g. $37.725
func FormatMoney(d decimal.Decimal) string {
	return chilean.Sprintf("$%d", d.Round(0).IntPart())
}

// QuoteDocument is everything printed on a quote
type QuoteDocument struct {
	CompanyName string
	Order       *domain.Order
	IssuedAt    time.Time
	ValidUntil  time.Time
}

// Renderer writes a quote PDF
type Renderer interface {
	RenderQuote(w io.Writer, doc *QuoteDocument) error
}

// QuoteRenderer renders quotes with fpdf core fonts
type QuoteRenderer struct{}

func NewQuoteRenderer() *QuoteRenderer {
	return &QuoteRenderer{}
}

// RenderQuote lays out header, customer block, item table and totals on A4
func (r *QuoteRenderer) RenderQuote(w io.Writer, doc *QuoteDocument) error {
	if doc == nil || doc.Order == nil {
		return fmt.Errorf("quote document has no order")
	}
	order := doc.Order
	totals := order.Totals()

	p := fpdf.New("P", "mm", "A4", "")
	tr := p.UnicodeTranslatorFromDescriptor("")
	p.SetTitle(fmt.Sprintf("Cotizacion %d", order.ID), false)
	p.SetMargins(15, 15, 15)
	p.AddPage()

	p.SetFont("Helvetica", "B", 18)
	p.CellFormat(0, 10, tr(doc.CompanyName), "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 11)
	p.CellFormat(0, 7, tr(fmt.Sprintf("Cotización N° %d", order.ID)), "", 1, "L", false, 0, "")
	p.CellFormat(0, 6, tr("Fecha: "+doc.IssuedAt.Format("02-01-2006")), "", 1, "L", false, 0, "")
	p.CellFormat(0, 6, tr("Válida hasta: "+doc.ValidUntil.Format("02-01-2006")), "", 1, "L", false, 0, "")
	p.Ln(4)

	if c := order.Customer; c != nil {
		p.SetFont("Helvetica", "B", 11)
		p.CellFormat(0, 7, tr("Cliente"), "", 1, "L", false, 0, "")
		p.SetFont("Helvetica", "", 10)
		p.CellFormat(0, 5, tr(c.FullName()), "", 1, "L", false, 0, "")
		if c.Company != "" {
			p.CellFormat(0, 5, tr(c.Company), "", 1, "L", false, 0, "")
		}
		p.CellFormat(0, 5, tr(c.Email), "", 1, "L", false, 0, "")
		if c.Phone != "" {
			p.CellFormat(0, 5, tr(c.Phone), "", 1, "L", false, 0, "")
		}
	}
	if order.Commune != "" || order.Region != "" {
		p.CellFormat(0, 5, tr(fmt.Sprintf("Destino: %s, %s", order.Commune, order.Region)), "", 1, "L", false, 0, "")
	}
	p.Ln(4)

	widths := []float64{95, 20, 32, 33}
	p.SetFont("Helvetica", "B", 10)
	p.SetFillColor(230, 230, 230)
	for i, h := range []string{"Descripción", "Cant.", "P. Unitario", "Subtotal"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		p.CellFormat(widths[i], 7, tr(h), "1", 0, align, true, 0, "")
	}
	p.Ln(-1)

	p.SetFont("Helvetica", "", 10)
	for i := range order.Items {
		item := &order.Items[i]
		p.CellFormat(widths[0], 6, tr(truncate(item.Description, 55)), "1", 0, "L", false, 0, "")
		p.CellFormat(widths[1], 6, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", false, 0, "")
		p.CellFormat(widths[2], 6, tr(FormatMoney(item.UnitPrice)), "1", 0, "R", false, 0, "")
		p.CellFormat(widths[3], 6, tr(FormatMoney(item.LineTotal())), "1", 1, "R", false, 0, "")
	}
	p.Ln(4)

	rows := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Subtotal", totals.Subtotal},
		{fmt.Sprintf("Recargo urgencia (%s%%)", order.UrgencyPct.String()), totals.Surcharge},
		{"Neto", totals.Net},
		{"IVA (19%)", totals.Tax},
		{"Envío", totals.Shipping},
	}
	for _, row := range rows {
		p.CellFormat(147, 6, tr(row.label), "", 0, "R", false, 0, "")
		p.CellFormat(33, 6, tr(FormatMoney(row.amount)), "", 1, "R", false, 0, "")
	}
	p.SetFont("Helvetica", "B", 12)
	p.CellFormat(147, 8, "TOTAL", "", 0, "R", false, 0, "")
	p.CellFormat(33, 8, tr(FormatMoney(totals.Total)), "T", 1, "R", false, 0, "")

	if err := p.Output(w); err != nil {
		return fmt.Errorf("failed to write quote pdf: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
