package stock

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/talkincode/toughstock/internal/domain"
)

const (
	reportMargin    = 15.0
	reportRowHeight = 6.0
)

var reportColumns = []struct {
	title string
	width float64
	align string
}{
	{"Name", 60, "L"},
	{"Brand", 32, "L"},
	{"Type", 38, "L"},
	{"Qty", 12, "R"},
	{"Price", 20, "R"},
	{"Expiry", 18, "C"},
}

// GenerateStockReport renders active stock as a paged A4 PDF table with a
// trailing total value line.
func (l *Ledger) GenerateStockReport(ctx context.Context) ([]byte, error) {
	rows, err := l.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	pdf, _ := buildReport(rows, l.now())
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, domain.WrapIO("render report", err)
	}
	return buf.Bytes(), nil
}

// buildReport lays out the document and returns it with the summed value.
func buildReport(rows []domain.Product, generatedAt time.Time) (*fpdf.Fpdf, decimal.Decimal) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Stock report", true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetMargins(reportMargin, reportMargin, reportMargin)
	pdf.SetAutoPageBreak(false, reportMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageHeight := pdf.GetPageSize()
	bottom := pageHeight - reportMargin

	header := func() {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, tr("Stock report"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Generated %s  page %d",
			generatedAt.Format("02/01/2006 15:04"), pdf.PageNo())), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		for _, col := range reportColumns {
			pdf.CellFormat(col.width, 7, col.title, "B", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}

	total := decimal.Zero
	header()
	for _, p := range rows {
		if pdf.GetY()+reportRowHeight > bottom {
			header()
		}
		value := decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(p.Quantity)))
		total = total.Add(value)
		expiry := "-"
		if p.ExpiryDate != nil {
			expiry = p.ExpiryDate.Format("02/01/2006")
		}
		cells := []string{
			truncateCell(p.Name, 34),
			truncateCell(p.Brand, 18),
			truncateCell(p.Type, 22),
			fmt.Sprintf("%d", p.Quantity),
			"R$ " + decimal.NewFromFloat(p.Price).StringFixed(2),
			expiry,
		}
		for i, col := range reportColumns {
			pdf.CellFormat(col.width, reportRowHeight, tr(cells[i]), "", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.GetY()+2*reportRowHeight > bottom {
		header()
	}
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Total value: R$ %s (%d items)", total.StringFixed(2), len(rows))),
		"T", 1, "R", false, 0, "")
	return pdf, total
}

func truncateCell(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
