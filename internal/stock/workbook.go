package stock

import (
	"context"
	"fmt"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/talkincode/toughstock/internal/domain"
)

// WorkbookSheet is the sheet name used by ExportWorkbook.
const WorkbookSheet = "Estoque"

var workbookHeader = []string{
	"id", "name", "price", "quantity", "brand", "style", "type",
	"photo_ref", "expiry_date", "sold_flag", "last_sale_at",
}

// ExportWorkbook writes every product as an xlsx sheet with the same
// columns as the delimited export.
func (l *Ledger) ExportWorkbook(ctx context.Context) ([]byte, error) {
	rows, err := l.GetAll(ctx, true)
	if err != nil {
		return nil, err
	}
	xlsx := excelize.NewFile()
	xlsx.SetSheetName("Sheet1", WorkbookSheet)
	for i, h := range workbookHeader {
		xlsx.SetCellValue(WorkbookSheet, cellName(i, 1), h)
	}
	for n := range rows {
		r := toRecord(&rows[n])
		line := n + 2
		values := []interface{}{
			rows[n].ID, r.Name, rows[n].Price, rows[n].Quantity, r.Brand, r.Style, r.Type,
			r.PhotoRef, r.ExpiryDate, r.SoldFlag, r.LastSaleAt,
		}
		for i, v := range values {
			xlsx.SetCellValue(WorkbookSheet, cellName(i, line), v)
		}
	}
	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, domain.WrapIO("export workbook", err)
	}
	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", excelize.ToAlphaString(col), row)
}
