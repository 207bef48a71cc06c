package adminapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughstock/internal/webserver"
)

const maxImportSize = 8 << 20

// registerTransferRoutes registers export, report and import endpoints
func registerTransferRoutes() {
	webserver.ApiGET("/products/export/csv", exportProductsCSV)
	webserver.ApiGET("/products/export/xlsx", exportProductsXLSX)
	webserver.ApiGET("/products/report/pdf", exportProductsPDF)
	webserver.ApiPOST("/products/import", importProducts, webserver.RequireAdmin)
}

func attachmentName(ext string) string {
	return fmt.Sprintf("estoque_%s.%s", time.Now().Format("20060102_150405"), ext)
}

func setAttachment(c echo.Context, name string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
}

func exportProductsCSV(c echo.Context) error {
	text, err := GetLedger(c).ExportAllAsDelimitedText(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to export products")
	}
	if text == "" {
		return c.NoContent(http.StatusNoContent)
	}
	setAttachment(c, attachmentName("csv"))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(text))
}

func exportProductsXLSX(c echo.Context) error {
	data, err := GetLedger(c).ExportWorkbook(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to export products")
	}
	setAttachment(c, attachmentName("xlsx"))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func exportProductsPDF(c echo.Context) error {
	data, err := GetLedger(c).GenerateStockReport(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to build report")
	}
	setAttachment(c, attachmentName("pdf"))
	return c.Blob(http.StatusOK, "application/pdf", data)
}

// importProducts accepts a multipart "file" field or the raw text body.
func importProducts(c echo.Context) error {
	var src io.Reader
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read file", err.Error())
		}
		defer f.Close()
		src = f
	} else {
		src = c.Request().Body
	}
	data, err := io.ReadAll(io.LimitReader(src, maxImportSize+1))
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read file", err.Error())
	}
	if len(data) > maxImportSize {
		return fail(c, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE",
			"Import file is too large", map[string]interface{}{"max_bytes": maxImportSize})
	}
	if strings.TrimSpace(string(data)) == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Import file is empty", nil)
	}
	n, err := GetLedger(c).ImportFromDelimitedText(c.Request().Context(), string(data))
	if err != nil {
		return failErr(c, err, "Import failed")
	}
	return ok(c, map[string]interface{}{"imported": n})
}
