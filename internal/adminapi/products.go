package adminapi

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/toughstock/internal/catalog"
	"github.com/talkincode/toughstock/internal/domain"
	"github.com/talkincode/toughstock/internal/stock"
	"github.com/talkincode/toughstock/internal/webserver"
	"github.com/talkincode/toughstock/pkg/common"
)

type productPayload struct {
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Brand      string  `json:"brand"`
	Style      string  `json:"style"`
	Type       string  `json:"type"`
	PhotoRef   string  `json:"photo_ref"`
	ExpiryDate string  `json:"expiry_date"`
}

type quantityPayload struct {
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// registerProductRoutes registers product CRUD and stock movement endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/zeroed", listZeroedProducts)
	webserver.ApiGET("/products/sold", listSoldProducts)
	webserver.ApiGET("/products/expiring", listExpiringProducts)
	webserver.ApiGET("/products/summary", productSummary)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiGET("/products/:id/photo", getProductPhoto)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct, webserver.RequireAdmin)
	webserver.ApiPOST("/products/:id/sell", sellProduct)
	webserver.ApiPOST("/products/:id/restock", restockProduct)
	webserver.ApiPOST("/products/:id/photo", uploadProductPhoto)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	// zeroed products stay listed unless the caller asks for active stock only
	filter := stock.Filter{
		IncludeZero: !queryBool(c, "active_only"),
		OnlyZero:    queryBool(c, "only_zero"),
		Name:        strings.TrimSpace(c.QueryParam("q")),
		Brand:       strings.TrimSpace(c.QueryParam("brand")),
		Style:       strings.TrimSpace(c.QueryParam("style")),
		Type:        strings.TrimSpace(c.QueryParam("type")),
	}
	rows, err := GetLedger(c).Find(c.Request().Context(), filter)
	if err != nil {
		return failErr(c, err, "Failed to query products")
	}
	return paged(c, pageSlice(rows, page, pageSize), int64(len(rows)), page, pageSize)
}

func listZeroedProducts(c echo.Context) error {
	rows, err := GetLedger(c).Zeroed(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to query products")
	}
	return ok(c, rows)
}

func listSoldProducts(c echo.Context) error {
	rows, err := GetLedger(c).SoldHistory(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to query products")
	}
	return ok(c, rows)
}

func listExpiringProducts(c echo.Context) error {
	days := GetAppContext(c).Config().Stock.ExpiryDays
	if v := c.QueryParam("days"); v != "" {
		days = cast.ToInt(v)
	}
	rows, err := GetLedger(c).ExpiringWithin(c.Request().Context(), days)
	if err != nil {
		return failErr(c, err, "Failed to query products")
	}
	return ok(c, rows)
}

func productSummary(c echo.Context) error {
	threshold := GetAppContext(c).Config().Stock.LowStockThreshold
	s, err := GetLedger(c).Summary(c.Request().Context(), threshold)
	if err != nil {
		return failErr(c, err, "Failed to summarize stock")
	}
	return ok(c, s)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := GetLedger(c).GetByID(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Failed to query product")
	}
	if p == nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	fields, err := payload.fields()
	if err != nil {
		return failErr(c, err, "Invalid product")
	}
	ledger := GetLedger(c)
	id, err := ledger.AddProduct(c.Request().Context(), fields)
	if err != nil {
		return failErr(c, err, "Failed to create product")
	}
	p, err := ledger.GetByID(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Failed to query product")
	}
	return ok(c, p)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	fields, err := payload.fields()
	if err != nil {
		return failErr(c, err, "Invalid product")
	}
	ledger := GetLedger(c)
	if err := ledger.UpdateProduct(c.Request().Context(), id, fields); err != nil {
		return failErr(c, err, "Failed to update product")
	}
	p, err := ledger.GetByID(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Failed to query product")
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := GetLedger(c).DeleteProduct(c.Request().Context(), id); err != nil {
		return failErr(c, err, "Failed to delete product")
	}
	return ok(c, map[string]interface{}{"id": id})
}

func sellProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	payload := quantityPayload{Quantity: 1}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&payload); err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse sale", err.Error())
		}
	}
	p, err := GetLedger(c).Sell(c.Request().Context(), id, payload.Quantity)
	if err != nil {
		return failErr(c, err, "Sale refused")
	}
	return ok(c, p)
}

func restockProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload quantityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse restock", err.Error())
	}
	ledger := GetLedger(c)
	if err := ledger.Restock(c.Request().Context(), id, payload.Quantity, payload.Price); err != nil {
		return failErr(c, err, "Restock refused")
	}
	p, err := ledger.GetByID(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Failed to query product")
	}
	return ok(c, p)
}

func uploadProductPhoto(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	ctx := c.Request().Context()
	ledger := GetLedger(c)
	p, err := ledger.GetByID(ctx, id)
	if err != nil {
		return failErr(c, err, "Failed to query product")
	}
	if p == nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Photo file is required", err.Error())
	}
	src, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read photo", err.Error())
	}
	defer src.Close()

	assets := GetAppContext(c).Assets()
	ref, err := assets.Save(fh.Filename, src)
	if err != nil {
		return failErr(c, domain.WrapIO("save photo", err), "Failed to store photo")
	}
	if err := ledger.SetPhoto(ctx, id, ref); err != nil {
		_ = assets.Remove(ref)
		return failErr(c, err, "Failed to update product")
	}
	return ok(c, map[string]interface{}{"id": id, "photo_ref": ref})
}

func getProductPhoto(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	p, err := GetLedger(c).GetByID(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Failed to query product")
	}
	if p == nil || p.PhotoRef == "" {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Photo not found", nil)
	}
	return c.File(GetAppContext(c).Assets().Path(filepath.Base(p.PhotoRef)))
}

// fields resolves categories against the catalogs and parses the expiry
// date. Empty categories stay empty.
func (p productPayload) fields() (stock.ProductFields, error) {
	f := stock.ProductFields{
		Name:     p.Name,
		Price:    p.Price,
		Quantity: p.Quantity,
		PhotoRef: p.PhotoRef,
	}
	var err error
	if f.Brand, err = resolveCategory(catalog.BrandCatalog, "brand", p.Brand); err != nil {
		return f, err
	}
	if f.Style, err = resolveCategory(catalog.StyleCatalog, "style", p.Style); err != nil {
		return f, err
	}
	if f.Type, err = resolveCategory(catalog.TypeCatalog, "type", p.Type); err != nil {
		return f, err
	}
	if f.ExpiryDate, err = parseExpiryDate(p.ExpiryDate); err != nil {
		return f, err
	}
	return f, f.Validate()
}

func resolveCategory(cat *catalog.Catalog, field, input string) (string, error) {
	if common.IsEmpty(input) {
		return "", nil
	}
	name, candidates, found := cat.Match(input)
	if found {
		return name, nil
	}
	if len(candidates) > 0 {
		return "", domain.NewValidationError(field, "ambiguous, candidates: "+strings.Join(candidates, ", "))
	}
	return "", domain.NewValidationError(field, "unknown value "+input)
}

func parseExpiryDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d := stock.ParseDate(s)
	if d == nil {
		return nil, domain.NewValidationError("expiry_date", "unrecognized date "+s)
	}
	return d, nil
}
