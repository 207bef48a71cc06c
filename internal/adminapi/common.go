package adminapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/talkincode/toughstock/internal/app"
	"github.com/talkincode/toughstock/internal/domain"
	"github.com/talkincode/toughstock/internal/stock"
	"github.com/talkincode/toughstock/internal/webserver"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 500
)

type pageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

func GetLedger(c echo.Context) *stock.Ledger {
	return GetAppContext(c).Ledger()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": data})
}

func fail(c echo.Context, status int, code, msg string, details interface{}) error {
	return c.JSON(status, webserver.ErrorResponse{Error: code, Message: msg, Details: details})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data": data,
		"meta": pageMeta{Total: total, Page: page, PageSize: pageSize},
	})
}

// failErr maps a domain error to its HTTP status.
func failErr(c echo.Context, err error, msg string) error {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", msg, err.Error())
	case domain.KindNotFound:
		return fail(c, http.StatusNotFound, "NOT_FOUND", msg, err.Error())
	case domain.KindInsufficientStock:
		return fail(c, http.StatusConflict, "INSUFFICIENT_STOCK", msg, err.Error())
	case domain.KindDuplicate:
		return fail(c, http.StatusConflict, "DUPLICATE", msg, err.Error())
	default:
		zap.L().Error(msg, zap.String("namespace", "api"), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", msg, err.Error())
	}
}

func parsePagination(c echo.Context) (int, int) {
	page := cast.ToInt(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize := cast.ToInt(c.QueryParam("perPage"))
	if pageSize == 0 {
		pageSize = cast.ToInt(c.QueryParam("pageSize"))
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
}

func queryBool(c echo.Context, name string) bool {
	return cast.ToBool(c.QueryParam(name))
}

// pageSlice cuts one page out of an in-memory result.
func pageSlice[T any](rows []T, page, pageSize int) []T {
	if len(rows) == 0 || page < 1 || pageSize < 1 {
		return []T{}
	}
	// compare page counts first so (page-1)*pageSize cannot overflow
	if pages := (len(rows)-1)/pageSize + 1; page > pages {
		return []T{}
	}
	start := (page - 1) * pageSize
	end := len(rows)
	if pageSize < end-start {
		end = start + pageSize
	}
	return rows[start:end]
}
