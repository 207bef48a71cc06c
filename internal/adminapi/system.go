package adminapi

import (
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughstock/internal/backup"
	"github.com/talkincode/toughstock/internal/catalog"
	"github.com/talkincode/toughstock/internal/webserver"
)

func registerSystemRoutes() {
	webserver.ApiGET("/catalog/:kind", listCatalog)
	webserver.ApiGET("/system/backups", listBackups, webserver.RequireAdmin)
}

func listCatalog(c echo.Context) error {
	var cat *catalog.Catalog
	switch c.Param("kind") {
	case "brands":
		cat = catalog.BrandCatalog
	case "styles":
		cat = catalog.StyleCatalog
	case "types":
		cat = catalog.TypeCatalog
	default:
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Unknown catalog", nil)
	}
	if prefix := c.QueryParam("prefix"); prefix != "" {
		return ok(c, cat.WithPrefix(prefix))
	}
	return ok(c, cat.Names())
}

func listBackups(c echo.Context) error {
	cfg := GetAppContext(c).Config()
	mgr := backup.NewManager(cfg.GetBackupDir(), cfg.Backup.Retention)
	files, err := mgr.List(cfg.GetDatabasePath())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "IO_ERROR", "Failed to list backups", err.Error())
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	return ok(c, names)
}
