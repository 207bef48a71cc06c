package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughstock/internal/domain"
	"github.com/talkincode/toughstock/internal/webserver"
)

type userPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type rolePayload struct {
	Role string `json:"role"`
}

type passwordPayload struct {
	Password string `json:"password"`
}

// registerUserRoutes registers account management; all but the password
// change are admin only
func registerUserRoutes() {
	webserver.ApiGET("/users", listUsers, webserver.RequireAdmin)
	webserver.ApiPOST("/users", createUser, webserver.RequireAdmin)
	webserver.ApiPUT("/users/:username/role", updateUserRole, webserver.RequireAdmin)
	webserver.ApiDELETE("/users/:username", deleteUser, webserver.RequireAdmin)
	webserver.ApiPUT("/users/:username/password", changePassword)
}

func listUsers(c echo.Context) error {
	users, err := GetAppContext(c).Accounts().ListUsers(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to query users")
	}
	return ok(c, users)
}

func createUser(c echo.Context) error {
	var payload userPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse user", err.Error())
	}
	if payload.Role == "" {
		payload.Role = domain.RoleUser
	}
	created, err := GetAppContext(c).Accounts().AddUser(c.Request().Context(), payload.Username, payload.Password, payload.Role)
	if err != nil {
		return failErr(c, err, "Failed to create user")
	}
	if !created {
		return fail(c, http.StatusConflict, "DUPLICATE", "Username already exists", nil)
	}
	return ok(c, map[string]interface{}{"username": strings.TrimSpace(payload.Username), "role": payload.Role})
}

func updateUserRole(c echo.Context) error {
	var payload rolePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse role", err.Error())
	}
	username := c.Param("username")
	if err := GetAppContext(c).Accounts().UpdateRole(c.Request().Context(), username, payload.Role); err != nil {
		return failErr(c, err, "Failed to update role")
	}
	return ok(c, map[string]interface{}{"username": username, "role": payload.Role})
}

func deleteUser(c echo.Context) error {
	username := c.Param("username")
	if claims := webserver.CurrentUser(c); claims != nil && claims.Username == username {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Cannot delete the current user", nil)
	}
	if err := GetAppContext(c).Accounts().DeleteUser(c.Request().Context(), username); err != nil {
		return failErr(c, err, "Failed to delete user")
	}
	return ok(c, map[string]interface{}{"username": username})
}

// changePassword lets a user change their own password; admins may change
// anyone's.
func changePassword(c echo.Context) error {
	username := c.Param("username")
	claims := webserver.CurrentUser(c)
	if claims == nil || (claims.Username != username && claims.Role != domain.RoleAdmin) {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Not allowed to change this password", nil)
	}
	var payload passwordPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse password", err.Error())
	}
	if err := GetAppContext(c).Accounts().ChangePassword(c.Request().Context(), username, payload.Password); err != nil {
		return failErr(c, err, "Failed to change password")
	}
	return ok(c, map[string]interface{}{"username": username})
}
