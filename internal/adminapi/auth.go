package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/toughstock/internal/webserver"
	"go.uber.org/zap"
)

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

func registerAuthRoutes() {
	webserver.ApiPublicPOST("/login", login)
	webserver.ApiGET("/me", currentUser)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login", err.Error())
	}
	username := strings.TrimSpace(payload.Username)
	if username == "" || payload.Password == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Username and password are required", nil)
	}
	user, err := GetAppContext(c).Accounts().Authenticate(c.Request().Context(), username, payload.Password)
	if err != nil {
		return failErr(c, err, "Login failed")
	}
	if user == nil {
		zap.L().Warn("login rejected", zap.String("namespace", "auth"),
			zap.String("username", username), zap.String("ip", c.RealIP()))
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
	}
	token, expires, err := webserver.GetServer(c).IssueToken(user.Username, user.Role)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Unable to issue token", err.Error())
	}
	return ok(c, loginResponse{Token: token, ExpiresAt: expires, Username: user.Username, Role: user.Role})
}

func currentUser(c echo.Context) error {
	claims := webserver.CurrentUser(c)
	return ok(c, map[string]interface{}{"username": claims.Username, "role": claims.Role})
}
