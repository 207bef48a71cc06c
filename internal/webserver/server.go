package webserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	jsoniter "github.com/json-iterator/go"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/random"
	"github.com/pkg/errors"
	"github.com/talkincode/toughstock/internal/app"
	"github.com/talkincode/toughstock/internal/domain"
	"go.uber.org/zap"
)

const (
	ApiPrefix = "/api/v1"

	ContextKeyApp    = "appctx"
	ContextKeyServer = "websrv"
	ContextKeyUser   = "user"

	// TokenTTL is how long a login token stays valid.
	TokenTTL = 24 * time.Hour
)

type apiRoute struct {
	method      string
	path        string
	handler     echo.HandlerFunc
	middlewares []echo.MiddlewareFunc
	public      bool
}

var (
	routesMu  sync.Mutex
	apiRoutes []apiRoute
)

func addRoute(r apiRoute) {
	routesMu.Lock()
	defer routesMu.Unlock()
	apiRoutes = append(apiRoutes, r)
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(apiRoute{method: http.MethodGet, path: path, handler: h, middlewares: m})
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(apiRoute{method: http.MethodPost, path: path, handler: h, middlewares: m})
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(apiRoute{method: http.MethodPut, path: path, handler: h, middlewares: m})
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(apiRoute{method: http.MethodDelete, path: path, handler: h, middlewares: m})
}

// ApiPublicPOST registers a route that skips token validation.
func ApiPublicPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	addRoute(apiRoute{method: http.MethodPost, path: path, handler: h, middlewares: m, public: true})
}

// Claims are carried by every login token.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type AdminServer struct {
	root   *echo.Echo
	appCtx app.AppContext
	secret string
	now    func() time.Time
}

func NewAdminServer(appCtx app.AppContext) *AdminServer {
	cfg := appCtx.Config()
	s := &AdminServer{
		root:   echo.New(),
		appCtx: appCtx,
		secret: strings.TrimSpace(cfg.Web.Secret),
		now:    time.Now,
	}
	if s.secret == "" {
		s.secret = random.String(32)
		zap.L().Warn("web secret not configured, tokens will not survive a restart",
			zap.String("namespace", "web"))
	}

	e := s.root
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.HTTPErrorHandler = httpErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("16M"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("namespace", "web"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zap.L().Debug("request", fields...)
			return nil
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextKeyApp, s.appCtx)
			c.Set(ContextKeyServer, s)
			return next(c)
		}
	})

	public := e.Group(ApiPrefix)
	protected := e.Group(ApiPrefix, echojwt.WithConfig(echojwt.Config{
		ContextKey:     ContextKeyUser,
		ParseTokenFunc: s.parseToken,
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "UNAUTHORIZED",
				Message: "Missing or invalid token",
			})
		},
	}))

	routesMu.Lock()
	for _, r := range apiRoutes {
		g := protected
		if r.public {
			g = public
		}
		g.Add(r.method, r.path, r.handler, r.middlewares...)
	}
	routesMu.Unlock()
	return s
}

func (s *AdminServer) Echo() *echo.Echo {
	return s.root
}

// Start listens until the server is shut down.
func (s *AdminServer) Start() error {
	cfg := s.appCtx.Config().Web
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	zap.S().Infof("Start admin server %s", addr)
	err := s.root.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

// IssueToken signs a token for the given user.
func (s *AdminServer) IssueToken(username, role string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(TokenTTL)
	claims := Claims{
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.appCtx.Config().System.Appid,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return token, expires, nil
}

func (s *AdminServer) parseToken(c echo.Context, auth string) (interface{}, error) {
	token, err := jwt.ParseWithClaims(auth, new(Claims), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return token, nil
}

func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(ContextKeyApp).(app.AppContext)
}

func GetServer(c echo.Context) *AdminServer {
	return c.Get(ContextKeyServer).(*AdminServer)
}

// CurrentUser returns the claims of the authenticated caller, or nil on
// public routes.
func CurrentUser(c echo.Context) *Claims {
	token, ok := c.Get(ContextKeyUser).(*jwt.Token)
	if !ok {
		return nil
	}
	claims, _ := token.Claims.(*Claims)
	return claims
}

// RequireAdmin rejects callers whose token does not carry the admin role.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := CurrentUser(c)
		if claims == nil || claims.Role != domain.RoleAdmin {
			return c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "FORBIDDEN",
				Message: "Administrator role required",
			})
		}
		return next(c)
	}
}

func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("namespace", "web"),
			zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}
	_ = c.JSON(status, ErrorResponse{Error: strings.ReplaceAll(strings.ToUpper(http.StatusText(status)), " ", "_"), Message: msg})
}

type jsonSerializer struct{}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}
