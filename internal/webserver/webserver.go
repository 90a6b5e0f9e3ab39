// Package webserver owns the echo instance, its middleware stack and the
// route registration helpers the api package builds on.
package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo-contrib/pprof"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sanamente/catalogd/config"
	"github.com/sanamente/catalogd/internal/auth"
	"go.uber.org/zap"
)

const sessionContextKey = "session"

type payloadValidator struct {
	validate *validator.Validate
}

func (v *payloadValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

type WebServer struct {
	root *echo.Echo
	api  *echo.Group
	pub  *echo.Group
	cfg  *config.AppConfig
}

var server *WebServer

// Init builds the echo instance: recovery, request logging, validator, and
// a JWT-protected /api group resolving bearer tokens to sessions.
func Init(cfg *config.AppConfig, provider *auth.JWTProvider) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &payloadValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(requestLogger())
	pprof.Register(e)

	s := &WebServer{root: e, cfg: cfg}
	s.pub = e.Group("")
	s.api = e.Group("/api", echojwt.WithConfig(echojwt.Config{
		ContextKey: sessionContextKey,
		ParseTokenFunc: func(c echo.Context, tokenString string) (interface{}, error) {
			return provider.ParseToken(c.Request().Context(), tokenString)
		},
	}))
	server = s
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			zap.L().Debug("http request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}

// GetSession returns the session bound to an authenticated request.
func GetSession(c echo.Context) *auth.Session {
	if sess, ok := c.Get(sessionContextKey).(*auth.Session); ok {
		return sess
	}
	return nil
}

// ApiGET registers an authenticated GET route.
func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

// ApiPOST registers an authenticated POST route.
func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

// ApiPUT registers an authenticated PUT route.
func ApiPUT(path string, h echo.HandlerFunc) {
	server.api.PUT(path, h)
}

// ApiDELETE registers an authenticated DELETE route.
func ApiDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h)
}

// PubGET registers a public GET route.
func PubGET(path string, h echo.HandlerFunc) {
	server.pub.GET(path, h)
}

// PubPOST registers a public POST route.
func PubPOST(path string, h echo.HandlerFunc) {
	server.pub.POST(path, h)
}

// Start blocks serving HTTP until shutdown.
func Start() error {
	addr := fmt.Sprintf("%s:%d", server.cfg.Web.Host, server.cfg.Web.Port)
	zap.L().Info("starting web server", zap.String("addr", addr))
	err := server.root.Start(addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func Shutdown(ctx context.Context) error {
	return server.root.Shutdown(ctx)
}
