package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vexport/vexport/internal/auth"
)

// Handler is anything that can mount routes on the echo instance.
type Handler interface {
	Register(e *echo.Echo)
}

type Server struct {
	echo *echo.Echo
	addr string
}

// jwtExactSkipPaths lists the unauthenticated endpoints regardless of method.
var jwtExactSkipPaths = map[string]struct{}{
	"/ping":            {},
	"/health":          {},
	"/api/admin/login": {},
}

// shouldSkipJWT keeps the storefront reachable without a token. Catalog
// reads, contact submission and visit recording are public; everything else
// needs the admin token. GET /api/contact is the admin inbox, so the contact
// exemption is POST only.
func shouldSkipJWT(method, path string) bool {
	if _, ok := jwtExactSkipPaths[path]; ok {
		return true
	}
	if method == http.MethodPost && (path == "/api/contact" || path == "/api/visitors/record") {
		return true
	}
	if method == http.MethodGet && strings.HasPrefix(path, "/api/vehicles") {
		return true
	}
	return false
}

func NewServer(log *slog.Logger, addr, jwtSecret string, handlers []Handler) *Server {
	if addr == "" {
		addr = ":5000"
	}
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", c.RealIP()),
			)
			return nil
		},
	}))
	e.Use(auth.JWTMiddleware(jwtSecret, func(c echo.Context) bool {
		r := c.Request()
		return shouldSkipJWT(r.Method, r.URL.Path)
	}))

	for _, h := range handlers {
		if h != nil {
			h.Register(e)
		}
	}

	return &Server{
		echo: e,
		addr: addr,
	}
}

func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
