package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/shinyyama/marketplace-backend/internal/handler"
	appmw "github.com/shinyyama/marketplace-backend/internal/middleware"
	"github.com/shinyyama/marketplace-backend/internal/service"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Products service.ProductService
	URLs     handler.URLResolver
	DB       Pinger
	Auth     *appmw.AuthMiddleware

	// StaticDir is served under StaticPrefix when set (local media backend).
	StaticDir    string
	StaticPrefix string

	BodyLimit      string
	OriginSuffixes []string
}

type Server struct {
	e *echo.Echo
}

func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestContext)
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(opts.OriginSuffixes),
	}))
	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	e.GET("/healthz", func(c echo.Context) error {
		resp := map[string]string{"ok": "true", "db": "up"}
		if opts.DB != nil {
			if err := opts.DB.Ping(c.Request().Context()); err != nil {
				resp["ok"] = "false"
				resp["db"] = "down"
				return c.JSON(http.StatusServiceUnavailable, resp)
			}
		}
		return c.JSON(http.StatusOK, resp)
	})

	if opts.StaticDir != "" {
		prefix := opts.StaticPrefix
		if prefix == "" {
			prefix = "/uploads"
		}
		e.Static(prefix, opts.StaticDir)
	}

	productHandler := handler.NewProductHandler(opts.Products, opts.URLs)
	e.GET("/products", productHandler.List)
	e.GET("/products/:id", productHandler.Get)
	if opts.Auth != nil {
		e.POST("/products", productHandler.Create, opts.Auth.RequireAuth)
	} else {
		e.POST("/products", productHandler.Create)
	}

	return &Server{e: e}
}

func allowOrigin(suffixes []string) func(origin string) (bool, error) {
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		host := u.Hostname()
		for _, s := range suffixes {
			s = strings.ToLower(strings.TrimSpace(s))
			if s != "" && strings.HasSuffix(host, s) {
				return true, nil
			}
		}
		return false, nil
	}
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
