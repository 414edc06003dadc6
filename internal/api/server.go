// Package api serves package searches over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ralt/spksearch/internal/models"
	"github.com/ralt/spksearch/internal/version"
)

// Searcher runs searches and lists sources
type Searcher interface {
	GetPackages(ctx context.Context, q models.Query) *models.Response
	Sources() []models.Source
	UnsupportedSources() []models.Source
}

// SourcesResponse is the body of GET /api/sources
type SourcesResponse struct {
	Supported   []models.Source `json:"supported"`
	Unsupported []models.Source `json:"unsupported"`
}

// ErrorResponse is the body of a rejected request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the HTTP front end of a Searcher
type Server struct {
	Echo     *echo.Echo
	searcher Searcher
}

// NewServer creates a server with its routes registered
func NewServer(s Searcher) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(middleware.Recover())

	srv := &Server{Echo: e, searcher: s}
	e.GET("/healthz", srv.health)
	e.GET("/api/sources", srv.sources)
	e.GET("/api/packages", srv.packages)
	return srv
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Listening on %s", addr)
		if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Echo.Shutdown(shutdownCtx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) sources(c echo.Context) error {
	return c.JSON(http.StatusOK, SourcesResponse{
		Supported:   nonNil(s.searcher.Sources()),
		Unsupported: nonNil(s.searcher.UnsupportedSources()),
	})
}

func (s *Server) packages(c echo.Context) error {
	q, err := parseQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	resp := s.searcher.GetPackages(c.Request().Context(), q)
	if resp.Rejected() {
		return c.JSON(http.StatusBadRequest, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func parseQuery(c echo.Context) (models.Query, error) {
	q := models.Query{
		Source:    c.QueryParam("source"),
		Arch:      c.QueryParam("arch"),
		Model:     c.QueryParam("model"),
		Keyword:   c.QueryParam("keyword"),
		UserAgent: c.Request().UserAgent(),
	}

	v, err := version.Parse(c.QueryParam("version"))
	if err != nil {
		return q, err
	}
	q.Version = *v

	if raw := c.QueryParam("beta"); raw != "" {
		beta, err := strconv.ParseBool(raw)
		if err != nil {
			return q, fmt.Errorf("invalid beta value %q", raw)
		}
		q.Beta = beta
	}

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, fmt.Errorf("invalid limit %q", raw)
		}
		q.Limit = limit
	}
	return q, nil
}

func nonNil(sources []models.Source) []models.Source {
	if sources == nil {
		return []models.Source{}
	}
	return sources
}
