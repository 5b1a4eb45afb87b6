package status

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/mutker/dashmon/internal/errors"
	"codeberg.org/mutker/dashmon/internal/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

const (
	defaultHistoryLimit = 60
	maxHistoryLimit     = 1000
	shutdownTimeout     = 5 * time.Second
)

// Server exposes the latest telemetry over HTTP for local tooling.
type Server struct {
	addr      string
	echo      *echo.Echo
	logger    logger.Logger
	snapshots SnapshotSource
	perf      PerfSource
	history   HistorySource
}

func New(addr string, snapshots SnapshotSource, perf PerfSource, history HistorySource, log logger.Logger) *Server {
	s := &Server{
		addr:      addr,
		logger:    log,
		snapshots: snapshots,
		perf:      perf,
		history:   history,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(logLevel())
	e.Use(middleware.Recover())

	e.GET("/api/health", s.healthHandler)
	e.GET("/api/telemetry", s.telemetryHandler)
	e.GET("/api/perf", s.perfHandler)
	e.GET("/api/history", s.historyHandler)

	s.echo = e

	return s
}

// logLevel keeps echo's own logger quiet unless debugging.
func logLevel() log.Lvl {
	if logger.IsDebug() {
		return log.DEBUG
	}

	return log.WARN
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errFactory := errors.New()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info().Str("addr", s.addr).Msg("Status endpoint listening")

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return errFactory.Wrap(ErrServeFailed, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(ErrShutdownFailed, err)
	}
	s.logger.Debug().Msg("Status endpoint stopped")

	return nil
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) telemetryHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.snapshots.Snapshot())
}

func (s *Server) perfHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.perf.Report())
}

func (s *Server) historyHandler(c echo.Context) error {
	if s.history == nil || !s.history.Enabled() {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "history disabled"})
	}

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = min(n, maxHistoryLimit)
	}

	samples, err := s.history.Recent(c.Request().Context(), limit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to query history")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "history unavailable"})
	}

	return c.JSON(http.StatusOK, samples)
}
