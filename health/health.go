// Package health runs the liveness responder the hosting platform probes.
package health

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Server struct {
	e    *echo.Echo
	log  *zap.Logger
	addr string
}

func NewServer(addr string, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "warden is running")
	})
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	return &Server{
		e:    e,
		log:  log,
		addr: addr,
	}
}

// Start serves in the background. The bot keeps running even if the
// responder cannot bind.
func (s *Server) Start() {
	go func() {
		s.log.Info("starting health server", zap.String("addr", s.addr))
		if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("health server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Close() error {
	return s.e.Shutdown(context.Background())
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}
